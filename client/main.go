package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeCreateRoom       = 101
	MsgTypeAcceptInvitation = 103
	MsgTypeSendGameData     = 201
	MsgTypeUpdatePaddles    = 202
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	joinRoom := flag.String("join", "", "room id to join as guest (empty: create a room)")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	roomID := *joinRoom

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))

			if msgID == MsgTypeCreateRoom {
				var resp map[string]string
				if err := json.Unmarshal(data, &resp); err == nil {
					roomID = resp["room_id"]
					log.Printf("Room created: %s", roomID)
				}
			}
		}
	}()

	if roomID == "" {
		log.Println("Sending Create Room request...")
		if err := send(c, MsgTypeCreateRoom, []byte("{}")); err != nil {
			log.Fatalf("Write error: %v", err)
		}
	} else {
		log.Printf("Joining room %s...", roomID)
		payload, _ := json.Marshal(map[string]string{"room_id": roomID})
		if err := send(c, MsgTypeAcceptInvitation, payload); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		// Guest seeds the match with a default layout and wiggles its paddle.
		seed := map[string]interface{}{
			"room_id": roomID,
			"init_canvas_data": map[string]interface{}{
				"ball":        map[string]float64{"x": 50, "y": 50, "speedX": 1, "speedY": 1, "radius": 2, "maxBallSpeed": 3},
				"leftPaddle":  map[string]float64{"x": 1, "y": 40, "width": 2, "height": 20},
				"rightPaddle": map[string]float64{"x": 97, "y": 40, "width": 2, "height": 20},
			},
		}
		seedData, _ := json.Marshal(seed)
		if err := send(c, MsgTypeSendGameData, seedData); err != nil {
			log.Fatalf("Write error: %v", err)
		}
	}

	paddleTicker := time.NewTicker(100 * time.Millisecond)
	defer paddleTicker.Stop()
	y := 40.0
	dir := 1.0

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-paddleTicker.C:
			if roomID == "" {
				continue
			}
			y += 2 * dir
			if y <= 0 || y >= 80 {
				dir = -dir
			}
			paddle := map[string]float64{"x": 97, "y": y, "width": 2, "height": 20}
			if *joinRoom == "" {
				paddle["x"] = 1
			}
			update := map[string]interface{}{
				"room_id": roomID,
				"canvas_data": map[string]interface{}{
					"leftPaddle":  paddle,
					"rightPaddle": paddle,
				},
			}
			data, _ := json.Marshal(update)
			if err := send(c, MsgTypeUpdatePaddles, data); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
