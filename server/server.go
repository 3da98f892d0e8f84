package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/pongserver/broadcast"
	"github.com/wfunc/pongserver/config"
	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/monitor"
	"github.com/wfunc/pongserver/network"
	"github.com/wfunc/pongserver/persistence"
	"github.com/wfunc/pongserver/room"
	pongserver_rpc "github.com/wfunc/pongserver/rpc"
	"github.com/wfunc/pongserver/scheduler"
	"github.com/wfunc/pongserver/services"
	"github.com/wfunc/pongserver/session"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	scheduler      *scheduler.Scheduler
	summaryService *services.SummaryService
	rpcServer      *pongserver_rpc.Server
	monitor        *monitor.Monitor
	gameConfig     game.Config
	shutdownChan   chan struct{}
}

// NewGameServer wires the registry, scheduler, broadcaster and persistence
// together. db may be nil; the server then runs purely in memory.
func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		scheduler:      scheduler.New(cfg.Game.TickInterval()),
		monitor:        monitor.NewMonitor("pongserver"),
		gameConfig: game.Config{
			Rounds:          cfg.Game.Rounds,
			MatchesPerRound: cfg.Game.MatchesPerRound,
		},
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// The registry needs the broadcaster and the broadcaster needs the
	// registry; the room package's Broadcaster interface breaks the cycle.
	s.roomManager = room.NewManager(nil)
	rb := broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.broadcaster = rb
	s.roomManager.SetBroadcaster(rb)

	if db != nil {
		s.summaryService = services.NewSummaryService(db)
		s.roomManager.SetRecorder(s.summaryService)
	}
	s.roomManager.SetTeardownHook(func(roomID string) {
		s.teardownRoom(roomID, "match_ended")
	})

	rpcServer, err := pongserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(pongserver_rpc.NewMatchService(s.roomManager, s.summaryService))

	s.monitor.StartServer(cfg.Server.MetricsAddress)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.scheduler.StopAll()
	s.rpcServer.Stop()
	if s.summaryService != nil {
		s.summaryService.Close()
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Register(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		// Dropping the socket has leave semantics: the opponent is told
		// and an emptied room is reclaimed.
		if r, ok := s.roomManager.RoomForSession(sess.GetID()); ok {
			if err := s.roomManager.LeaveRoom(r.ID, sess.GetID()); err != nil {
				logger.Log.Warnf("Leave on disconnect failed for session %s: %v", sess.GetID(), err)
			}
			s.monitor.SetActiveRooms(s.roomManager.Count())
		}
		s.sessionManager.Unregister(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	s.monitor.IncMessagesReceived()

	defer func() {
		// A malformed or hostile payload must not take the read loop down.
		if r := recover(); r != nil {
			logger.Log.Errorf("Panic handling msg %d from session %s: %v", packet.MsgID, sess.GetID(), r)
		}
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeRegister:
		s.handleRegister(sess, packet)
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeInviteFriend:
		s.handleInviteFriend(sess, packet)
	case network.MsgTypeAcceptInvitation:
		s.handleAcceptInvitation(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypeSendGameData:
		s.handleSendGameData(sess, packet)
	case network.MsgTypeUpdatePaddles:
		s.handleUpdatePaddles(sess, packet)
	case network.MsgTypePauseGame:
		s.handleSetPaused(sess, packet, true)
	case network.MsgTypeResumeGame:
		s.handleSetPaused(sess, packet, false)
	case network.MsgTypeEndGame:
		s.handleEndGame(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) replyError(sess *session.Session, event string, err error) {
	payload, _ := json.Marshal(map[string]string{"event": event, "error": err.Error()})
	if sendErr := sess.Send(network.MsgTypeError, payload); sendErr != nil {
		logger.Log.Debugf("Failed to send error to session %s: %v", sess.GetID(), sendErr)
	}
}

func (s *GameServer) handleRegister(sess *session.Session, packet *network.Packet) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	sess.BindUser(req.UserID)
	logger.Log.Infof("Session %s registered as user %d", sess.GetID(), req.UserID)
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	r, err := s.roomManager.CreateRoom(sess.GetID(), s.gameConfig)
	if err != nil {
		s.replyError(sess, "createRoom", err)
		return
	}
	sess.RoomID = r.ID
	s.monitor.SetActiveRooms(s.roomManager.Count())

	logger.Log.Infof("Session %s created room %s", sess.GetID(), r.ID)

	resp := map[string]string{"room_id": r.ID}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeCreateRoom, data)
}

func (s *GameServer) handleInviteFriend(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID    string          `json:"room_id"`
		FriendID  int64           `json:"friend_id"`
		ModalData json.RawMessage `json:"modal_data"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		s.replyError(sess, "inviteFriend", room.ErrRoomNotFound)
		return
	}
	if !r.IsOwner(sess.GetID()) {
		logger.Log.Warnf("Session %s tried to invite from room %s it does not own", sess.GetID(), req.RoomID)
		return
	}
	if r.OccupantCount() >= 2 {
		s.replyError(sess, "inviteFriend", room.ErrRoomFull)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"roomId":    req.RoomID,
		"modalData": req.ModalData,
	})
	if err := s.broadcaster.BroadcastToUsers([]int64{req.FriendID}, network.MsgTypeRoomInvitation, payload); err != nil {
		logger.Log.Warnf("Invitation delivery to user %d failed: %v", req.FriendID, err)
	}
}

func (s *GameServer) handleAcceptInvitation(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, err := s.roomManager.JoinRoom(req.RoomID, sess.GetID())
	if err != nil {
		s.replyError(sess, "acceptInvitation", err)
		return
	}
	sess.RoomID = r.ID

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.ID)

	// Both seats taken: start the per-room tick and tell both clients to
	// run their countdown. The simulation idles until a client seeds it.
	s.startTicking(r)
	if err := r.Broadcast(network.MsgTypePlayGame, nil); err != nil {
		logger.Log.Warnf("playGame broadcast for room %s failed: %v", r.ID, err)
	}
}

func (s *GameServer) startTicking(r *room.Room) {
	roomID := r.ID
	s.scheduler.Start(roomID, func(dt float64) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Log.Errorf("Tick failed for room %s: %v", roomID, rec)
				go s.teardownRoom(roomID, "tick_failure")
			}
		}()
		start := time.Now()
		r.Update(dt)
		s.monitor.IncTicks()
		s.monitor.ObserveTickDuration(time.Since(start))
	})
}

// teardownRoom atomically stops the periodic job, finishes the engine and
// releases the registry slot, in that order, so the room id can never again
// resolve to a live engine.
func (s *GameServer) teardownRoom(roomID, reason string) {
	s.scheduler.Stop(roomID)
	s.roomManager.RemoveRoom(roomID, reason)
	s.monitor.SetActiveRooms(s.roomManager.Count())
	logger.Log.Infof("Room %s torn down (%s)", roomID, reason)
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if err := s.roomManager.LeaveRoom(req.RoomID, sess.GetID()); err != nil {
		// A stale room id is an expected race, not a client error.
		logger.Log.Debugf("Leave of room %s by session %s: %v", req.RoomID, sess.GetID(), err)
		return
	}
	sess.RoomID = ""
	s.monitor.SetActiveRooms(s.roomManager.Count())
}

func (s *GameServer) handleSendGameData(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID         string            `json:"room_id"`
		InitCanvasData game.InitialState `json:"init_canvas_data"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		logger.Log.Debugf("Seed for unknown room %s ignored", req.RoomID)
		return
	}
	if _, member := r.SideOf(sess.GetID()); !member {
		return
	}

	// First seed wins; the engine ignores the duplicate from the second
	// client.
	r.Engine().SetInitialState(req.InitCanvasData)
}

func (s *GameServer) handleUpdatePaddles(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID     string          `json:"room_id"`
		CanvasData game.CanvasData `json:"canvas_data"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		// Updates racing a teardown are expected; drop silently.
		return
	}

	side, member := r.SideOf(sess.GetID())
	if !member {
		return
	}

	// Paddle position is client-authoritative, but only for the client's own
	// side: the owner moves the left paddle, the guest the right one.
	if side == game.SideLeft {
		r.Engine().UpdatePaddle(game.SideLeft, req.CanvasData.LeftPaddle)
	} else {
		r.Engine().UpdatePaddle(game.SideRight, req.CanvasData.RightPaddle)
	}
}

func (s *GameServer) handleSetPaused(sess *session.Session, packet *network.Packet, paused bool) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}
	if _, member := r.SideOf(sess.GetID()); !member {
		return
	}

	if paused {
		r.Pause()
	} else {
		r.Resume()
	}
}

func (s *GameServer) handleEndGame(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}
	if _, member := r.SideOf(sess.GetID()); !member {
		return
	}

	sess.RoomID = ""
	s.teardownRoom(req.RoomID, "ended_by_client")
}
