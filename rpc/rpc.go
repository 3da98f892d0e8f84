package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/models"
	"github.com/wfunc/pongserver/room"
	"github.com/wfunc/pongserver/services"
)

// Server manages the RPC listener used by ops tooling.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// MatchService exposes match data over net/rpc. Methods follow the net/rpc
// signature: exported method, exported args, reply pointer, error return.
type MatchService struct {
	rooms     *room.Manager
	summaries *services.SummaryService
}

// NewMatchService creates a new MatchService. summaries may be nil when the
// server runs without a database.
func NewMatchService(rooms *room.Manager, summaries *services.SummaryService) *MatchService {
	return &MatchService{rooms: rooms, summaries: summaries}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	RoomIDs []string
}

func (ms *MatchService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.RoomIDs = ms.rooms.RoomIDs()
	return nil
}

type RoomSummariesArgs struct {
	RoomID string
}

type RoomSummariesReply struct {
	Rounds []models.RoundSummary
}

func (ms *MatchService) GetRoomSummaries(args *RoomSummariesArgs, reply *RoomSummariesReply) error {
	if ms.summaries == nil {
		return nil
	}
	rounds, err := ms.summaries.GetRoomSummaries(args.RoomID)
	if err != nil {
		return err
	}
	reply.Rounds = rounds
	return nil
}

type MatchRecordArgs struct {
	RoomID string
}

type MatchRecordReply struct {
	Record *models.MatchRecord
}

func (ms *MatchService) GetMatchRecord(args *MatchRecordArgs, reply *MatchRecordReply) error {
	if ms.summaries == nil {
		return nil
	}
	record, err := ms.summaries.GetMatchRecord(args.RoomID)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}
