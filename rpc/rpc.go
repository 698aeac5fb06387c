package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/services"
	"github.com/wfunc/roomboard/state"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the control service under "ControlService".
func NewServer(addr string, svc *services.ControlService) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("ControlService", NewControlService(svc)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpcServer,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// ControlService is the struct that exposes RPC methods for scripted operators.
// Methods follow the net/rpc signature: exported args, pointer reply, error result.
type ControlService struct {
	svc *services.ControlService
}

func NewControlService(svc *services.ControlService) *ControlService {
	return &ControlService{svc: svc}
}

// TransitionArgs addresses a scenario by center key (ID, tag or position) and index.
type TransitionArgs struct {
	Center   string
	Scenario int
	Action   string
}

type SetFieldArgs struct {
	Center   string
	Scenario int
	Field    string
	Value    string
}

type ScenarioReply struct {
	Scenario room.Scenario
}

// AttentionArgs optionally restricts the list to one center key.
type AttentionArgs struct {
	Center string
}

type AttentionReply struct {
	Items []services.AttentionEntry
}

func (cs *ControlService) Transition(args *TransitionArgs, reply *ScenarioReply) error {
	action, err := state.ParseAction(args.Action)
	if err != nil {
		return err
	}
	ci, err := cs.svc.ResolveCenter(args.Center)
	if err != nil {
		return err
	}
	scenario, err := cs.svc.Transition(ci, args.Scenario, action)
	reply.Scenario = scenario
	return err
}

func (cs *ControlService) SetField(args *SetFieldArgs, reply *ScenarioReply) error {
	field, err := room.ParseField(args.Field)
	if err != nil {
		return err
	}
	ci, err := cs.svc.ResolveCenter(args.Center)
	if err != nil {
		return err
	}
	scenario, err := cs.svc.SetField(ci, args.Scenario, field, args.Value)
	reply.Scenario = scenario
	return err
}

func (cs *ControlService) Attention(args *AttentionArgs, reply *AttentionReply) error {
	items := cs.svc.Attention()
	if args.Center == "" {
		reply.Items = items
		return nil
	}
	ci, err := cs.svc.ResolveCenter(args.Center)
	if err != nil {
		return err
	}
	reply.Items = make([]services.AttentionEntry, 0, len(items))
	for _, item := range items {
		if item.CenterIndex == ci {
			reply.Items = append(reply.Items, item)
		}
	}
	return nil
}
