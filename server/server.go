package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/roomboard/broadcast"
	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/monitor"
	"github.com/wfunc/roomboard/network"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/rpc"
	"github.com/wfunc/roomboard/services"
	"github.com/wfunc/roomboard/session"
	"github.com/wfunc/roomboard/timer"
)

type DashboardServer struct {
	addr           string
	heartbeat      time.Duration
	upgrader       websocket.Upgrader
	control        *services.ControlService
	projection     *projection.Projection
	monitor        *monitor.Monitor
	sessionManager *session.Manager
	broadcaster    *broadcast.ViewBroadcaster
	rpcServer      *rpc.Server
	timers         *timer.TimerManager
	httpServer     *http.Server

	mutex        sync.Mutex
	cancels      []func()
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewDashboardServer builds the HTTP and websocket front. rpcServer may be nil.
func NewDashboardServer(addr string, heartbeat time.Duration, control *services.ControlService,
	proj *projection.Projection, mon *monitor.Monitor, rpcServer *rpc.Server) *DashboardServer {
	s := &DashboardServer{
		addr:           addr,
		heartbeat:      heartbeat,
		control:        control,
		projection:     proj,
		monitor:        mon,
		sessionManager: session.NewManager(),
		rpcServer:      rpcServer,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewViewBroadcaster(s.sessionManager, mon)
	s.httpServer = &http.Server{Addr: addr, Handler: s.Router()}
	return s
}

// Start wires the pushes and serves HTTP until Shutdown.
func (s *DashboardServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}
	s.wire()

	logger.Log.Infof("Dashboard server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// wire subscribes viewers to the projection and the control model, and starts
// the heartbeat.
func (s *DashboardServer) wire() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancels = append(s.cancels, s.projection.Subscribe(func(view projection.View) {
		s.monitor.SetProjectionCenters(len(view))
		if err := s.broadcaster.PushView(view); err != nil {
			logger.Log.Errorf("push projection: %v", err)
		}
	}))

	s.cancels = append(s.cancels, s.control.Subscribe(func(snapshot room.Snapshot) {
		s.monitor.ObserveSnapshot(snapshot)
		if err := s.broadcaster.PushAttention(room.AttentionList(snapshot.Centers)); err != nil {
			logger.Log.Errorf("push attention: %v", err)
		}
	}))

	if s.heartbeat > 0 {
		s.timers = timer.NewTimerManager(s.heartbeat / 10)
		s.timers.AddTimer(s.heartbeat, s.heartbeat, s.tick)
	}
}

// tick sends the heartbeat and closes viewers silent for three intervals.
func (s *DashboardServer) tick() {
	now := time.Now()
	if err := s.broadcaster.Heartbeat(now); err != nil {
		logger.Log.Errorf("heartbeat: %v", err)
	}
	for _, idle := range s.sessionManager.IdleSince(now.Add(-3 * s.heartbeat)) {
		logger.Log.Infof("closing idle viewer %s", idle.ID)
		idle.Close()
	}
}

func (s *DashboardServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		s.mutex.Lock()
		cancels := s.cancels
		s.cancels = nil
		s.mutex.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
		if s.timers != nil {
			s.timers.Stop()
		}
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		err = s.httpServer.Shutdown(ctx)
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
	})
	return err
}

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *DashboardServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineViewers()

	logger.Log.Infof("New viewer from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Viewer closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		if s.sessionManager.Remove(sess.GetID()) {
			s.monitor.DecOnlineViewers()
		}
		wsConn.Close()
	}()

	if err := s.broadcaster.SendView(sess, s.projection.View()); err != nil {
		return
	}

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			sess.Touch()
			s.handlePacket(sess, packet)
		}
	}
}

func (s *DashboardServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
	case network.MsgTypeFilter:
		var req network.FilterRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "invalid filter")
			return
		}
		sess.SetCenter(req.Center)
		s.broadcaster.SendView(sess, s.projection.View())
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, "unknown message type")
	}
}

func (s *DashboardServer) sendError(sess *session.Session, message string) {
	data, _ := json.Marshal(network.ErrorPayload{Message: message})
	sess.Send(network.MsgTypeError, data)
}
