// Package eventsource is a stand-in for the operator server's /ws channel.
// The operator UI subscribes on /ws exactly as it would against the real
// server; tests and the verify runner push events through Emit, /control or
// POST /emit.
package eventsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/gorilla/websocket"
)

var _ output.EventEmitterPort = (*Server)(nil)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	msgJoinMachine  = "join_machine"
	msgLeaveMachine = "leave_machine"
	msgAck          = "ack"
)

type inbound struct {
	Type      string `json:"type"`
	MachineID int    `json:"machineId"`
}

type Server struct {
	upgrader websocket.Upgrader
	logger   output.LoggerPort

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}

	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
	closeOnce  sync.Once
}

type subscriber struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	mu       sync.RWMutex
	machines map[int]bool
}

func NewServer(logger output.LoggerPort) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
		done:        make(chan struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httplog.NewLogger("event-source", httplog.Options{
		JSON:    true,
		Concise: true,
	})))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/ws", s.handleSubscribe)
	r.Get("/control", s.handleControl)
	r.Post("/emit", s.handleEmit)
	return r
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and returns the
// base URL of the server.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Event source stopped", "error", err)
		}
	}()

	base := "http://" + ln.Addr().String()
	s.logger.Info("Event source listening", "url", base)
	return base, nil
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.httpServer.Shutdown(ctx)
		}

		s.mu.Lock()
		for sub := range s.subscribers {
			sub.writeMu.Lock()
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "event source closing"),
				time.Now().Add(time.Second))
			sub.writeMu.Unlock()
			_ = sub.conn.Close()
			delete(s.subscribers, sub)
		}
		s.mu.Unlock()
	})
}

func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Emit delivers ev to every subscriber in the event's machine room and to
// every subscriber that has not joined a room. It fails when nobody received it.
func (s *Server) Emit(ctx context.Context, ev entity.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", entity.ErrEventSource, ev.Type, err)
	}

	s.mu.RLock()
	targets := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		if sub.wants(ev.MachineID) {
			targets = append(targets, sub)
		}
	}
	s.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.write(payload); err != nil {
			s.logger.Warn("Event delivery failed", "type", ev.Type, "error", err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("%w: no subscriber received %s for machine %d", entity.ErrEventSource, ev.Type, ev.MachineID)
	}
	s.logger.Info("Event emitted", "type", ev.Type, "machine_id", ev.MachineID, "ticket_id", ev.TicketID, "delivered", delivered)
	return nil
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	sub := &subscriber{conn: conn, machines: make(map[int]bool)}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("Subscriber connected", "remote_addr", r.RemoteAddr)
	_ = sub.writeJSON(entity.Event{Type: entity.EventConnected, Message: "WebSocket connection established"})

	go s.pinger(sub)
	s.readLoop(sub)
}

func (s *Server) readLoop(sub *subscriber) {
	defer s.remove(sub)

	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Subscriber read error", "error", err)
			}
			return
		}

		// any frame that does not decode keeps the connection open
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("Invalid subscriber message", "error", err)
			_ = sub.writeJSON(entity.Event{Type: entity.EventError, Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case msgJoinMachine:
			sub.join(msg.MachineID)
			_ = sub.writeJSON(entity.Event{Type: entity.EventJoinedMachine, MachineID: msg.MachineID})
		case msgLeaveMachine:
			sub.leave(msg.MachineID)
		default:
			_ = sub.writeJSON(entity.Event{
				Type:    entity.EventError,
				Message: fmt.Sprintf("Unknown message type: %s", msg.Type),
			})
		}
	}
}

func (s *Server) pinger(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sub.writeMu.Lock()
			err := sub.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			sub.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Server) remove(sub *subscriber) {
	s.mu.Lock()
	delete(s.subscribers, sub)
	s.mu.Unlock()
	_ = sub.conn.Close()
}

// handleControl accepts Event frames from a remote Client and answers each
// with an ack or an error frame.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade control connection", "error", err)
		return
	}
	defer conn.Close()

	for {
		var ev entity.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}

		reply := entity.Event{Type: msgAck}
		if err := s.Emit(context.Background(), ev); err != nil {
			reply = entity.Event{Type: entity.EventError, Message: err.Error()}
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var ev entity.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Type == "" {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}
	if err := s.Emit(r.Context(), ev); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (sub *subscriber) wants(machineID int) bool {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	if len(sub.machines) == 0 || machineID == 0 {
		return true
	}
	return sub.machines[machineID]
}

func (sub *subscriber) join(machineID int) {
	sub.mu.Lock()
	sub.machines[machineID] = true
	sub.mu.Unlock()
}

func (sub *subscriber) leave(machineID int) {
	sub.mu.Lock()
	delete(sub.machines, machineID)
	sub.mu.Unlock()
}

func (sub *subscriber) write(payload []byte) error {
	sub.writeMu.Lock()
	defer sub.writeMu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteMessage(websocket.TextMessage, payload)
}

func (sub *subscriber) writeJSON(v any) error {
	sub.writeMu.Lock()
	defer sub.writeMu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteJSON(v)
}
