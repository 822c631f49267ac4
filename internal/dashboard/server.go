// Package dashboard provides a real-time WebSocket feed of sync and
// leaderboard activity.
//
// While the daemon runs, the server broadcasts pull/push events and
// leaderboard statistics to connected clients. It is a read-only
// observation surface: clients never write through it.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/arclist/arclist/internal/model"
)

// MessageType defines the type of dashboard message.
type MessageType string

const (
	// MessageTypePull indicates a collection was refreshed from remote.
	MessageTypePull MessageType = "pull"

	// MessageTypePush indicates a collection was pushed to remote.
	MessageTypePush MessageType = "push"

	// MessageTypeStats carries leaderboard statistics.
	MessageTypeStats MessageType = "stats"
)

// Message is one dashboard broadcast.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncData describes a single collection transfer.
type SyncData struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
}

// StatsData carries the current leaderboard shape.
type StatsData struct {
	Players      int    `json:"players"`
	Levels       int    `json:"levels"`
	TopPlayer    string `json:"top_player,omitempty"`
	HardestLevel string `json:"hardest_level,omitempty"`
	PendingQueue int    `json:"pending_queue"`
	AuditEntries int    `json:"audit_entries"`
}

// Server manages WebSocket connections and broadcasts dashboard messages.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8080).
	Port int

	// Logger for server activity (default: log.Default()).
	Logger *log.Logger
}

// NewServer creates a dashboard server.
func NewServer(config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// CollectionPulled implements the sync engine's Notifier.
func (s *Server) CollectionPulled(c model.Collection, records int) {
	s.broadcastSync(MessageTypePull, c, records)
}

// CollectionPushed implements the sync engine's Notifier.
func (s *Server) CollectionPushed(c model.Collection, records int) {
	s.broadcastSync(MessageTypePush, c, records)
}

func (s *Server) broadcastSync(t MessageType, c model.Collection, records int) {
	data, err := json.Marshal(SyncData{Collection: string(c), Records: records})
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: t, Data: data})
}

// BroadcastStats publishes leaderboard statistics.
func (s *Server) BroadcastStats(stats StatsData) {
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeStats, Data: data})
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Broadcast sends a message to all connected clients. Never blocks; a
// full channel drops the message with a warning.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}
			s.fanOut(data)
		}
	}
}

// fanOut writes one encoded message to every client. Writes happen
// outside the client-set lock; a failed write evicts that client.
func (s *Server) fanOut(data []byte) {
	s.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.logger.Printf("Dropping client after failed write: %v", err)
			s.removeClient(conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("Client connected (total: %d)", count)

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and notices disconnects. Client
// messages are discarded.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, known := s.clients[conn]
	delete(s.clients, conn)
	remaining := len(s.clients)
	s.clientsMu.Unlock()

	if !known {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Printf("Client disconnected (total: %d)", remaining)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health{Status: "ok", Clients: s.ClientCount()})
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
