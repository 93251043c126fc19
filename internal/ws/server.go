// Package ws provides WebSocket server functionality for client sessions.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/config"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/hub"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/protocol"
)

// Resolver completes pending human-in-the-loop requests.
type Resolver interface {
	Resolve(id, answer string) bool
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	resolver Resolver
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, resolver Resolver) *Server {
	return &Server{
		cfg:      cfg,
		hub:      h,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := newConnection(ws)
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		if conn.SessionID != "" {
			s.hub.Disconnect(conn.SessionID, conn)
		}
		conn.Close("read loop ended")
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close("write loop ended")
	}()

	for {
		select {
		case message, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, data)
	case protocol.TypeKeepalive:
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	case protocol.TypeHITLResponse:
		s.handleHITLResponse(conn, data)
	case protocol.TypeChat:
		s.handleChat(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello handles the hello handshake message.
func (s *Server) handleHello(conn *Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	// Validate bearer token if configured
	userID := msg.UserID
	if s.cfg.APIToken != "" {
		if msg.Token != s.cfg.APIToken {
			s.sendError(conn, protocol.ErrorCodeUnauthorized, "invalid token")
			return
		}
		if userID == "" {
			userID = "token_user"
		}
	}

	// Generate or use provided session ID
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()[:8]
	}

	// A repeat hello rebinding to a different session must unmap the old
	// one first, or this connection keeps receiving both sessions' events.
	if conn.SessionID != "" && conn.SessionID != sessionID {
		s.hub.Disconnect(conn.SessionID, conn)
	}

	conn.SessionID = sessionID
	conn.UserID = userID

	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		UserID: userID,
	}
	if data, err := json.Marshal(ack); err == nil {
		conn.Send(data)
	}

	// Register with the hub last so the connected event and history replay
	// arrive after the ack.
	s.hub.Connect(sessionID, userID, conn)

	log.Printf("Hello handshake completed for session: %s", sessionID)
}

// handleHITLResponse resolves a pending human-in-the-loop request.
func (s *Server) handleHITLResponse(conn *Connection, data []byte) {
	var msg protocol.HITLResponseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid hitl_response message")
		return
	}

	if conn.SessionID == "" {
		s.sendError(conn, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}
	if msg.ID == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "id is required")
		return
	}

	if !s.resolver.Resolve(msg.ID, msg.Answer) {
		// Unknown or already-resolved id: report, never fail the session.
		s.sendError(conn, protocol.ErrorCodeUnknownRequest, "no pending request with id "+msg.ID)
		return
	}

	s.hub.Send(conn.SessionID, domain.AgentEvent{
		Type:    domain.EventTypeHITLResolved,
		Source:  "hitl",
		Message: "answer received",
		Data:    map[string]any{"id": msg.ID},
		Ts:      time.Now().UnixMilli(),
	})
	log.Printf("HITL request resolved: id=%s session=%s", msg.ID, conn.SessionID)
}

// handleChat forwards free-text chat without interpreting it.
func (s *Server) handleChat(conn *Connection, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid chat message")
		return
	}

	if conn.SessionID == "" {
		s.sendError(conn, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}

	s.hub.Send(conn.SessionID, domain.AgentEvent{
		Type:    domain.EventTypeChat,
		Source:  "user",
		Message: msg.Text,
		Ts:      time.Now().UnixMilli(),
	})
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			SessionID: conn.SessionID,
		},
		Code:    code,
		Message: message,
	}
	if data, err := json.Marshal(errMsg); err == nil {
		conn.Send(data)
	}
}
