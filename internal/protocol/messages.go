// Package protocol defines the WebSocket message protocol between clients
// and the backend.
package protocol

// Message types from client to server
const (
	TypeHello        = "hello"
	TypeKeepalive    = "keepalive"
	TypeHITLResponse = "hitl_response"
	TypeChat         = "chat"
)

// Message types from server to client. Pipeline progress arrives as agent
// events (connected, step_completed, hitl_request, run_done, ...) rather
// than dedicated message frames.
const (
	TypeHelloAck = "hello_ack"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent by client to establish a session binding. Token is an
// optional bearer token used to bind the user.
type HelloMessage struct {
	BaseMessage
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// HelloAckMessage is sent by the server after a successful hello.
type HelloAckMessage struct {
	BaseMessage
	UserID string `json:"user_id,omitempty"`
}

// KeepaliveMessage refreshes the connection's read deadline.
type KeepaliveMessage struct {
	BaseMessage
}

// HITLResponseMessage answers a pending human-in-the-loop request.
type HITLResponseMessage struct {
	BaseMessage
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// ChatMessage is free-text chat, forwarded (not interpreted) by the core.
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ErrorMessage is sent by the server when an error occurs.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeUnknownRequest  = "unknown_request"
)
