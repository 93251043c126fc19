// Package main provides a simple CLI client for the jobstream WebSocket API.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeHello        = "hello"
	TypeHelloAck     = "hello_ack"
	TypeKeepalive    = "keepalive"
	TypeHITLResponse = "hitl_response"
	TypeChat         = "chat"
	TypeError        = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent to establish a session.
type HelloMessage struct {
	BaseMessage
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// HITLResponseMessage answers a pending approval request.
type HITLResponseMessage struct {
	BaseMessage
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// ChatMessage is free-text chat.
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ErrorMessage represents an error from the server.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client represents a WebSocket client.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	done      chan struct{}
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() {
	close(c.done)
	c.conn.Close()
}

// SendHello performs the hello handshake and records the session id.
func (c *Client) SendHello(token, userID, sessionID string) error {
	msg := HelloMessage{
		BaseMessage: BaseMessage{
			Type:      TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		Token:  token,
		UserID: userID,
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	// Wait for hello_ack
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == TypeError {
		var errMsg ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}

	if base.Type != TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// SendAnswer answers a pending human-input request.
func (c *Client) SendAnswer(id, answer string) error {
	return c.conn.WriteJSON(HITLResponseMessage{
		BaseMessage: BaseMessage{
			Type:      TypeHITLResponse,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		ID:     id,
		Answer: answer,
	})
}

// SendChat sends a free-text chat message.
func (c *Client) SendChat(text string) error {
	return c.conn.WriteJSON(ChatMessage{
		BaseMessage: BaseMessage{
			Type:      TypeChat,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		Text: text,
	})
}

// Keepalive pings the server periodically so the read deadline stays fresh.
func (c *Client) Keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			msg := BaseMessage{Type: TypeKeepalive, Ts: time.Now().UnixMilli(), SessionID: c.sessionID}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// ReadMessages reads and prints events from the server. Approval requests
// are called out with the id needed to answer them.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}

			var ev struct {
				Type    string         `json:"type"`
				Source  string         `json:"source"`
				Message string         `json:"message"`
				Data    map[string]any `json:"data"`
			}
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}

			switch ev.Type {
			case "hitl_request":
				id, _ := ev.Data["id"].(string)
				fmt.Printf("\n[approval needed] %s\n  answer with: /answer %s <yes|no|text>\n", ev.Message, id)
			case TypeError:
				var errMsg ErrorMessage
				json.Unmarshal(data, &errMsg)
				fmt.Printf("\n[error] %s: %s\n", errMsg.Code, errMsg.Message)
			default:
				var prettyJSON map[string]interface{}
				json.Unmarshal(data, &prettyJSON)
				formatted, _ := json.MarshalIndent(prettyJSON, "", "  ")
				fmt.Printf("\n[%s] Received:\n%s\n", ev.Type, string(formatted))
			}
		}
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket server address")
	token := flag.String("token", "", "API token for authentication")
	userID := flag.String("user", "", "User id to bind")
	sessionID := flag.String("session", "", "Session id to resume (empty for a new session)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Connected. Sending hello...")

	if err := client.SendHello(*token, *userID, *sessionID); err != nil {
		log.Fatalf("Hello failed: %v", err)
	}

	fmt.Printf("Session established: %s\n", client.sessionID)
	fmt.Println("\nType a message and press Enter to chat.")
	fmt.Println("Commands: /answer <id> <text> to answer an approval, /quit to exit")
	fmt.Println()

	// Start reading messages and keepalives in background
	go client.ReadMessages()
	go client.Keepalive(20 * time.Second)

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Read user input
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		default:
			if !scanner.Scan() {
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if input == "/quit" {
				fmt.Println("Bye!")
				return
			}

			if rest, ok := strings.CutPrefix(input, "/answer "); ok {
				id, answer, found := strings.Cut(rest, " ")
				if !found {
					fmt.Println("usage: /answer <id> <text>")
					continue
				}
				if err := client.SendAnswer(id, answer); err != nil {
					log.Printf("Send error: %v", err)
				}
				continue
			}

			if err := client.SendChat(input); err != nil {
				log.Printf("Send error: %v", err)
				continue
			}
		}
	}
}
