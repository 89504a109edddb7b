package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Time allowed for a command sent over the websocket
	commandTimeout = 30 * time.Second
)

// Websocket message types
const (
	MessageState  = "state"
	MessageResult = "result"
)

// Message is sent from the bridge to websocket clients
type Message struct {
	Type  string         `json:"type"`
	State *StateResponse `json:"state,omitempty"`
	ID    string         `json:"id,omitempty"`
	OK    bool           `json:"ok,omitempty"`
	Error string         `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge serves the local network; browsers on other origins are allowed
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams state updates and accepts commands
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Debug("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	if !s.trackConn(remoteAddr, conn) {
		_ = conn.Close()
		return
	}
	defer s.untrackConn(remoteAddr)

	logging.Info("WebSocket client connected", zap.String("remote_addr", remoteAddr))

	updates, cancel := s.coord.Subscribe()
	defer cancel()

	// Replies from the reader are funnelled through the writer
	replies := make(chan Message, 8)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(ctx, conn, updates, replies)
		// Unblock the reader when writing fails
		_ = conn.Close()
	}()

	s.readPump(ctx, conn, remoteAddr, replies)

	stop()
	<-writerDone

	logging.Info("WebSocket client disconnected", zap.String("remote_addr", remoteAddr))
}

// readPump reads command messages until the connection fails
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, remoteAddr string, replies chan<- Message) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req CommandRequest
		if err := conn.ReadJSON(&req); err != nil {
			if isDecodeError(err) {
				// Malformed JSON leaves the connection usable
				if !sendReply(ctx, replies, Message{Type: MessageResult, Error: "invalid message: " + err.Error()}) {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		reply := Message{Type: MessageResult, ID: req.ID}
		if err := req.Validate(); err != nil {
			reply.Error = err.Error()
		} else {
			cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			err := s.coord.SendCommand(cmdCtx, req.Key, *req.Value)
			cancel()
			if err != nil {
				reply.Error = spaclient.ShortMessage(err)
			} else {
				reply.OK = true
			}
		}

		if !sendReply(ctx, replies, reply) {
			return
		}
	}
}

func sendReply(ctx context.Context, replies chan<- Message, msg Message) bool {
	select {
	case replies <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// isDecodeError reports whether a read error came from decoding the JSON
// payload rather than from the connection itself
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// writePump sends the current state, then every update, reply and ping
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, updates <-chan coordinator.Update, replies <-chan Message) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	current := NewStateResponse(s.coord.Current())
	if err := writeMessage(conn, Message{Type: MessageState, State: &current}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case u, ok := <-updates:
			if !ok {
				// Coordinator closed
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			state := NewStateResponse(u)
			if err := writeMessage(conn, Message{Type: MessageState, State: &state}); err != nil {
				return
			}

		case reply := <-replies:
			if err := writeMessage(conn, reply); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
