package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/world"
)

const (
	defaultQueue = 8
	maxQueue     = 64

	handshakeTimeout = 5 * time.Second
	readIdleTimeout  = 60 * time.Second
	writeTimeout     = 5 * time.Second
	enqueueTimeout   = 2 * time.Second
)

type Server struct {
	world *world.World
	log   *log.Logger

	// Token, when set, must match HELLO auth.token.
	Token string

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("session %s joined from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. The world never closes out; it stops sending after Leave.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			tool, code := decodeTool(msg)
			if code != "" {
				sendLocal(out, rejectTool(tool, code, "malformed TOOL message"))
				continue
			}
			select {
			case s.world.Inbox() <- world.ActionEnvelope{SessionID: sessionID, Tool: tool}:
			case <-time.After(enqueueTimeout):
				sendLocal(out, rejectTool(tool, protocol.ErrWorldBusy, "world inbox full"))
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.world.Leave() <- sessionID
		s.logf("session %s left", sessionID)
	}
}

// decodeTool returns a protocol error code for anything that is not a well-formed TOOL.
func decodeTool(msg []byte) (protocol.ToolMsg, string) {
	var tool protocol.ToolMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeTool {
		return tool, protocol.ErrProtoBadRequest
	}
	if err := json.Unmarshal(msg, &tool); err != nil {
		return tool, protocol.ErrProtoBadRequest
	}
	if tool.ProtocolVersion != protocol.Version {
		return tool, protocol.ErrProtoBadRequest
	}
	if strings.TrimSpace(tool.Tool) == "" {
		return tool, protocol.ErrBadRequest
	}
	return tool, ""
}

func rejectTool(tool protocol.ToolMsg, code, message string) protocol.ToolResultMsg {
	return protocol.ToolResultMsg{
		Type:            protocol.TypeToolResult,
		ProtocolVersion: protocol.Version,
		ID:              tool.ID,
		Tool:            tool.Tool,
		X:               tool.X,
		Y:               tool.Y,
		Result:          "rejected",
		Code:            code,
		Message:         message,
	}
}

// sendLocal queues a transport-generated reply on the session's outbound channel, dropping it
// when the client is not draining.
func sendLocal(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest)
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", nil
	}
	if s.Token != "" && (hello.Auth == nil || strings.TrimSpace(hello.Auth.Token) != s.Token) {
		closeWith(conn, websocket.ClosePolicyViolation, "bad auth token")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "mayor"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if maxQ > maxQueue {
		maxQ = maxQueue
	}
	out = make(chan []byte, maxQ)

	sessionID = uuid.NewString()
	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{SessionID: sessionID, Name: hello.ClientName, Out: out, Resp: respCh}:
	case <-time.After(handshakeTimeout):
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrWorldBusy)
		return "", nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-time.After(handshakeTimeout):
		// The join may still land on the next tick; make sure it is undone.
		go func() { s.world.Leave() <- sessionID }()
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrWorldBusy)
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- sessionID
		return "", nil
	}
	return resp.Welcome.SessionID, out
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
