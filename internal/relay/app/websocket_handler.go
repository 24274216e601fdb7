package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sendBufferSize = 64

var errSendBufferFull = errors.New("send buffer full")

// GatewayHandler is the websocket entry point. It authenticates the
// session, binds the connection to the relay, decodes the closed inbound
// action set and guarantees exactly one Disconnect per connection.
type GatewayHandler struct {
	relay    *Relay
	sessions repository.SessionStore
}

// NewGatewayHandler create GatewayHandler. sessions may be nil to skip
// the revocation check (tests).
func NewGatewayHandler(relay *Relay, sessions repository.SessionStore) *GatewayHandler {
	return &GatewayHandler{
		relay:    relay,
		sessions: sessions,
	}
}

// wsSink pushes envelopes to a buffered channel drained by a single
// writer goroutine, so a slow browser never blocks the relay loop and
// all writes to the socket come from one place.
type wsSink struct {
	conn *websocket.Conn
	ch   chan domain.Envelope
	once sync.Once
}

func newWSSink(conn *websocket.Conn) *wsSink {
	s := &wsSink{
		conn: conn,
		ch:   make(chan domain.Envelope, sendBufferSize),
	}
	go s.writePump()
	return s
}

// Send implements domain.EventSink. A full buffer counts as a failed
// delivery; the relay logs it and moves on.
func (s *wsSink) Send(evt domain.Envelope) error {
	select {
	case s.ch <- evt:
		return nil
	default:
		return errSendBufferFull
	}
}

func (s *wsSink) writePump() {
	for evt := range s.ch {
		b, err := json.Marshal(evt)
		if err != nil {
			logger.Log.Errorf("marshal envelope error:", err)
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			logger.Log.Errorf("write message error:", err)
			return
		}
	}
}

func (s *wsSink) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// HandleConnection is the entry point for one websocket session. The JWT
// middleware already resolved the user; the session store check rejects
// revoked tokens before any relay state is touched.
func (h *GatewayHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	username, _ := conn.Locals(middlewares.TokenUsername).(string)
	if userID == "" {
		logger.Log.Warn("websocket connection without user identity")
		conn.Close()
		return
	}

	if h.sessions != nil {
		tokenStr := conn.Query(middlewares.QueryToken)
		if tokenStr == "" {
			tokenStr = conn.Cookies(middlewares.CookieToken)
		}
		if _, err := h.sessions.Find(ctx, tokenStr); err != nil {
			logger.Log.Warn("websocket session rejected",
				zap.String("userID", userID),
				zap.Error(err),
			)
			conn.Close()
			return
		}
		if err := h.sessions.Touch(ctx, tokenStr); err != nil {
			logger.Log.Debug("session touch failed", zap.String("userID", userID), zap.Error(err))
		}
	}

	connID := uuid.New().String()
	sink := newWSSink(conn)

	c := &Connection{
		ID:       connID,
		UserID:   userID,
		Username: username,
		Sink:     sink,
	}
	if err := h.relay.Connect(c); err != nil {
		sink.close()
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected",
		zap.String("connID", connID),
		zap.String("userID", userID),
	)

	defer func() {
		// Exactly once per connection, also on abnormal network loss.
		h.relay.Disconnect(connID)
		sink.close()
		conn.Close()
		logger.Log.Info("websocket closed",
			zap.String("connID", connID),
			zap.String("userID", userID),
		)
	}()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("websocket close", zap.String("connID", connID))
			} else {
				logger.Log.Debug("websocket read error", zap.String("connID", connID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.dispatch(connID, sink, message)
	}
}

// dispatch validate the raw frame and hand the typed operation to the
// relay. Malformed frames never reach the core.
func (h *GatewayHandler) dispatch(connID string, sink *wsSink, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(sink, "malformed request")
		return
	}

	switch domain.Action(req.Action) {
	case domain.JoinRoom:
		if req.RoomID == "" {
			h.sendError(sink, "join_room requires room_id")
			return
		}
		h.relay.JoinRoom(connID, req.RoomID)

	case domain.LeaveRoom:
		if req.RoomID == "" {
			h.sendError(sink, "leave_room requires room_id")
			return
		}
		h.relay.LeaveRoom(connID, req.RoomID)

	case domain.SendMessage:
		if req.RoomID == "" || req.Content == "" {
			h.sendError(sink, "send_message requires room_id and content")
			return
		}
		h.relay.SendMessage(connID, req.RoomID, req.Content)

	case domain.Typing:
		if req.RoomID == "" {
			h.sendError(sink, "typing requires room_id")
			return
		}
		h.relay.Typing(connID, req.RoomID, req.IsTyping)

	case domain.MarkRead:
		if req.RoomID == "" {
			h.sendError(sink, "mark_read requires room_id")
			return
		}
		h.relay.MarkRead(connID, req.RoomID)

	default:
		h.sendError(sink, "unknown action")
	}
}

func (h *GatewayHandler) sendError(sink *wsSink, errorMsg string) {
	evt := domain.Envelope{
		Event: domain.ErrorEvent,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
	if err := sink.Send(evt); err != nil {
		logger.Log.Warn("send error notice failed", zap.Error(err))
	}
}
