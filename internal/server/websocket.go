package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/rpc"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

type WebSocketSettings struct {
	PingInterval   time.Duration
	PingTimeout    time.Duration
	SendBufferSize int
}

type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	registry      broadcaster.Registry
	router        *Router
	settings      WebSocketSettings
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	registry broadcaster.Registry,
	router *Router,
	settings WebSocketSettings,
) *WebSocketServer {
	if settings.PingInterval <= 0 {
		settings.PingInterval = 10 * time.Second
	}

	if settings.PingTimeout <= 0 {
		settings.PingTimeout = 15 * time.Second
	}

	return &WebSocketServer{
		logger,
		upgrader,
		authenticator,
		registry,
		router,
		settings,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/websocket", s.handle).Methods(http.MethodGet)
}

// handle admits only connections that carry a valid identity. The request
// goroutine runs the read loop; a second goroutine is the only writer.
func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	authentication, err := s.authenticator.AuthenticateJWT(auth.TokenFromRequest(r))
	if err != nil {
		s.logger.Debug("websocket connection rejected", zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	connection := broadcaster.NewConnection(*authentication, s.settings.SendBufferSize)
	logger := s.logger.With(
		zap.String("connectionId", connection.Id),
		zap.Stringer("userId", connection.UserId))

	if err := s.registry.SetUserConnection(connection); err != nil {
		logger.Error("failed to register connection", zap.Error(err))
		conn.Close()

		return
	}

	logger.Info("websocket connection established")

	replies := make(chan rpc.Response, s.settings.SendBufferSize)
	writerDone := make(chan struct{})

	go s.writePump(logger, conn, connection, replies, writerDone)

	s.registry.Deliver(broadcaster.ToConnection(rpc.EventConnected, struct{}{}, connection.Id))

	ctx := auth.WithAuthentication(r.Context(), authentication)
	ctx = broadcaster.WithConnection(ctx, connection)

	s.readPump(ctx, logger, conn, replies, writerDone)

	s.registry.Disconnect(connection.Id)
	<-writerDone

	logger.Info("websocket connection closed")
}

func (s *WebSocketServer) readPump(
	ctx context.Context,
	logger *zap.Logger,
	conn *websocket.Conn,
	replies chan<- rpc.Response,
	writerDone <-chan struct{},
) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.settings.PingTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.settings.PingTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", zap.Error(err))
			}

			return
		}

		conn.SetReadDeadline(time.Now().Add(s.settings.PingTimeout))

		var request rpc.Request
		if err := json.Unmarshal(data, &request); err != nil || request.Method == "" {
			logger.Warn("malformed frame ignored", zap.Int("size", len(data)))

			continue
		}

		response := s.router.RouteRequest(ctx, request)
		if response == nil {
			continue
		}

		select {
		case replies <- *response:
		case <-writerDone:
			return
		}
	}
}

// writePump closes the socket when the registry closes the send queue or
// a write fails, which in turn ends the read loop.
func (s *WebSocketServer) writePump(
	logger *zap.Logger,
	conn *websocket.Conn,
	connection *broadcaster.Connection,
	replies <-chan rpc.Response,
	writerDone chan<- struct{},
) {
	ticker := time.NewTicker(s.settings.PingInterval)

	defer func() {
		ticker.Stop()
		conn.Close()
		close(writerDone)
	}()

	for {
		select {
		case message, ok := <-connection.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}

			if err := conn.WriteJSON(rpc.NewNotification(message.Event, message.Payload)); err != nil {
				logger.Error("failed to write message",
					zap.String("event", message.Event),
					zap.Error(err))

				return
			}
		case response := <-replies:
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteJSON(response); err != nil {
				logger.Error("failed to write response", zap.Error(err))

				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("failed to write ping", zap.Error(err))

				return
			}
		}
	}
}
