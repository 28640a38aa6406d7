package handler

import (
	"context"
	"time"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/rpc"
	"go.uber.org/zap"
)

type JoinResponse struct {
	Room      string    `json:"room"`
	Joined    bool      `json:"joined"`
	Timestamp time.Time `json:"timestamp"`
}

type JoinHandlerInterface interface {
	JoinConversation(ctx context.Context, req ConversationRequest) (JoinResponse, error)
	JoinGroup(ctx context.Context, req GroupRequest) (JoinResponse, error)
}

type JoinHandler struct {
	logger    *zap.Logger
	validator *RequestValidator
	registry  broadcaster.Registry
}

func NewJoinHandler(
	logger *zap.Logger,
	validator *RequestValidator,
	registry broadcaster.Registry,
) *JoinHandler {
	return &JoinHandler{
		logger,
		validator,
		registry,
	}
}

func (h *JoinHandler) JoinConversation(ctx context.Context, req ConversationRequest) (JoinResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return JoinResponse{}, err
	}

	return h.join(ctx, domain.ConversationRoom(req.ConversationId), rpc.EventUserJoin, func(userId domain.ID) PeerNotification {
		return PeerNotification{UserId: userId, ConversationId: req.ConversationId}
	})
}

func (h *JoinHandler) JoinGroup(ctx context.Context, req GroupRequest) (JoinResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return JoinResponse{}, err
	}

	return h.join(ctx, domain.GroupRoom(req.GroupId), rpc.EventUserGroupJoin, func(userId domain.ID) PeerNotification {
		return PeerNotification{UserId: userId, GroupId: req.GroupId}
	})
}

// join announces the joiner to the other occupants only when the
// connection was not already in the room.
func (h *JoinHandler) join(
	ctx context.Context,
	room string,
	event string,
	notification func(userId domain.ID) PeerNotification,
) (JoinResponse, error) {
	connection, err := connectionFromContext(ctx)
	if err != nil {
		return JoinResponse{}, err
	}

	joined := h.registry.Join(room, connection.Id)
	if joined {
		h.logger.Debug("connection joined room",
			zap.String("connectionId", connection.Id),
			zap.String("room", room))

		h.registry.Deliver(broadcaster.ToRoom(event, notification(connection.UserId), room).
			Excluding(connection.Id))
	}

	return JoinResponse{
		Room:      room,
		Joined:    joined,
		Timestamp: time.Now(),
	}, nil
}
