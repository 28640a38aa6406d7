package handler

import (
	"context"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/rpc"
	"go.uber.org/zap"
)

type LeaveResponse struct {
	Room string `json:"room"`
	Left bool   `json:"left"`
}

type LeaveHandlerInterface interface {
	LeaveConversation(ctx context.Context, req ConversationRequest) (LeaveResponse, error)
	LeaveGroup(ctx context.Context, req GroupRequest) (LeaveResponse, error)
}

type LeaveHandler struct {
	logger    *zap.Logger
	validator *RequestValidator
	registry  broadcaster.Registry
}

func NewLeaveHandler(
	logger *zap.Logger,
	validator *RequestValidator,
	registry broadcaster.Registry,
) *LeaveHandler {
	return &LeaveHandler{
		logger,
		validator,
		registry,
	}
}

func (h *LeaveHandler) LeaveConversation(ctx context.Context, req ConversationRequest) (LeaveResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return LeaveResponse{}, err
	}

	return h.leave(ctx, domain.ConversationRoom(req.ConversationId), rpc.EventUserLeave, func(userId domain.ID) PeerNotification {
		return PeerNotification{UserId: userId, ConversationId: req.ConversationId}
	})
}

func (h *LeaveHandler) LeaveGroup(ctx context.Context, req GroupRequest) (LeaveResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return LeaveResponse{}, err
	}

	return h.leave(ctx, domain.GroupRoom(req.GroupId), rpc.EventUserGroupLeave, func(userId domain.ID) PeerNotification {
		return PeerNotification{UserId: userId, GroupId: req.GroupId}
	})
}

func (h *LeaveHandler) leave(
	ctx context.Context,
	room string,
	event string,
	notification func(userId domain.ID) PeerNotification,
) (LeaveResponse, error) {
	connection, err := connectionFromContext(ctx)
	if err != nil {
		return LeaveResponse{}, err
	}

	left := h.registry.Leave(room, connection.Id)
	if left {
		h.logger.Debug("connection left room",
			zap.String("connectionId", connection.Id),
			zap.String("room", room))

		h.registry.Deliver(broadcaster.ToRoom(event, notification(connection.UserId), room))
	}

	return LeaveResponse{
		Room: room,
		Left: left,
	}, nil
}
