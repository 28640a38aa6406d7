package handler

import (
	"context"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/rpc"
)

type TypingHandlerInterface interface {
	Start(ctx context.Context, req ConversationRequest) (EmptyResponse, error)
	Stop(ctx context.Context, req ConversationRequest) (EmptyResponse, error)
}

// TypingHandler relays typing indicators to the rest of a conversation
// room. The sender does not need to occupy the room.
type TypingHandler struct {
	validator *RequestValidator
	registry  broadcaster.Registry
}

func NewTypingHandler(
	validator *RequestValidator,
	registry broadcaster.Registry,
) *TypingHandler {
	return &TypingHandler{
		validator,
		registry,
	}
}

func (h *TypingHandler) Start(ctx context.Context, req ConversationRequest) (EmptyResponse, error) {
	return h.relay(ctx, rpc.EventTypingStart, req)
}

func (h *TypingHandler) Stop(ctx context.Context, req ConversationRequest) (EmptyResponse, error) {
	return h.relay(ctx, rpc.EventTypingStop, req)
}

func (h *TypingHandler) relay(ctx context.Context, event string, req ConversationRequest) (EmptyResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return EmptyResponse{}, err
	}

	connection, err := connectionFromContext(ctx)
	if err != nil {
		return EmptyResponse{}, err
	}

	notification := PeerNotification{
		UserId:         connection.UserId,
		ConversationId: req.ConversationId,
	}

	h.registry.Deliver(broadcaster.ToRoom(event, notification, domain.ConversationRoom(req.ConversationId)).
		Excluding(connection.Id))

	return EmptyResponse{}, nil
}
