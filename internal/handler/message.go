package handler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

type CreateMessageHandlerInterface interface {
	Handle(ctx context.Context, params *json.RawMessage) (EmptyResponse, error)
}

// CreateMessageHandler accepts the legacy createMessage frame. Messages are
// created through the HTTP API, so the frame has no effect.
type CreateMessageHandler struct {
	logger *zap.Logger
}

func NewCreateMessageHandler(logger *zap.Logger) *CreateMessageHandler {
	return &CreateMessageHandler{
		logger,
	}
}

func (h *CreateMessageHandler) Handle(ctx context.Context, params *json.RawMessage) (EmptyResponse, error) {
	h.logger.Debug("createMessage ignored")

	return EmptyResponse{}, nil
}
