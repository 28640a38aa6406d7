package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/eventbus"
	"github.com/goevery/gateway/internal/ierr"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PublishRequest struct {
	Topic   string          `json:"topic" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type PublishResponse struct {
	Id          string    `json:"id"`
	Topic       string    `json:"topic"`
	PublishTime time.Time `json:"publishTime"`
}

type PublishHandlerInterface interface {
	Handle(ctx context.Context, req PublishRequest) (PublishResponse, error)
}

// PublishHandler lets trusted producers put domain events on the bus the
// dispatcher consumes.
type PublishHandler struct {
	validator *RequestValidator
	publisher eventbus.Publisher
}

func NewPublishHandler(
	validator *RequestValidator,
	publisher eventbus.Publisher,
) *PublishHandler {
	return &PublishHandler{
		validator,
		publisher,
	}
}

func (h *PublishHandler) Handle(ctx context.Context, req PublishRequest) (PublishResponse, error) {
	authentication, ok := auth.AuthenticationFromContext(ctx)
	if !ok {
		return PublishResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("user not authenticated"))
	}

	if !authentication.IsAdmin {
		return PublishResponse{},
			ierr.New(ierr.ErrorCodePermissionDenied, errors.New("user not authorized to publish events"))
	}

	if err := h.validator.Validate(req); err != nil {
		return PublishResponse{}, err
	}

	if !eventbus.IsTopic(req.Topic) {
		return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown topic: "+req.Topic))
	}

	if err := h.publisher.Publish(ctx, req.Topic, req.Payload); err != nil {
		return PublishResponse{}, err
	}

	return PublishResponse{
		Id:          gonanoid.Must(),
		Topic:       req.Topic,
		PublishTime: time.Now(),
	}, nil
}
