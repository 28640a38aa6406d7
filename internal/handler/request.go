package handler

import (
	"context"
	"errors"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
)

type ConversationRequest struct {
	ConversationId domain.ID `json:"conversationId" validate:"gt=0"`
}

type GroupRequest struct {
	GroupId domain.ID `json:"groupId" validate:"gt=0"`
}

// PeerNotification is sent to the other occupants of a room when a
// connection joins, leaves or types in it.
type PeerNotification struct {
	UserId         domain.ID `json:"userId"`
	ConversationId domain.ID `json:"conversationId,omitempty"`
	GroupId        domain.ID `json:"groupId,omitempty"`
}

// EmptyResponse acknowledges a request that produces no result.
type EmptyResponse struct{}

func connectionFromContext(ctx context.Context) (*broadcaster.Connection, error) {
	connection, ok := broadcaster.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	return connection, nil
}
