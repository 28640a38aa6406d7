package store

import (
	"context"

	"github.com/goevery/gateway/internal/domain"
)

// Lookups return found=false when the entity does not exist. An error means
// the lookup itself failed.

type ConversationFinder interface {
	FindConversationById(ctx context.Context, id domain.ID) (domain.Conversation, bool, error)
}

type GroupFinder interface {
	FindGroupById(ctx context.Context, id domain.ID) (domain.Group, bool, error)
}

type FriendFinder interface {
	GetFriends(ctx context.Context, userId domain.ID) ([]domain.Friend, error)
}

type Store interface {
	ConversationFinder
	GroupFinder
	FriendFinder
}
