package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/goevery/gateway/internal/domain"
)

// Store is an in-process store used for local development and tests.
type Store struct {
	mu            sync.RWMutex
	conversations map[domain.ID]domain.Conversation
	groups        map[domain.ID]domain.Group
	friends       []domain.Friend
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[domain.ID]domain.Conversation),
		groups:        make(map[domain.ID]domain.Group),
	}
}

func (s *Store) PutConversation(conversation domain.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conversation.Id] = conversation
}

func (s *Store) PutGroup(group domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group.Id] = group
}

func (s *Store) PutFriend(friend domain.Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.friends = append(s.friends, friend)
}

func (s *Store) FindConversationById(ctx context.Context, id domain.ID) (domain.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[id]

	return conversation, ok, nil
}

func (s *Store) FindGroupById(ctx context.Context, id domain.ID) (domain.Group, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[id]
	if !ok {
		return domain.Group{}, false, nil
	}

	group.Users = slices.Clone(group.Users)

	return group, true, nil
}

func (s *Store) GetFriends(ctx context.Context, userId domain.ID) ([]domain.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var friends []domain.Friend
	for _, friend := range s.friends {
		if friend.Sender.Id == userId || friend.Receiver.Id == userId {
			friends = append(friends, friend)
		}
	}

	return friends, nil
}
