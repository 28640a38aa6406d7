package broadcaster

import (
	"sync"
	"testing"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnection(t *testing.T, registry *InMemoryRegistry, userId domain.ID) *Connection {
	t.Helper()

	connection := NewConnection(auth.Authentication{UserId: userId}, 16)
	require.NoError(t, registry.SetUserConnection(connection))

	return connection
}

func drain(connection *Connection) []Message {
	var messages []Message
	for {
		select {
		case message, ok := <-connection.Send:
			if !ok {
				return messages
			}
			messages = append(messages, message)
		default:
			return messages
		}
	}
}

func TestInMemoryRegistry_Sessions(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())

	t.Run("offline user is absent", func(t *testing.T) {
		connection, ok := registry.GetUserConnection(99)

		assert.False(t, ok)
		assert.Nil(t, connection)
		assert.False(t, registry.IsOnline(99))
		assert.Empty(t, registry.GetUserConnections(99))
		assert.Equal(t, 0, registry.Deliver(ToUsers("onMessage", nil, 99)))
	})

	t.Run("connection without identity is rejected", func(t *testing.T) {
		connection := NewConnection(auth.Authentication{}, 1)

		err := registry.SetUserConnection(connection)

		assert.True(t, ierr.HasCode(err, ierr.ErrorCodeUnauthenticated))
		assert.Equal(t, StateConnecting, connection.State())
	})

	t.Run("multiple devices accumulate", func(t *testing.T) {
		first := newTestConnection(t, registry, 1)
		second := newTestConnection(t, registry, 1)

		latest, ok := registry.GetUserConnection(1)
		require.True(t, ok)
		assert.Equal(t, second.Id, latest.Id)
		assert.Len(t, registry.GetUserConnections(1), 2)
		assert.True(t, first.IsOpen())

		registry.RemoveUserConnection(1, second.Id)

		latest, ok = registry.GetUserConnection(1)
		require.True(t, ok)
		assert.Equal(t, first.Id, latest.Id)

		registry.RemoveUserConnection(1, first.Id)

		assert.False(t, registry.IsOnline(1))
		assert.Equal(t, StateClosed, first.State())
	})

	t.Run("remove ignores mismatched user", func(t *testing.T) {
		connection := newTestConnection(t, registry, 2)

		registry.RemoveUserConnection(3, connection.Id)

		assert.True(t, registry.IsOnline(2))
		registry.Disconnect(connection.Id)
	})

	t.Run("closed connection cannot be registered again", func(t *testing.T) {
		connection := newTestConnection(t, registry, 4)
		registry.Disconnect(connection.Id)

		err := registry.SetUserConnection(connection)

		assert.True(t, ierr.HasCode(err, ierr.ErrorCodeFailedPrecondition))
		assert.False(t, registry.IsOnline(4))
	})
}

func TestInMemoryRegistry_Rooms(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	room := domain.GroupRoom(7)

	t.Run("join is idempotent", func(t *testing.T) {
		connection := newTestConnection(t, registry, 1)

		assert.True(t, registry.Join(room, connection.Id))
		assert.False(t, registry.Join(room, connection.Id))
		assert.Len(t, registry.MembersOf(room), 1)
		assert.True(t, registry.IsOccupant(room, connection.Id))

		registry.Disconnect(connection.Id)
	})

	t.Run("unknown connection cannot join", func(t *testing.T) {
		assert.False(t, registry.Join(room, "missing"))
		assert.Empty(t, registry.MembersOf(room))
	})

	t.Run("join leave join restores single occupant", func(t *testing.T) {
		connection := newTestConnection(t, registry, 1)

		assert.True(t, registry.Join(room, connection.Id))
		assert.True(t, registry.Leave(room, connection.Id))
		assert.False(t, registry.Leave(room, connection.Id))
		assert.Empty(t, registry.MembersOf(room))
		assert.True(t, registry.Join(room, connection.Id))

		members := registry.MembersOf(room)
		require.Len(t, members, 1)
		assert.Equal(t, connection.Id, members[0].Id)

		registry.Disconnect(connection.Id)
	})

	t.Run("disconnect removes connection from every room", func(t *testing.T) {
		connection := newTestConnection(t, registry, 1)
		other := newTestConnection(t, registry, 2)
		conversationRoom := domain.ConversationRoom(3)

		registry.Join(room, connection.Id)
		registry.Join(conversationRoom, connection.Id)
		registry.Join(conversationRoom, other.Id)

		registry.RemoveUserConnection(1, connection.Id)

		assert.False(t, registry.IsOnline(1))
		assert.Empty(t, registry.MembersOf(room))
		assert.False(t, registry.IsOccupant(conversationRoom, connection.Id))
		assert.True(t, registry.IsOccupant(conversationRoom, other.Id))

		registry.Disconnect(other.Id)
	})

	t.Run("leave user removes all devices", func(t *testing.T) {
		first := newTestConnection(t, registry, 5)
		second := newTestConnection(t, registry, 5)
		third := newTestConnection(t, registry, 5)
		registry.Join(room, first.Id)
		registry.Join(room, second.Id)

		left := registry.LeaveUser(room, 5)

		assert.ElementsMatch(t, []string{first.Id, second.Id}, left)
		assert.Empty(t, registry.MembersOf(room))
		assert.Len(t, registry.GetUserConnections(5), 3)

		registry.Disconnect(first.Id)
		registry.Disconnect(second.Id)
		registry.Disconnect(third.Id)
	})
}

func TestInMemoryRegistry_Deliver(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	room := domain.GroupRoom(7)

	t.Run("each connection receives a message once", func(t *testing.T) {
		phone := newTestConnection(t, registry, 1)
		laptop := newTestConnection(t, registry, 1)
		peer := newTestConnection(t, registry, 2)
		registry.Join(room, phone.Id)
		registry.Join(room, peer.Id)

		delivered := registry.Deliver(Plan{
			Event: "onGroupOwnerUpdate",
			Users: []domain.ID{1, 1},
			Rooms: []string{room},
		})

		assert.Equal(t, 3, delivered)
		assert.Len(t, drain(phone), 1)
		assert.Len(t, drain(laptop), 1)
		assert.Len(t, drain(peer), 1)

		registry.Disconnect(phone.Id)
		registry.Disconnect(laptop.Id)
		registry.Disconnect(peer.Id)
	})

	t.Run("excluded connections are skipped", func(t *testing.T) {
		joiner := newTestConnection(t, registry, 1)
		peer := newTestConnection(t, registry, 2)
		registry.Join(room, joiner.Id)
		registry.Join(room, peer.Id)

		delivered := registry.Deliver(ToRoom("userGroupJoin", nil, room).Excluding(joiner.Id))

		assert.Equal(t, 1, delivered)
		assert.Empty(t, drain(joiner))

		messages := drain(peer)
		require.Len(t, messages, 1)
		assert.Equal(t, "userGroupJoin", messages[0].Event)

		registry.Disconnect(joiner.Id)
		registry.Disconnect(peer.Id)
	})

	t.Run("full send queue disconnects the connection", func(t *testing.T) {
		connection := NewConnection(auth.Authentication{UserId: 3}, 1)
		require.NoError(t, registry.SetUserConnection(connection))
		registry.Join(room, connection.Id)

		assert.Equal(t, 1, registry.Deliver(ToUsers("onMessage", nil, 3)))
		assert.Equal(t, 0, registry.Deliver(ToUsers("onMessage", nil, 3)))

		assert.False(t, registry.IsOnline(3))
		assert.Empty(t, registry.MembersOf(room))
		assert.Equal(t, StateClosed, connection.State())
	})

	t.Run("delivery to a closed connection is a no-op", func(t *testing.T) {
		connection := newTestConnection(t, registry, 4)
		registry.Disconnect(connection.Id)

		assert.NotPanics(t, func() {
			assert.Equal(t, 0, registry.Deliver(ToConnection("onMessage", nil, connection.Id)))
		})
	})
}

func TestInMemoryRegistry_ConcurrentTeardown(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	room := domain.GroupRoom(1)

	var connections []*Connection
	for i := 1; i <= 50; i++ {
		connection := NewConnection(auth.Authentication{UserId: domain.ID(i)}, 1024)
		require.NoError(t, registry.SetUserConnection(connection))
		registry.Join(room, connection.Id)
		connections = append(connections, connection)
	}

	var wg sync.WaitGroup
	for _, connection := range connections {
		connection := connection
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Disconnect(connection.Id)
		}()
		go func() {
			defer wg.Done()
			registry.Deliver(ToRoom("onGroupMessage", nil, room))
		}()
	}

	assert.NotPanics(t, wg.Wait)
	assert.Empty(t, registry.MembersOf(room))
}
