package handler

import (
	"context"
	"testing"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, registry *broadcaster.InMemoryRegistry, userId domain.ID) (*broadcaster.Connection, context.Context) {
	t.Helper()

	connection := broadcaster.NewConnection(auth.Authentication{UserId: userId}, 16)
	require.NoError(t, registry.SetUserConnection(connection))

	return connection, broadcaster.WithConnection(context.Background(), connection)
}

func drain(connection *broadcaster.Connection) []broadcaster.Message {
	var messages []broadcaster.Message
	for {
		select {
		case message := <-connection.Send:
			messages = append(messages, message)
		default:
			return messages
		}
	}
}
