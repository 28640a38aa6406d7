package broadcaster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/domain"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one live client channel. Send is owned by the registry: it is
// only written to and closed while the registry lock is held.
type Connection struct {
	Id         string
	UserId     domain.ID
	Username   string
	CreateTime time.Time
	Send       chan Message

	state atomic.Int32
}

func NewConnection(authentication auth.Authentication, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	return &Connection{
		Id:         gonanoid.Must(),
		UserId:     authentication.UserId,
		Username:   authentication.Username,
		CreateTime: time.Now(),
		Send:       make(chan Message, bufferSize),
	}
}

func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

func (c *Connection) setState(state State) {
	c.state.Store(int32(state))
}

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, conn *Connection) context.Context {
	return context.WithValue(ctx, connectionKey, conn)
}

func ConnectionFromContext(ctx context.Context) (*Connection, bool) {
	conn, ok := ctx.Value(connectionKey).(*Connection)

	return conn, ok
}
