package broadcaster

import (
	"errors"
	"slices"
	"sync"

	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/ierr"
	"go.uber.org/zap"
)

// SessionRegistry maps user identities to their live connections. A user
// may hold several connections at once; each is registered separately.
type SessionRegistry interface {
	SetUserConnection(connection *Connection) error
	GetUserConnection(userId domain.ID) (*Connection, bool)
	GetUserConnections(userId domain.ID) []*Connection
	IsOnline(userId domain.ID) bool
	RemoveUserConnection(userId domain.ID, connectionId string)
}

// RoomManager tracks which connections occupy which rooms. Rooms exist
// while they have at least one occupant.
type RoomManager interface {
	Join(room string, connectionId string) bool
	Leave(room string, connectionId string) bool
	LeaveUser(room string, userId domain.ID) []string
	MembersOf(room string) []*Connection
	IsOccupant(room string, connectionId string) bool
}

type Deliverer interface {
	Deliver(plan Plan) int
}

type Registry interface {
	SessionRegistry
	RoomManager
	Deliverer
	Disconnect(connectionId string)
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections       map[string]*Connection
	connectionsByUser map[domain.ID][]string
	connectionsByRoom map[string]map[string]struct{}
	roomsByConnection map[string]map[string]struct{}
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:            logger,
		connections:       make(map[string]*Connection),
		connectionsByUser: make(map[domain.ID][]string),
		connectionsByRoom: make(map[string]map[string]struct{}),
		roomsByConnection: make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryRegistry) SetUserConnection(connection *Connection) error {
	if connection.UserId <= 0 {
		return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("connection has no user identity"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if connection.State() == StateClosed {
		return ierr.New(ierr.ErrorCodeFailedPrecondition, errors.New("connection is closed"))
	}

	if _, ok := r.connections[connection.Id]; ok {
		return nil
	}

	r.connections[connection.Id] = connection
	r.connectionsByUser[connection.UserId] = append(r.connectionsByUser[connection.UserId], connection.Id)
	connection.setState(StateOpen)

	return nil
}

// GetUserConnection returns the most recently registered live connection.
func (r *InMemoryRegistry) GetUserConnection(userId domain.ID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionIds := r.connectionsByUser[userId]
	if len(connectionIds) == 0 {
		return nil, false
	}

	connection, ok := r.connections[connectionIds[len(connectionIds)-1]]

	return connection, ok
}

func (r *InMemoryRegistry) GetUserConnections(userId domain.ID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionIds := r.connectionsByUser[userId]
	connections := make([]*Connection, 0, len(connectionIds))
	for _, connectionId := range connectionIds {
		if connection, ok := r.connections[connectionId]; ok {
			connections = append(connections, connection)
		}
	}

	return connections
}

func (r *InMemoryRegistry) IsOnline(userId domain.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connectionsByUser[userId]) > 0
}

func (r *InMemoryRegistry) RemoveUserConnection(userId domain.ID, connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connection, ok := r.connections[connectionId]
	if !ok || connection.UserId != userId {
		return
	}

	r.disconnectLocked(connectionId)
}

func (r *InMemoryRegistry) Disconnect(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disconnectLocked(connectionId)
}

func (r *InMemoryRegistry) Join(room string, connectionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connectionId]; !ok {
		return false
	}

	if _, ok := r.connectionsByRoom[room]; !ok {
		r.connectionsByRoom[room] = make(map[string]struct{})
	}

	if _, ok := r.connectionsByRoom[room][connectionId]; ok {
		return false
	}

	r.connectionsByRoom[room][connectionId] = struct{}{}

	if _, ok := r.roomsByConnection[connectionId]; !ok {
		r.roomsByConnection[connectionId] = make(map[string]struct{})
	}

	r.roomsByConnection[connectionId][room] = struct{}{}

	return true
}

func (r *InMemoryRegistry) Leave(room string, connectionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.leaveLocked(room, connectionId)
}

// LeaveUser removes every connection of userId from room and returns the ids
// of the connections that were occupants.
func (r *InMemoryRegistry) LeaveUser(room string, userId domain.ID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for _, connectionId := range r.connectionsByUser[userId] {
		if r.leaveLocked(room, connectionId) {
			left = append(left, connectionId)
		}
	}

	return left
}

func (r *InMemoryRegistry) MembersOf(room string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionIds := r.connectionsByRoom[room]
	members := make([]*Connection, 0, len(connectionIds))
	for connectionId := range connectionIds {
		if connection, ok := r.connections[connectionId]; ok {
			members = append(members, connection)
		}
	}

	return members
}

func (r *InMemoryRegistry) IsOccupant(room string, connectionId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.connectionsByRoom[room][connectionId]

	return ok
}

func (r *InMemoryRegistry) Deliver(plan Plan) int {
	if plan.IsEmpty() {
		return 0
	}

	message := NewMessage(plan.Event, plan.Payload)

	r.mu.RLock()

	targets := r.resolveLocked(plan)

	delivered := 0
	var staleConnectionIds []string

	for _, connection := range targets {
		select {
		case connection.Send <- message:
			delivered++
		default:
			r.logger.Warn("connection send channel is full, closing connection",
				zap.String("connectionId", connection.Id),
				zap.String("event", plan.Event))

			staleConnectionIds = append(staleConnectionIds, connection.Id)
		}
	}

	r.mu.RUnlock()

	if len(staleConnectionIds) == 0 {
		return delivered
	}

	r.mu.Lock()

	for _, connectionId := range staleConnectionIds {
		r.disconnectLocked(connectionId)
	}

	r.mu.Unlock()

	return delivered
}

// IMPORTANT: It must be called only when a lock is already held.
func (r *InMemoryRegistry) resolveLocked(plan Plan) []*Connection {
	seen := make(map[string]struct{})
	for _, connectionId := range plan.Except {
		seen[connectionId] = struct{}{}
	}

	var targets []*Connection
	add := func(connectionId string) {
		if _, ok := seen[connectionId]; ok {
			return
		}

		connection, ok := r.connections[connectionId]
		if !ok {
			return
		}

		seen[connectionId] = struct{}{}
		targets = append(targets, connection)
	}

	for _, connectionId := range plan.Connections {
		add(connectionId)
	}

	for _, userId := range plan.Users {
		for _, connectionId := range r.connectionsByUser[userId] {
			add(connectionId)
		}
	}

	for _, room := range plan.Rooms {
		for connectionId := range r.connectionsByRoom[room] {
			add(connectionId)
		}
	}

	return targets
}

// IMPORTANT: It must be called only when a write lock is already held.
func (r *InMemoryRegistry) leaveLocked(room string, connectionId string) bool {
	roomConnections, ok := r.connectionsByRoom[room]
	if !ok {
		return false
	}

	if _, ok := roomConnections[connectionId]; !ok {
		return false
	}

	delete(roomConnections, connectionId)
	if len(roomConnections) == 0 {
		delete(r.connectionsByRoom, room)
	}

	connectionRooms, ok := r.roomsByConnection[connectionId]
	if !ok {
		panic("inconsistent state: connection not found in roomsByConnection")
	}

	delete(connectionRooms, room)
	if len(connectionRooms) == 0 {
		delete(r.roomsByConnection, connectionId)
	}

	return true
}

// IMPORTANT: It must be called only when a write lock is already held.
func (r *InMemoryRegistry) disconnectLocked(connectionId string) {
	connection, ok := r.connections[connectionId]
	if !ok {
		return
	}

	for room := range r.roomsByConnection[connectionId] {
		roomConnections, ok := r.connectionsByRoom[room]
		if !ok {
			panic("inconsistent state: room not found in connectionsByRoom")
		}

		delete(roomConnections, connectionId)
		if len(roomConnections) == 0 {
			delete(r.connectionsByRoom, room)
		}
	}

	userConnections := slices.DeleteFunc(r.connectionsByUser[connection.UserId], func(id string) bool {
		return id == connectionId
	})
	if len(userConnections) == 0 {
		delete(r.connectionsByUser, connection.UserId)
	} else {
		r.connectionsByUser[connection.UserId] = userConnections
	}

	delete(r.roomsByConnection, connectionId)
	delete(r.connections, connectionId)

	connection.setState(StateClosed)
	close(connection.Send)

	r.logger.Debug("connection removed from registry",
		zap.String("connectionId", connectionId),
		zap.Stringer("userId", connection.UserId))
}
