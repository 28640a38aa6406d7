package broadcaster

import (
	"slices"
	"time"

	"github.com/goevery/gateway/internal/domain"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Message is one outbound event queued on a connection.
type Message struct {
	Id         string    `json:"id"`
	CreateTime time.Time `json:"createTime"`
	Event      string    `json:"event"`
	Payload    any       `json:"payload"`
}

func NewMessage(event string, payload any) Message {
	return Message{
		Id:         gonanoid.Must(),
		CreateTime: time.Now(),
		Event:      event,
		Payload:    payload,
	}
}

// Plan is the delivery plan of one event. Targets are resolved against the
// registry at delivery time and every resolved connection receives the
// message once, however many targets it matches.
type Plan struct {
	Event   string
	Payload any

	Users       []domain.ID
	Rooms       []string
	Connections []string
	Except      []string
}

func ToUsers(event string, payload any, userIds ...domain.ID) Plan {
	return Plan{Event: event, Payload: payload, Users: userIds}
}

func ToRoom(event string, payload any, room string) Plan {
	return Plan{Event: event, Payload: payload, Rooms: []string{room}}
}

func ToConnection(event string, payload any, connectionId string) Plan {
	return Plan{Event: event, Payload: payload, Connections: []string{connectionId}}
}

func (p Plan) Excluding(connectionIds ...string) Plan {
	p.Except = append(slices.Clone(p.Except), connectionIds...)
	return p
}

func (p Plan) IsEmpty() bool {
	return len(p.Users) == 0 && len(p.Rooms) == 0 && len(p.Connections) == 0
}
