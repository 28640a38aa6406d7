package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/goevery/gateway/internal/ierr"
)

const (
	TopicMessageCreate      = "message.create"
	TopicMessageUpdate      = "message.update"
	TopicMessageDelete      = "message.delete"
	TopicConversationCreate = "conversation.create"
	TopicGroupMessageCreate = "group.message.create"
	TopicGroupMessageUpdate = "group.message.update"
	TopicGroupMessageDelete = "group.message.delete"
	TopicGroupCreate        = "group.create"
	TopicGroupUserAdd       = "group.user.add"
	TopicGroupUserRemove    = "group.user.remove"
	TopicGroupOwnerUpdate   = "group.owner.update"
	TopicGroupUserLeave     = "group.user.leave"
)

var Topics = []string{
	TopicMessageCreate,
	TopicMessageUpdate,
	TopicMessageDelete,
	TopicConversationCreate,
	TopicGroupMessageCreate,
	TopicGroupMessageUpdate,
	TopicGroupMessageDelete,
	TopicGroupCreate,
	TopicGroupUserAdd,
	TopicGroupUserRemove,
	TopicGroupOwnerUpdate,
	TopicGroupUserLeave,
}

func IsTopic(topic string) bool {
	return slices.Contains(Topics, topic)
}

// Event is a domain event as carried on the bus. The payload stays encoded
// until the dispatcher decodes it into the type of its topic.
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Subscriber interface {
	// Subscribe returns a channel of events that is closed once ctx is done
	// or the bus is closed.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

var ErrClosed = errors.New("event bus closed")

func Encode(topic string, payload any) (json.RawMessage, error) {
	if !IsTopic(topic) {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown topic: "+topic))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	return data, nil
}

// Decode turns a broker message addressed to prefix+topic into an Event.
func Decode(prefix string, name string, data []byte) (Event, error) {
	topic, ok := strings.CutPrefix(name, prefix)
	if !ok || !IsTopic(topic) {
		return Event{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown topic: "+name))
	}

	if !json.Valid(data) {
		return Event{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("payload is not valid json"))
	}

	return Event{
		Topic:   topic,
		Payload: json.RawMessage(slices.Clone(data)),
	}, nil
}
