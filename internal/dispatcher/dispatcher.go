package dispatcher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/eventbus"
	"github.com/goevery/gateway/internal/ierr"
	"github.com/goevery/gateway/internal/rpc"
	"github.com/goevery/gateway/internal/store"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, payload json.RawMessage) error

// Dispatcher turns domain events into deliveries. Events are handled one at
// a time in arrival order, so a connection sees them in that order too.
type Dispatcher struct {
	logger        *zap.Logger
	registry      broadcaster.Registry
	conversations store.ConversationFinder

	handlers map[string]handlerFunc
}

func NewDispatcher(
	logger *zap.Logger,
	registry broadcaster.Registry,
	conversations store.ConversationFinder,
) *Dispatcher {
	d := &Dispatcher{
		logger:        logger,
		registry:      registry,
		conversations: conversations,
	}

	d.handlers = map[string]handlerFunc{
		eventbus.TopicMessageCreate:      d.handleMessageCreate,
		eventbus.TopicMessageUpdate:      d.handleMessageUpdate,
		eventbus.TopicMessageDelete:      d.handleMessageDelete,
		eventbus.TopicConversationCreate: d.handleConversationCreate,
		eventbus.TopicGroupMessageCreate: d.handleGroupMessageCreate,
		eventbus.TopicGroupMessageUpdate: d.handleGroupMessageUpdate,
		eventbus.TopicGroupMessageDelete: d.handleGroupMessageDelete,
		eventbus.TopicGroupCreate:        d.handleGroupCreate,
		eventbus.TopicGroupUserAdd:       d.handleGroupUserAdd,
		eventbus.TopicGroupUserRemove:    d.handleGroupUserRemove,
		eventbus.TopicGroupOwnerUpdate:   d.handleGroupOwnerUpdate,
		eventbus.TopicGroupUserLeave:     d.handleGroupUserLeave,
	}

	return d
}

// Run consumes events until the subscription ends.
func (d *Dispatcher) Run(ctx context.Context, subscriber eventbus.Subscriber) error {
	events, err := subscriber.Subscribe(ctx)
	if err != nil {
		return err
	}

	d.logger.Info("event dispatcher started")

	for event := range events {
		if err := d.Dispatch(ctx, event); err != nil {
			d.logger.Warn("event dropped",
				zap.String("topic", event.Topic),
				zap.Error(err))
		}
	}

	d.logger.Info("event dispatcher stopped")

	return ctx.Err()
}

func (d *Dispatcher) Dispatch(ctx context.Context, event eventbus.Event) error {
	handler, ok := d.handlers[event.Topic]
	if !ok {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown topic: "+event.Topic))
	}

	return handler(ctx, event.Payload)
}

func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid payload: "+err.Error()))
	}

	return v, nil
}

func requireIds(ids map[string]domain.ID) error {
	for field, id := range ids {
		if id <= 0 {
			return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing "+field))
		}
	}

	return nil
}

func (d *Dispatcher) findConversation(ctx context.Context, id domain.ID) (domain.Conversation, bool, error) {
	conversation, ok, err := d.conversations.FindConversationById(ctx, id)
	if err != nil {
		return domain.Conversation{}, false, err
	}

	if !ok {
		d.logger.Debug("conversation not found, dropping event",
			zap.Stringer("conversationId", id))
	}

	return conversation, ok, nil
}

func (d *Dispatcher) handleMessageCreate(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.CreateMessageEvent](payload)
	if err != nil {
		return err
	}

	message := event.Message
	if err := requireIds(map[string]domain.ID{
		"message.author.id":                 message.Author.Id,
		"message.conversation.creator.id":   message.Conversation.Creator.Id,
		"message.conversation.recipient.id": message.Conversation.Recipient.Id,
	}); err != nil {
		return err
	}

	authorId := message.Author.Id
	d.registry.Deliver(broadcaster.ToUsers(rpc.EventMessage, payload,
		authorId, message.Conversation.Counterpart(authorId)))

	return nil
}

func (d *Dispatcher) handleMessageUpdate(ctx context.Context, payload json.RawMessage) error {
	message, err := decode[domain.Message](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{
		"author.id":       message.Author.Id,
		"conversation.id": message.Conversation.Id,
	}); err != nil {
		return err
	}

	conversation, ok, err := d.findConversation(ctx, message.Conversation.Id)
	if err != nil || !ok {
		return err
	}

	authorId := message.Author.Id
	d.registry.Deliver(broadcaster.ToUsers(rpc.EventMessageUpdate, payload,
		authorId, conversation.Counterpart(authorId)))

	return nil
}

func (d *Dispatcher) handleMessageDelete(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.DeleteMessageEvent](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{
		"userId":         event.UserId,
		"conversationId": event.ConversationId,
	}); err != nil {
		return err
	}

	conversation, ok, err := d.findConversation(ctx, event.ConversationId)
	if err != nil || !ok {
		return err
	}

	d.registry.Deliver(broadcaster.ToUsers(rpc.EventMessageDelete, payload,
		event.UserId, conversation.Counterpart(event.UserId)))

	return nil
}

func (d *Dispatcher) handleConversationCreate(ctx context.Context, payload json.RawMessage) error {
	conversation, err := decode[domain.Conversation](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{"recipient.id": conversation.Recipient.Id}); err != nil {
		return err
	}

	d.registry.Deliver(broadcaster.ToUsers(rpc.EventConversation, payload, conversation.Recipient.Id))

	return nil
}

func (d *Dispatcher) handleGroupMessageCreate(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.CreateGroupMessageEvent](payload)
	if err != nil {
		return err
	}

	groupId := event.Group.Id
	if groupId == 0 {
		groupId = event.Message.Group.Id
	}

	if err := requireIds(map[string]domain.ID{"group.id": groupId}); err != nil {
		return err
	}

	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupMessage, payload, domain.GroupRoom(groupId)))

	return nil
}

func (d *Dispatcher) handleGroupMessageUpdate(ctx context.Context, payload json.RawMessage) error {
	message, err := decode[domain.GroupMessage](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{"group.id": message.Group.Id}); err != nil {
		return err
	}

	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupMessageUpdate, payload, domain.GroupRoom(message.Group.Id)))

	return nil
}

func (d *Dispatcher) handleGroupMessageDelete(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.DeleteGroupMessageEvent](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{"groupId": event.GroupId}); err != nil {
		return err
	}

	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupMessageDelete, payload, domain.GroupRoom(event.GroupId)))

	return nil
}

// Members may not have joined the group room yet, so each one is
// addressed directly.
func (d *Dispatcher) handleGroupCreate(ctx context.Context, payload json.RawMessage) error {
	group, err := decode[domain.Group](payload)
	if err != nil {
		return err
	}

	memberIds := lo.Map(group.Users, func(user domain.User, _ int) domain.ID {
		return user.Id
	})

	d.registry.Deliver(broadcaster.ToUsers(rpc.EventGroupCreate, payload, memberIds...))

	return nil
}

func (d *Dispatcher) handleGroupUserAdd(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.AddGroupUserEvent](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{
		"group.id": event.Group.Id,
		"user.id":  event.User.Id,
	}); err != nil {
		return err
	}

	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupReceivedNewUser, payload, domain.GroupRoom(event.Group.Id)))
	d.registry.Deliver(broadcaster.ToUsers(rpc.EventGroupUserAdd, payload, event.User.Id))

	return nil
}

func (d *Dispatcher) handleGroupUserRemove(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.RemoveGroupUserEvent](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{
		"group.id": event.Group.Id,
		"user.id":  event.User.Id,
	}); err != nil {
		return err
	}

	room := domain.GroupRoom(event.Group.Id)

	d.registry.Deliver(broadcaster.ToUsers(rpc.EventGroupRemove, payload, event.User.Id))
	d.registry.LeaveUser(room, event.User.Id)
	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupRecipientRemoved, payload, room))

	return nil
}

// The new owner's connections that are outside the room are addressed
// directly; the plan de-duplicates the ones already in it.
func (d *Dispatcher) handleGroupOwnerUpdate(ctx context.Context, payload json.RawMessage) error {
	group, err := decode[domain.Group](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{"id": group.Id}); err != nil {
		return err
	}

	plan := broadcaster.ToRoom(rpc.EventGroupOwnerUpdate, payload, domain.GroupRoom(group.Id))
	if group.Owner.Id > 0 {
		plan.Users = []domain.ID{group.Owner.Id}
	}

	d.registry.Deliver(plan)

	return nil
}

func (d *Dispatcher) handleGroupUserLeave(ctx context.Context, payload json.RawMessage) error {
	event, err := decode[domain.GroupUserLeaveEvent](payload)
	if err != nil {
		return err
	}

	if err := requireIds(map[string]domain.ID{
		"group.id": event.Group.Id,
		"userId":   event.UserId,
	}); err != nil {
		return err
	}

	room := domain.GroupRoom(event.Group.Id)

	d.registry.Deliver(broadcaster.ToUsers(rpc.EventGroupParticipantLeft, payload, event.UserId))
	d.registry.LeaveUser(room, event.UserId)
	d.registry.Deliver(broadcaster.ToRoom(rpc.EventGroupParticipantLeft, payload, room))

	return nil
}
