package handler

import (
	"context"
	"errors"

	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/ierr"
	"github.com/goevery/gateway/internal/rpc"
	"github.com/goevery/gateway/internal/store"
	"github.com/samber/lo"
)

type OnlineGroupUsersResponse struct {
	OnlineUsers  []domain.User `json:"onlineUsers"`
	OfflineUsers []domain.User `json:"offlineUsers"`
}

type UserPresenceRequest struct {
	UserId domain.ID `json:"userId" validate:"gt=0"`
}

type UserPresenceResponse struct {
	UserId      domain.ID `json:"userId"`
	Online      bool      `json:"online"`
	Connections int       `json:"connections"`
}

type PresenceHandlerInterface interface {
	OnlineGroupUsers(ctx context.Context, req GroupRequest) (OnlineGroupUsersResponse, error)
	OnlineFriends(ctx context.Context) ([]domain.Friend, error)
	UserPresence(ctx context.Context, req UserPresenceRequest) (UserPresenceResponse, error)
}

// PresenceHandler answers presence queries by probing the session registry
// at query time. Query results are emitted to the requesting connection
// only.
type PresenceHandler struct {
	validator *RequestValidator
	registry  broadcaster.Registry
	groups    store.GroupFinder
	friends   store.FriendFinder
}

func NewPresenceHandler(
	validator *RequestValidator,
	registry broadcaster.Registry,
	groups store.GroupFinder,
	friends store.FriendFinder,
) *PresenceHandler {
	return &PresenceHandler{
		validator,
		registry,
		groups,
		friends,
	}
}

func (h *PresenceHandler) OnlineGroupUsers(ctx context.Context, req GroupRequest) (OnlineGroupUsersResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return OnlineGroupUsersResponse{}, err
	}

	connection, err := connectionFromContext(ctx)
	if err != nil {
		return OnlineGroupUsersResponse{}, err
	}

	group, ok, err := h.groups.FindGroupById(ctx, req.GroupId)
	if err != nil {
		return OnlineGroupUsersResponse{}, err
	}

	if !ok {
		return OnlineGroupUsersResponse{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("group not found"))
	}

	if !group.HasMember(connection.UserId) {
		return OnlineGroupUsersResponse{},
			ierr.New(ierr.ErrorCodePermissionDenied, errors.New("user is not a member of this group"))
	}

	online, offline := lo.FilterReject(group.Users, func(user domain.User, _ int) bool {
		return h.registry.IsOnline(user.Id)
	})

	response := OnlineGroupUsersResponse{
		OnlineUsers:  online,
		OfflineUsers: offline,
	}

	h.registry.Deliver(broadcaster.ToConnection(rpc.EventOnlineGroupUsersReceived, response, connection.Id))

	return response, nil
}

func (h *PresenceHandler) OnlineFriends(ctx context.Context) ([]domain.Friend, error) {
	connection, err := connectionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	friends, err := h.friends.GetFriends(ctx, connection.UserId)
	if err != nil {
		return nil, err
	}

	onlineFriends := lo.Filter(friends, func(friend domain.Friend, _ int) bool {
		return h.registry.IsOnline(friend.Other(connection.UserId).Id)
	})

	h.registry.Deliver(broadcaster.ToConnection(rpc.EventOnlineFriends, onlineFriends, connection.Id))

	return onlineFriends, nil
}

func (h *PresenceHandler) UserPresence(ctx context.Context, req UserPresenceRequest) (UserPresenceResponse, error) {
	if err := h.validator.Validate(req); err != nil {
		return UserPresenceResponse{}, err
	}

	connections := h.registry.GetUserConnections(req.UserId)

	return UserPresenceResponse{
		UserId:      req.UserId,
		Online:      len(connections) > 0,
		Connections: len(connections),
	}, nil
}
