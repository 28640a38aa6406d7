package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/gateway/internal/handler"
	"github.com/goevery/gateway/internal/ierr"
	"github.com/goevery/gateway/internal/rpc"
	"go.uber.org/zap"
)

type Router struct {
	logger *zap.Logger

	heartbeatHandler     handler.HeartbeatHandlerInterface
	joinHandler          handler.JoinHandlerInterface
	leaveHandler         handler.LeaveHandlerInterface
	typingHandler        handler.TypingHandlerInterface
	presenceHandler      handler.PresenceHandlerInterface
	createMessageHandler handler.CreateMessageHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	heartbeatHandler handler.HeartbeatHandlerInterface,
	joinHandler handler.JoinHandlerInterface,
	leaveHandler handler.LeaveHandlerInterface,
	typingHandler handler.TypingHandlerInterface,
	presenceHandler handler.PresenceHandlerInterface,
	createMessageHandler handler.CreateMessageHandlerInterface,
) *Router {
	return &Router{
		logger,
		heartbeatHandler,
		joinHandler,
		leaveHandler,
		typingHandler,
		presenceHandler,
		createMessageHandler,
	}
}

// RouteRequest runs the handler for request and builds its reply. Requests
// without an id never get one; their failures are only logged.
func (r *Router) RouteRequest(ctx context.Context, request rpc.Request) *rpc.Response {
	response, err := r.Handle(ctx, request)
	if err != nil {
		mapped := r.mapError(err)

		if !request.ReplyExpected() {
			r.logger.Debug("request failed",
				zap.String("method", request.Method),
				zap.Error(mapped))

			return nil
		}

		reply := request.ReplyWithError(mapped)

		return &reply
	}

	if !request.ReplyExpected() {
		return nil
	}

	rawJson, err := json.Marshal(response)
	if err != nil {
		reply := request.ReplyWithError(r.mapError(err))

		return &reply
	}

	result := json.RawMessage(rawJson)
	reply := request.Reply(&result)

	return &reply
}

func (r *Router) Handle(ctx context.Context, request rpc.Request) (any, error) {
	switch request.Method {
	case rpc.MethodHeartbeat:
		return r.heartbeatHandler.Handle(), nil
	case rpc.MethodConversationJoin:
		var req handler.ConversationRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.joinHandler.JoinConversation(ctx, req)
	case rpc.MethodConversationLeave:
		var req handler.ConversationRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.leaveHandler.LeaveConversation(ctx, req)
	case rpc.MethodGroupJoin:
		var req handler.GroupRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.joinHandler.JoinGroup(ctx, req)
	case rpc.MethodGroupLeave:
		var req handler.GroupRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.leaveHandler.LeaveGroup(ctx, req)
	case rpc.MethodTypingStart:
		var req handler.ConversationRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.typingHandler.Start(ctx, req)
	case rpc.MethodTypingStop:
		var req handler.ConversationRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.typingHandler.Stop(ctx, req)
	case rpc.MethodGetOnlineGroupUsers:
		var req handler.GroupRequest
		if err := decodeParams(request.Params, &req); err != nil {
			return nil, err
		}

		return r.presenceHandler.OnlineGroupUsers(ctx, req)
	case rpc.MethodGetOnlineFriends:
		return r.presenceHandler.OnlineFriends(ctx)
	case rpc.MethodCreateMessage:
		return r.createMessageHandler.Handle(ctx, request.Params)
	default:
		return nil, ierr.New(ierr.ErrorCodeNotFound, errors.New("method not found: "+request.Method))
	}
}

func (r *Router) mapError(err error) ierr.Error {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) {
		return handlerErr
	}

	r.logger.Error("error in rpc handler", zap.Error(err))

	return ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
}

func decodeParams(params *json.RawMessage, v any) error {
	if params == nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing params"))
	}

	if err := json.Unmarshal(*params, v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid params: "+err.Error()))
	}

	return nil
}
