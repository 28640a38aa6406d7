package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/domain"
	"github.com/goevery/gateway/internal/handler"
	"github.com/goevery/gateway/internal/ierr"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RESTServer struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator

	publishHandler  handler.PublishHandlerInterface
	presenceHandler handler.PresenceHandlerInterface
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	publishHandler handler.PublishHandlerInterface,
	presenceHandler handler.PresenceHandlerInterface,
) *RESTServer {
	return &RESTServer{
		logger,
		authenticator,
		publishHandler,
		presenceHandler,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.Handle("/events", s.requireAPIKey(http.HandlerFunc(s.publish))).
		Methods(http.MethodPost)
	router.Handle("/users/{userId}/presence", s.requireAPIKey(http.HandlerFunc(s.presence))).
		Methods(http.MethodGet)
}

func (s *RESTServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		authentication, err := s.authenticator.AuthenticateAPIKey(strings.TrimSpace(apiKey))
		if err != nil {
			s.writeError(w, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAuthentication(r.Context(), authentication)))
	})
}

func (s *RESTServer) publish(w http.ResponseWriter, r *http.Request) {
	var publishRequest handler.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&publishRequest); err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))

		return
	}

	publishResponse, err := s.publishHandler.Handle(r.Context(), publishRequest)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusAccepted, publishResponse)
}

func (s *RESTServer) presence(w http.ResponseWriter, r *http.Request) {
	userId, err := domain.ParseID(mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid userId")))

		return
	}

	presenceResponse, err := s.presenceHandler.UserPresence(r.Context(), handler.UserPresenceRequest{UserId: userId})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, presenceResponse)
}

type errorResponse struct {
	Error ierr.Error `json:"error"`
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("error in rest handler", zap.Error(err))
		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, httpStatus(handlerErr.Code), errorResponse{Error: handlerErr})
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func httpStatus(code ierr.ErrorCode) int {
	switch code {
	case ierr.ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case ierr.ErrorCodeNotFound:
		return http.StatusNotFound
	case ierr.ErrorCodeFailedPrecondition:
		return http.StatusConflict
	case ierr.ErrorCodePermissionDenied:
		return http.StatusForbidden
	case ierr.ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
