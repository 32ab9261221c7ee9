// Package api exposes the listing, favorite and chat services over HTTP.
//
// The acting user is taken from the X-User-ID and X-User-Name headers; an
// upstream gateway is expected to authenticate and set them.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/propsync/internal/chat"
	"github.com/roach88/propsync/internal/favorite"
	"github.com/roach88/propsync/internal/listing"
	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// User headers.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

var errNoUser = errors.New(HeaderUserID + " header is required")

// Server routes HTTP requests to the services.
type Server struct {
	listings  *listing.Repository
	favorites *favorite.Tracker
	chat      *chat.Service
	logger    *slog.Logger
	router    *mux.Router
}

// New builds a Server and registers its routes.
func New(listings *listing.Repository, favorites *favorite.Tracker, chatSvc *chat.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		listings:  listings,
		favorites: favorites,
		chat:      chatSvc,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)

	r.HandleFunc("/listings", s.handleListListings).Methods(http.MethodGet)
	r.HandleFunc("/listings", s.handleCreateListing).Methods(http.MethodPost)
	r.HandleFunc("/listings/locations", s.handleRecentLocations).Methods(http.MethodGet)
	r.HandleFunc("/listings/sync", s.handleSyncListings).Methods(http.MethodPost)
	r.HandleFunc("/listings/pending", s.handlePendingCount).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}", s.handleGetListing).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}", s.handleRemoveListing).Methods(http.MethodDelete)
	r.HandleFunc("/listings/{id}/status", s.handleSetStatus).Methods(http.MethodPut)

	r.HandleFunc("/favorites", s.handleFetchFavorites).Methods(http.MethodGet)
	r.HandleFunc("/favorites/{listingID}", s.handleIsFavorite).Methods(http.MethodGet)
	r.HandleFunc("/favorites/{listingID}/toggle", s.handleToggleFavorite).Methods(http.MethodPost)

	r.HandleFunc("/chats/{listingID}/{recipientID}/messages", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/chats/{listingID}/{recipientID}/messages", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/chats/{listingID}/{recipientID}/stream", s.handleStream).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the recorder.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func userFrom(r *http.Request) (model.User, error) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return model.User{}, errNoUser
	}
	return model.User{ID: id, Name: r.Header.Get(HeaderUserName)}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoUser):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidListing),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrEmptyMessage),
		errors.Is(err, chat.ErrMissingParticipant),
		errors.Is(err, favorite.ErrEmptyListingID),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, listing.ErrRemoteMutation),
		errors.Is(err, remote.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
