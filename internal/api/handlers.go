package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roach88/propsync/internal/model"
)

var errBadBody = errors.New("malformed request body")

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listings.ListAll(r.Context()))
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var draft model.ListingDraft
	if err := decodeBody(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}

	l, err := s.listings.Create(r.Context(), draft, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.listings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleRemoveListing(w http.ResponseWriter, r *http.Request) {
	if err := s.listings.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.listings.SetStatus(r.Context(), id, status); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (s *Server) handleSyncListings(w http.ResponseWriter, r *http.Request) {
	res, err := s.listings.SyncPending(r.Context())
	if err != nil {
		s.logger.Warn("sync incomplete", "synced", len(res.Synced), "pending", res.Pending, "error", err)
		writeJSON(w, http.StatusBadGateway, struct {
			errorBody
			Result any `json:"result"`
		}{errorBody{Error: err.Error()}, res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type pendingBody struct {
	Pending int `json:"pending"`
}

func (s *Server) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.listings.PendingCount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingBody{Pending: n})
}

func (s *Server) handleRecentLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.listings.RecentLocations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleFetchFavorites(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.favorites.Fetch(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type favoriteBody struct {
	ListingID string `json:"listing_id"`
	Favorite  bool   `json:"favorite"`
}

func (s *Server) handleIsFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["listingID"]
	fav, err := s.favorites.IsFavorite(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteBody{ListingID: id, Favorite: fav})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.favorites.Toggle(r.Context(), user.ID, mux.Vars(r)["listingID"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req sendRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	m, err := s.chat.Send(r.Context(), vars["listingID"], vars["recipientID"], user, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	msgs, err := s.chat.History(r.Context(), vars["listingID"], vars["recipientID"], user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleStream sends the channel's full message list as a server-sent event
// on open and after every change, until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	vars := mux.Vars(r)
	err = s.chat.Watch(r.Context(), vars["listingID"], vars["recipientID"], user.ID, func(msgs []model.Message) error {
		data, err := json.Marshal(msgs)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: messages\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Debug("chat stream ended", "error", err)
	}
}
