package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/turn"
	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	maxBodyBytes = 1 << 20

	// ConversationHeader carries the conversation id of an /api/ask stream,
	// which is generated when the request omits one.
	ConversationHeader = "X-Conversation-Id"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status     types.HealthStatus            `json:"status"`
	Components map[string]types.HealthStatus `json:"components"`
}

type saveRequest struct {
	Name  *string             `json:"name"`
	Turns []conversation.Turn `json:"turns"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeEvent frames one event as a server-sent event.
func writeEvent(w http.ResponseWriter, ev turn.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req turn.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = conversation.NewID()
	}

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(ConversationHeader, req.ConversationID)
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	writable := true
	for ev := range s.asker.Handle(r.Context(), req) {
		if !writable {
			continue
		}
		if err := writeEvent(w, ev); err != nil {
			s.logger.WarnContext(r.Context(), "client stream write failed",
				"conversation_id", req.ConversationID, "error", err)
			writable = false
			continue
		}
		if err := rc.Flush(); err != nil {
			writable = false
		}
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleSaveConversation renames a conversation or replaces its turns.
// An omitted name keeps the stored one; omitted turns keep the stored turns.
func (s *Server) handleSaveConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := conversation.ValidateID(id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var name string
	if req.Name != nil {
		name = *req.Name
	} else {
		existing, err := s.store.Get(r.Context(), id)
		switch {
		case err == nil:
			name = existing.Name
		case !errors.Is(err, conversation.ErrNotFound):
			s.writeStoreError(w, r, err)
			return
		}
	}

	if err := s.store.Save(r.Context(), id, name, req.Turns); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	conv, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, conversation.ErrInvalidID):
		writeError(w, http.StatusBadRequest, conversation.ErrInvalidID.Message)
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, conversation.ErrNotFound.Message)
	default:
		s.logger.ErrorContext(r.Context(), "conversation store failed",
			"path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "conversation storage unavailable")
	}
}

// handleHealth runs every check concurrently and reports 503 when any
// dependency is unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.cfg.HealthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HealthTimeout)
		defer cancel()
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make(map[string]types.HealthStatus, len(s.checks))
	)
	for name, check := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := check(ctx)
			mu.Lock()
			components[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()

	overall := types.Aggregate(components)
	status := http.StatusOK
	if overall.State == types.HealthStateUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: overall, Components: components})
}
