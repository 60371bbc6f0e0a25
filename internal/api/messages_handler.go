package api

import (
	"context"
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/email"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

// MessagesHandler serves single-message operations and sending.
type MessagesHandler struct {
	service *email.Service
}

// NewMessagesHandler creates a new MessagesHandler instance.
func NewMessagesHandler(service *email.Service) *MessagesHandler {
	return &MessagesHandler{service: service}
}

// List returns every message, newest first.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(r.Context())
	if err != nil {
		writeError(w, "MessagesHandler", err)
		return
	}
	WriteJSONResponse(w, messages)
}

// Send composes a new message or a reply when threadId is set.
func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.service.Send(r.Context(), req)
	if err != nil {
		writeError(w, "MessagesHandler", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.Get)
}

// Update applies a partial update. Absent fields are left unchanged.
func (h *MessagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.MessageUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.withID(w, r, func(ctx context.Context, id int64) (*models.Message, error) {
		return h.service.Update(ctx, id, update)
	})
}

func (h *MessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, "MessagesHandler", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.MarkRead)
}

func (h *MessagesHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.MarkUnread)
}

func (h *MessagesHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.ToggleStar)
}

// withID runs op for the {id} path value and writes the resulting message.
func (h *MessagesHandler) withID(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*models.Message, error)) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := op(r.Context(), id)
	if err != nil {
		writeError(w, "MessagesHandler", err)
		return
	}

	WriteJSONResponse(w, msg)
}
