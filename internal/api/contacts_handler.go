package api

import (
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/contacts"
)

// ContactsHandler exposes the read-only contact directory.
type ContactsHandler struct {
	directory contacts.Directory
}

// NewContactsHandler creates a new ContactsHandler instance.
func NewContactsHandler(directory contacts.Directory) *ContactsHandler {
	return &ContactsHandler{directory: directory}
}

// Search lists contacts matching ?q= by name, email or company.
func (h *ContactsHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "ContactsHandler", err)
		return
	}

	WriteJSONResponse(w, result)
}

func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contact, err := h.directory.ResolveID(r.Context(), id)
	if err != nil {
		writeError(w, "ContactsHandler", err)
		return
	}

	WriteJSONResponse(w, contact)
}
