package api

import (
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/email"
)

// SearchHandler handles search-related API requests.
type SearchHandler struct {
	service *email.Service
}

// NewSearchHandler creates a new SearchHandler instance.
func NewSearchHandler(service *email.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search returns the messages matching ?q=, newest first. An empty query
// returns every message.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "SearchHandler", err)
		return
	}

	WriteJSONResponse(w, messages)
}
