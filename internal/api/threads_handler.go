package api

import (
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/email"
)

// ThreadsHandler serves the conversation list.
type ThreadsHandler struct {
	service  *email.Service
	pageSize int
}

// NewThreadsHandler creates a new ThreadsHandler instance.
func NewThreadsHandler(service *email.Service, pageSize int) *ThreadsHandler {
	return &ThreadsHandler{
		service:  service,
		pageSize: pageSize,
	}
}

// GetThreads returns one page of thread summaries, most recently active first.
func (h *ThreadsHandler) GetThreads(w http.ResponseWriter, r *http.Request) {
	page, limit := ParsePaginationParams(r, h.pageSize)

	all, err := h.service.ListThreads(r.Context())
	if err != nil {
		writeError(w, "ThreadsHandler", err)
		return
	}

	WriteJSONResponse(w, BuildPaginationResponse(all, page, limit))
}
