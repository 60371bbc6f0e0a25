package api

import (
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/email"
)

// ThreadHandler serves a single conversation.
type ThreadHandler struct {
	service *email.Service
}

func NewThreadHandler(service *email.Service) *ThreadHandler {
	return &ThreadHandler{service: service}
}

// GetThread returns the thread's messages, oldest first. Reading does not
// change any flags; clients call MarkRead when the thread is shown.
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("threadId")
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	messages, err := h.service.ThreadMessages(r.Context(), threadID)
	if err != nil {
		writeError(w, "ThreadHandler", err)
		return
	}

	WriteJSONResponse(w, messages)
}

type markedResponse struct {
	Marked int `json:"marked"`
}

// MarkRead marks every unread message of the thread as read. The response is
// written after all updates finished.
func (h *ThreadHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("threadId")
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	marked, err := h.service.MarkThreadRead(r.Context(), threadID)
	if err != nil {
		writeError(w, "ThreadHandler", err)
		return
	}

	WriteJSONResponse(w, markedResponse{Marked: marked})
}
