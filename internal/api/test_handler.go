package api

import (
	"net/http"
	"strconv"

	"github.com/vdavid/flowcrm/backend/internal/email"
)

// TestHandler provides test-only endpoints used by E2E tests.
// These endpoints are only registered in test environments.
type TestHandler struct {
	service *email.Service
}

// NewTestHandler creates a new TestHandler instance.
func NewTestHandler(service *email.Service) *TestHandler {
	return &TestHandler{service: service}
}

// AddMessage files a raw RFC 5322 message from the request body as received
// mail. It simulates an incoming email without a mail server. Query
// parameters: threadId joins an existing thread, read=true marks it read.
func (h *TestHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	opts := email.ImportOptions{ThreadID: r.URL.Query().Get("threadId")}
	if raw := r.URL.Query().Get("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid read parameter", http.StatusBadRequest)
			return
		}
		opts.Read = read
	}

	msg, err := h.service.Import(r.Context(), http.MaxBytesReader(w, r.Body, 10*maxBodyBytes), opts)
	if err != nil {
		writeError(w, "TestHandler", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
