package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

func TestThreadsHandler_GetThreads(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewThreadsHandler(service, 3)

	t.Run("returns the first page, newest activity first", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.GetThreads(rr, newRequest(http.MethodGet, "/api/v1/threads", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		resp := decodeResponse[models.ThreadsResponse](t, rr)
		assert.Equal(t, models.PaginationInfo{TotalCount: 5, Page: 1, PerPage: 3}, resp.Pagination)
		require.Len(t, resp.Threads, 3)
		assert.Equal(t, "thread_q1_budget", resp.Threads[0].ThreadID)
		assert.Equal(t, 3, resp.Threads[0].MessageCount)
		assert.False(t, resp.Threads[0].IsRead)
		assert.Equal(t, int64(3), resp.Threads[0].LastMessage.ID)
		assert.Equal(t, "thread_enterprise_demo", resp.Threads[1].ThreadID)
	})

	t.Run("honors page and limit", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.GetThreads(rr, newRequest(http.MethodGet, "/api/v1/threads?page=2&limit=4", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse[models.ThreadsResponse](t, rr)
		require.Len(t, resp.Threads, 1)
		assert.Equal(t, "thread_pricing_question", resp.Threads[0].ThreadID)
	})
}
