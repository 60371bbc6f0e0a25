package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

func TestSearchHandler_Search(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewSearchHandler(service)

	ids := func(messages []models.Message) []int64 {
		result := make([]int64, 0, len(messages))
		for _, msg := range messages {
			result = append(result, msg.ID)
		}
		return result
	}

	t.Run("matches subject and body ignoring case", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Search(rr, newRequest(http.MethodGet, "/api/v1/search?q=BUDGET", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []int64{3, 2, 1, 8}, ids(decodeResponse[[]models.Message](t, rr)))
	})

	t.Run("matches sender and recipients", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Search(rr, newRequest(http.MethodGet, "/api/v1/search?q=techcorp", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []int64{3, 2, 1}, ids(decodeResponse[[]models.Message](t, rr)))
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Search(rr, newRequest(http.MethodGet, "/api/v1/search", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decodeResponse[[]models.Message](t, rr), 8)
	})

	t.Run("no match returns an empty array", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Search(rr, newRequest(http.MethodGet, "/api/v1/search?q=zzz-nothing", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})
}
