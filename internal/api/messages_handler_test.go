package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

func idPath(id string) map[string]string {
	return map[string]string{"id": id}
}

func TestMessagesHandler_List(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewMessagesHandler(service)

	rr := httptest.NewRecorder()
	handler.List(rr, newRequest(http.MethodGet, "/api/v1/messages", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	messages := decodeResponse[[]models.Message](t, rr)
	require.Len(t, messages, 8)
	assert.Equal(t, int64(3), messages[0].ID)
	assert.Equal(t, int64(8), messages[7].ID)
}

func TestMessagesHandler_Send(t *testing.T) {
	t.Run("creates a new thread for a fresh compose", func(t *testing.T) {
		service, notifier := newTestService(t)
		handler := NewMessagesHandler(service)

		rr := httptest.NewRecorder()
		handler.Send(rr, newRequest(http.MethodPost, "/api/v1/messages", jsonBody(t, models.SendRequest{
			To:       []string{"lisa.wang@enterprise.net"},
			Subject:  "Pricing follow-up",
			Body:     "Hi Lisa, here are the tiers.",
			Priority: "high",
		}), nil))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		msg := decodeResponse[models.Message](t, rr)
		assert.Equal(t, int64(9), msg.ID)
		assert.Equal(t, "thread_1706788800000", msg.ThreadID)
		assert.Equal(t, testMailbox, msg.From)
		assert.True(t, msg.IsRead)
		assert.Equal(t, models.PriorityHigh, msg.Priority)
		require.NotNil(t, msg.ContactID)
		assert.Equal(t, int64(5), *msg.ContactID)
		assert.Equal(t, []string{"thread_1706788800000"}, notifier.updated)
	})

	t.Run("joins the thread of a reply", func(t *testing.T) {
		service, _ := newTestService(t)
		handler := NewMessagesHandler(service)

		rr := httptest.NewRecorder()
		handler.Send(rr, newRequest(http.MethodPost, "/api/v1/messages", jsonBody(t, models.SendRequest{
			To:       []string{"sarah.johnson@techcorp.com"},
			Subject:  "RE: Q1 Budget Review",
			Body:     "Thanks Sarah.",
			ThreadID: "thread_q1_budget",
		}), nil))

		require.Equal(t, http.StatusCreated, rr.Code)
		messages, err := service.ThreadMessages(t.Context(), "thread_q1_budget")
		require.NoError(t, err)
		assert.Len(t, messages, 4)
	})

	t.Run("rejects invalid requests without storing", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"no recipients", `{"to":[],"subject":"s","body":"b"}`},
			{"blank subject", `{"to":["a@b.com"],"subject":"  ","body":"b"}`},
			{"empty body", `{"to":["a@b.com"],"subject":"s","body":""}`},
			{"unknown priority", `{"to":["a@b.com"],"subject":"s","body":"b","priority":"urgent"}`},
			{"malformed JSON", `{"to":`},
			{"unknown field", `{"to":["a@b.com"],"subject":"s","body":"b","folder":"x"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				service, notifier := newTestService(t)
				handler := NewMessagesHandler(service)

				rr := httptest.NewRecorder()
				handler.Send(rr, newRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(tt.body), nil))

				assert.Equal(t, http.StatusBadRequest, rr.Code)
				all, err := service.ListMessages(t.Context())
				require.NoError(t, err)
				assert.Len(t, all, 8)
				assert.Empty(t, notifier.updated)
			})
		}
	})
}

func TestMessagesHandler_Get(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewMessagesHandler(service)

	t.Run("returns the message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Get(rr, newRequest(http.MethodGet, "/api/v1/messages/4", nil, idPath("4")))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Enterprise plan demo", decodeResponse[models.Message](t, rr).Subject)
	})

	t.Run("returns 404 for an unknown id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Get(rr, newRequest(http.MethodGet, "/api/v1/messages/99", nil, idPath("99")))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("returns 400 for a bad id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Get(rr, newRequest(http.MethodGet, "/api/v1/messages/abc", nil, idPath("abc")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestMessagesHandler_Update(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewMessagesHandler(service)

	t.Run("changes only the given fields", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Update(rr, newRequest(http.MethodPatch, "/api/v1/messages/7",
			strings.NewReader(`{"subject":"Onboarding moved","priority":"low"}`), idPath("7")))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		msg := decodeResponse[models.Message](t, rr)
		assert.Equal(t, "Onboarding moved", msg.Subject)
		assert.Equal(t, models.PriorityLow, msg.Priority)
		assert.True(t, msg.IsRead)
		assert.Equal(t, "thread_onboarding", msg.ThreadID)
	})

	t.Run("rejects a blank subject", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Update(rr, newRequest(http.MethodPatch, "/api/v1/messages/7",
			strings.NewReader(`{"subject":""}`), idPath("7")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 404 for an unknown id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Update(rr, newRequest(http.MethodPatch, "/api/v1/messages/99",
			strings.NewReader(`{"isStarred":true}`), idPath("99")))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestMessagesHandler_Delete(t *testing.T) {
	service, notifier := newTestService(t)
	handler := NewMessagesHandler(service)

	t.Run("removing the last message removes the thread", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Delete(rr, newRequest(http.MethodDelete, "/api/v1/messages/8", nil, idPath("8")))

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, []string{"thread_pricing_question"}, notifier.deleted)

		list, err := service.ListThreads(t.Context())
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})

	t.Run("deleting twice returns 404", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Delete(rr, newRequest(http.MethodDelete, "/api/v1/messages/8", nil, idPath("8")))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestMessagesHandler_Flags(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewMessagesHandler(service)

	call := func(t *testing.T, h http.HandlerFunc, id string) models.Message {
		t.Helper()
		rr := httptest.NewRecorder()
		h(rr, newRequest(http.MethodPost, "/api/v1/messages/"+id, nil, idPath(id)))
		require.Equal(t, http.StatusOK, rr.Code)
		return decodeResponse[models.Message](t, rr)
	}

	t.Run("mark read and unread", func(t *testing.T) {
		assert.True(t, call(t, handler.MarkRead, "4").IsRead)
		assert.False(t, call(t, handler.MarkUnread, "4").IsRead)
	})

	t.Run("toggle star flips only the target message", func(t *testing.T) {
		assert.True(t, call(t, handler.ToggleStar, "1").IsStarred)

		sibling, err := service.Get(t.Context(), 3)
		require.NoError(t, err)
		assert.False(t, sibling.IsStarred)

		assert.False(t, call(t, handler.ToggleStar, "1").IsStarred)
	})
}
