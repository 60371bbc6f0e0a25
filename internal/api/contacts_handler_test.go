package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

func TestContactsHandler(t *testing.T) {
	directory, err := contacts.NewDefault()
	require.NoError(t, err)
	handler := NewContactsHandler(directory)

	t.Run("search by company", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Search(rr, newRequest(http.MethodGet, "/api/v1/contacts?q=techcorp", nil, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		found := decodeResponse[[]models.Contact](t, rr)
		require.Len(t, found, 1)
		assert.Equal(t, "Sarah Johnson", found[0].Name)
	})

	t.Run("get by id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Get(rr, newRequest(http.MethodGet, "/api/v1/contacts/2", nil, idPath("2")))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "michael.chen@innovate.io", decodeResponse[models.Contact](t, rr).Email)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Get(rr, newRequest(http.MethodGet, "/api/v1/contacts/77", nil, idPath("77")))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
