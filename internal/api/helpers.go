package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/email"
	"github.com/vdavid/flowcrm/backend/internal/models"
	"github.com/vdavid/flowcrm/backend/internal/store"
	"github.com/vdavid/flowcrm/backend/internal/threads"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ParsePaginationParams parses page and limit from query parameters.
// Returns default values (page=1, limit=defaultLimit) if parameters are missing or invalid.
func ParsePaginationParams(r *http.Request, defaultLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	return page, limit
}

// BuildPaginationResponse slices one page out of the full thread list.
func BuildPaginationResponse(all []models.Thread, page, limit int) *models.ThreadsResponse {
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return &models.ThreadsResponse{
		Threads: all[start:end],
		Pagination: models.PaginationInfo{
			TotalCount: len(all),
			Page:       page,
			PerPage:    limit,
		},
	}
}

// WriteJSONResponse encodes v into a buffer first so a failed encoding never
// leaves a half-written 200 response. Returns false if it wrote an error.
func WriteJSONResponse(w http.ResponseWriter, v any) bool {
	return writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
	}
	return true
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseID reads the numeric {id} path value.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// writeError maps a service error to a status code. Not found and validation
// errors carry their message to the client; anything else is logged and
// reported generically.
func writeError(w http.ResponseWriter, component string, err error) {
	switch {
	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, email.ErrThreadNotFound),
		errors.Is(err, contacts.ErrContactNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, email.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, threads.ErrMalformedMessage):
		log.Printf("%s: Stored data is malformed: %v", component, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		log.Printf("%s: Request failed: %v", component, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
