// Package contacts resolves email addresses to CRM contacts.
package contacts

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"strings"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

//go:embed fixtures/contacts.json
var defaultFixture []byte

// ErrContactNotFound is returned when no contact matches a lookup.
var ErrContactNotFound = errors.New("contact not found")

// Directory looks up contacts. Lookups may fail for reasons other than a
// missing contact, so callers that treat resolution as optional must not
// depend on the error kind.
type Directory interface {
	ResolveAddress(ctx context.Context, address string) (*models.Contact, error)
	ResolveID(ctx context.Context, id int64) (*models.Contact, error)
	Search(ctx context.Context, query string) ([]models.Contact, error)
}

// Memory is a read-only Directory over a fixed set of contacts.
type Memory struct {
	contacts  []models.Contact
	byAddress map[string]int
	byID      map[int64]int
}

// NewMemory builds a directory from the given contacts.
func NewMemory(contacts []models.Contact) *Memory {
	d := &Memory{
		contacts:  make([]models.Contact, len(contacts)),
		byAddress: make(map[string]int, len(contacts)),
		byID:      make(map[int64]int, len(contacts)),
	}
	copy(d.contacts, contacts)
	for i, c := range d.contacts {
		if key := normalizeAddress(c.Email); key != "" {
			if _, exists := d.byAddress[key]; !exists {
				d.byAddress[key] = i
			}
		}
		d.byID[c.ID] = i
	}
	return d
}

// LoadFixture decodes a JSON array of contacts.
func LoadFixture(r io.Reader) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := json.NewDecoder(r).Decode(&contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}
	return contacts, nil
}

// NewDefault returns a directory holding the contacts bundled with the binary.
func NewDefault() (*Memory, error) {
	contacts, err := LoadFixture(bytes.NewReader(defaultFixture))
	if err != nil {
		return nil, err
	}
	return NewMemory(contacts), nil
}

// ResolveAddress finds the contact owning address. Both bare addresses and
// "Name <address>" forms are accepted, and case is ignored.
func (d *Memory) ResolveAddress(_ context.Context, address string) (*models.Contact, error) {
	key := normalizeAddress(address)
	i, ok := d.byAddress[key]
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrContactNotFound, address)
	}
	c := d.contacts[i]
	return &c, nil
}

// ResolveID returns the contact with the given ID.
func (d *Memory) ResolveID(_ context.Context, id int64) (*models.Contact, error) {
	i, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrContactNotFound, id)
	}
	c := d.contacts[i]
	return &c, nil
}

// Search returns contacts whose name, email or company contains query,
// ignoring case, ordered by name. An empty query returns every contact.
func (d *Memory) Search(_ context.Context, query string) ([]models.Contact, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	result := make([]models.Contact, 0)
	for _, c := range d.contacts {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Company), q) {
			result = append(result, c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	return strings.ToLower(address)
}

var _ Directory = (*Memory)(nil)
