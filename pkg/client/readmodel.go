package client

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight means the same control already has a request outstanding.
// Advisory only; independent controls may still race and the server
// resolves them.
var ErrInFlight = errors.New("request already in flight for this record")

// VerifyAPI is the slice of the API the verification model needs.
// Tests inject a fake; production uses *Client.
type VerifyAPI interface {
	AdminToggleVerify(ctx context.Context, resource, id string) error
	AdminListUsers(ctx context.Context, search string, limit, offset int) ([]User, error)
}

type undoEntry struct {
	id   string
	prev bool
}

// VerificationModel is the locally cached admin user verification
// table. Toggling is optimistic: the local flag flips immediately, and
// a failed server call restores the pre-mutation value and refetches.
type VerificationModel struct {
	api VerifyAPI

	mu         sync.Mutex
	records    []User
	undo       []undoEntry
	submitting map[string]bool
}

func NewVerificationModel(api VerifyAPI) *VerificationModel {
	return &VerificationModel{
		api:        api,
		submitting: map[string]bool{},
	}
}

// Reload refetches the full list, discarding local state.
func (m *VerificationModel) Reload(ctx context.Context) error {
	records, err := m.api.AdminListUsers(ctx, "", 0, 0)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records = records
	m.undo = nil
	m.mu.Unlock()
	return nil
}

// Records returns a copy of the cached rows.
func (m *VerificationModel) Records() []User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, len(m.records))
	copy(out, m.records)
	return out
}

func (m *VerificationModel) find(id string) int {
	for i := range m.records {
		if m.records[i].ID == id {
			return i
		}
	}
	return -1
}

// Toggle flips verification for one record. The local value changes
// before the request; on failure it reverts and the list is refetched
// so the cache converges back to the server.
func (m *VerificationModel) Toggle(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.submitting[id] {
		m.mu.Unlock()
		return ErrInFlight
	}
	i := m.find(id)
	if i < 0 {
		m.mu.Unlock()
		return errors.New("no such record: " + id)
	}
	m.submitting[id] = true
	m.undo = append(m.undo, undoEntry{id: id, prev: m.records[i].Verified})
	m.records[i].Verified = !m.records[i].Verified
	m.mu.Unlock()

	err := m.api.AdminToggleVerify(ctx, "users", id)

	m.mu.Lock()
	delete(m.submitting, id)
	if err != nil {
		// roll back the optimistic flip
		if n := len(m.undo); n > 0 && m.undo[n-1].id == id {
			if j := m.find(id); j >= 0 {
				m.records[j].Verified = m.undo[n-1].prev
			}
			m.undo = m.undo[:n-1]
		}
		m.mu.Unlock()
		_ = m.Reload(ctx)
		return err
	}
	// confirmed; the undo entry is no longer needed
	for n := len(m.undo) - 1; n >= 0; n-- {
		if m.undo[n].id == id {
			m.undo = append(m.undo[:n], m.undo[n+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}
