package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeVerifyAPI scripts the admin endpoints for the read model.
type fakeVerifyAPI struct {
	serverRecords []User
	toggleErr     error
	toggleCalls   int
	listCalls     int
	block         chan struct{}
}

func (f *fakeVerifyAPI) AdminToggleVerify(ctx context.Context, resource, id string) error {
	f.toggleCalls++
	if f.block != nil {
		<-f.block
	}
	if f.toggleErr != nil {
		return f.toggleErr
	}
	for i := range f.serverRecords {
		if f.serverRecords[i].ID == id {
			f.serverRecords[i].Verified = !f.serverRecords[i].Verified
		}
	}
	return nil
}

func (f *fakeVerifyAPI) AdminListUsers(ctx context.Context, search string, limit, offset int) ([]User, error) {
	f.listCalls++
	out := make([]User, len(f.serverRecords))
	copy(out, f.serverRecords)
	return out, nil
}

func twoUsers() []User {
	return []User{
		{ID: "u-1", Name: "One", Verified: false},
		{ID: "u-2", Name: "Two", Verified: true},
	}
}

func verifiedOf(t *testing.T, m *VerificationModel, id string) bool {
	t.Helper()
	for _, r := range m.Records() {
		if r.ID == id {
			return r.Verified
		}
	}
	t.Fatalf("record %s missing", id)
	return false
}

func TestToggleAppliesOptimisticallyAndConfirms(t *testing.T) {
	api := &fakeVerifyAPI{serverRecords: twoUsers()}
	m := NewVerificationModel(api)
	if err := m.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := m.Toggle(context.Background(), "u-1"); err != nil {
		t.Fatal(err)
	}
	if !verifiedOf(t, m, "u-1") {
		t.Fatal("toggle should flip the local flag")
	}
	if api.toggleCalls != 1 {
		t.Fatalf("toggle calls %d", api.toggleCalls)
	}
	// a confirmed toggle leaves nothing to undo
	if len(m.undo) != 0 {
		t.Fatalf("undo log should be empty, has %d entries", len(m.undo))
	}
}

func TestToggleFailureRevertsAndRefetches(t *testing.T) {
	api := &fakeVerifyAPI{serverRecords: twoUsers(), toggleErr: errors.New("boom")}
	m := NewVerificationModel(api)
	if err := m.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	listsBefore := api.listCalls

	err := m.Toggle(context.Background(), "u-2")
	if err == nil {
		t.Fatal("want the API error surfaced")
	}
	// local value is back to the pre-mutation state
	if !verifiedOf(t, m, "u-2") {
		t.Fatal("failed toggle must revert")
	}
	// and the list was refetched to converge on the server
	if api.listCalls != listsBefore+1 {
		t.Fatalf("want one refetch, got %d", api.listCalls-listsBefore)
	}
}

func TestToggleUnknownRecord(t *testing.T) {
	api := &fakeVerifyAPI{serverRecords: twoUsers()}
	m := NewVerificationModel(api)
	_ = m.Reload(context.Background())

	if err := m.Toggle(context.Background(), "u-ghost"); err == nil {
		t.Fatal("unknown record must error")
	}
	if api.toggleCalls != 0 {
		t.Fatal("unknown record must not reach the API")
	}
}

func TestToggleSameRecordWhileInFlight(t *testing.T) {
	api := &fakeVerifyAPI{serverRecords: twoUsers(), block: make(chan struct{})}
	m := NewVerificationModel(api)
	_ = m.Reload(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Toggle(context.Background(), "u-1") }()

	// wait until the first toggle holds the slot
	for {
		m.mu.Lock()
		waiting := m.submitting["u-1"]
		m.mu.Unlock()
		if waiting {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := m.Toggle(context.Background(), "u-1"); err != ErrInFlight {
		t.Fatalf("want ErrInFlight, got %v", err)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if api.toggleCalls != 1 {
		t.Fatalf("only the first toggle may hit the API, got %d calls", api.toggleCalls)
	}
}
