package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type fakeSession struct {
	amountCents int64
	description string
	status      SessionStatus
}

// Fake is an in-memory provider for local runs and tests. Sessions start
// unpaid until MarkPaid is called.
type Fake struct {
	mu       sync.Mutex
	baseURL  string
	sessions map[string]*fakeSession
	failWith error
}

func NewFake(publicBaseURL string) *Fake {
	return &Fake{
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		sessions: make(map[string]*fakeSession),
	}
}

func (f *Fake) CreateCheckoutSession(_ context.Context, amountCents int64, description string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}
	id := "cs_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	f.sessions[id] = &fakeSession{amountCents: amountCents, description: description, status: "unpaid"}
	return &Session{ID: id, URL: fmt.Sprintf("%s/fake-checkout/%s", f.baseURL, id)}, nil
}

func (f *Fake) GetSessionStatus(_ context.Context, sessionID string) (SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return "", f.failWith
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.status, nil
}

func (f *Fake) MarkPaid(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.status = SessionStatusPaid
	return nil
}

// FailWith makes every following call return err; nil restores normal
// behaviour.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// Amount returns the charged amount of a session, for assertions.
func (f *Fake) Amount(sessionID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return 0, false
	}
	return s.amountCents, true
}

// Description returns the line description of a session, for assertions.
func (f *Fake) Description(sessionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[sessionID]; ok {
		return s.description
	}
	return ""
}
