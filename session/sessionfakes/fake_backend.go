package sessionfakes

import (
	"context"
	"sync"

	"github.com/meridianhms/portal-client/session"
)

var _ session.Backend = (*FakeBackend)(nil)

// FakeBackend is an in-memory stand-in for the API client. Fields set the
// canned outcome of each call; counters record how often each endpoint was
// hit so tests can assert no-network properties.
type FakeBackend struct {
	mu sync.Mutex

	LoginResult *session.LoginResult
	LoginErr    error
	LogoutErr   error
	VerifyErr   error

	LoginCalls  int
	LogoutCalls int
	VerifyCalls int

	LastLoginEmail    string
	LastLoginPassword string
	LastLoginRemember bool
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (b *FakeBackend) Login(ctx context.Context, email, password string, remember bool) (*session.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LoginCalls++
	b.LastLoginEmail = email
	b.LastLoginPassword = password
	b.LastLoginRemember = remember
	if b.LoginErr != nil {
		return nil, b.LoginErr
	}
	return b.LoginResult, nil
}

func (b *FakeBackend) Logout(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LogoutCalls++
	return b.LogoutErr
}

func (b *FakeBackend) VerifyToken(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.VerifyCalls++
	return b.VerifyErr
}
