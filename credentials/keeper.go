package credentials

import (
	"github.com/pkg/errors"
)

// Scope selects which of the two storage scopes an operation targets.
type Scope string

const (
	// ScopePersistent survives restarts; chosen when the user ticks
	// "remember me". The browser-storage analog is localStorage.
	ScopePersistent Scope = "persistent"
	// ScopeEphemeral lives for the process only; the analog is
	// sessionStorage.
	ScopeEphemeral Scope = "ephemeral"
)

// Keys used for session state. A session is always written and cleared as the
// token/user/expiry triple together, never partially.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyTokenExpiry     = "tokenExpiry"
	KeyRememberedEmail = "remembered_email"
	KeyRedirectURL     = "redirectUrl"
)

// Store is a single key-value scope.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, bool)
	Remove(key string) error
	Clear() error
}

// Keeper pairs the persistent and ephemeral scopes and adds the auth-aware
// lookups the session layer depends on.
type Keeper struct {
	persistent Store
	ephemeral  Store
}

func New(persistent, ephemeral Store) (*Keeper, error) {
	if persistent == nil {
		return nil, errors.New("[credentials.New] persistent store is required")
	}
	if ephemeral == nil {
		return nil, errors.New("[credentials.New] ephemeral store is required")
	}
	return &Keeper{persistent: persistent, ephemeral: ephemeral}, nil
}

func (k *Keeper) Set(scope Scope, key, value string) error {
	if err := k.store(scope).Set(key, value); err != nil {
		return errors.Wrapf(err, "[Keeper.Set] %s/%s", scope, key)
	}
	return nil
}

func (k *Keeper) Get(scope Scope, key string) (string, bool) {
	return k.store(scope).Get(key)
}

func (k *Keeper) Remove(scope Scope, key string) error {
	if err := k.store(scope).Remove(key); err != nil {
		return errors.Wrapf(err, "[Keeper.Remove] %s/%s", scope, key)
	}
	return nil
}

// GetAuth reads a key from whichever scope holds it, persistent scope first.
// Sessions may have been created under either "remember me" setting, so both
// scopes are consulted.
func (k *Keeper) GetAuth(key string) (string, bool) {
	if v, ok := k.persistent.Get(key); ok {
		return v, true
	}
	return k.ephemeral.Get(key)
}

// ClearAuth empties BOTH scopes entirely, not just the session keys. Partial
// clears risk leaving stale auxiliary data behind, so the reset stays broad.
func (k *Keeper) ClearAuth() error {
	if err := k.persistent.Clear(); err != nil {
		return errors.Wrap(err, "[Keeper.ClearAuth] persistent")
	}
	if err := k.ephemeral.Clear(); err != nil {
		return errors.Wrap(err, "[Keeper.ClearAuth] ephemeral")
	}
	return nil
}

func (k *Keeper) store(scope Scope) Store {
	if scope == ScopePersistent {
		return k.persistent
	}
	return k.ephemeral
}
