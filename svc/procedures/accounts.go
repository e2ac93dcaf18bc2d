package procedures

import (
	"sync"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
)

// Accounts is the live view of the config-seeded user set. Mutations only
// last until restart, config is the only backing store.
type Accounts struct {
	mu    sync.RWMutex
	users map[string]*config.User
}

func NewAccounts(users []*config.User) *Accounts {
	m := make(map[string]*config.User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &Accounts{users: m}
}

func (T *Accounts) Lookup(username string) (*config.User, bool) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	u, ok := T.users[username]
	return u, ok
}

func (T *Accounts) LookupID(id string) (*config.User, bool) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	for _, u := range T.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// Delete removes the account with the given id. Reports whether anything
// was removed.
func (T *Accounts) Delete(id string) bool {
	T.mu.Lock()
	defer T.mu.Unlock()
	for username, u := range T.users {
		if u.ID == id {
			delete(T.users, username)
			return true
		}
	}
	return false
}
