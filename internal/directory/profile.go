package directory

import "sync"

// Profile is the current-user context shared by both directories. It exposes
// the logged-in user's id and account; the directories only ever read it, the
// session swaps it.
type Profile struct {
	mu      sync.RWMutex
	id      int64
	account string
}

// NewProfile creates a profile for the given logged-in user.
func NewProfile(id int64, account string) *Profile {
	return &Profile{id: id, account: account}
}

// UserID returns the logged-in user's member id.
func (p *Profile) UserID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// Account returns the logged-in user's account handle.
func (p *Profile) Account() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.account
}

// Swap replaces the logged-in user.
func (p *Profile) Swap(id int64, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
	p.account = account
}
