package bot

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ktsubaki/vrc-group-bot/vrchat"
)

// PendingTTL is how long an in-flight login may wait for its emailed code.
const PendingTTL = 5 * time.Minute

// PendingLogin is an in-progress authentication attempt parked while the user
// fetches the emailed one-time code. The login client keeps the half-open
// session (cookie jar) the verification must complete on.
type PendingLogin struct {
	Username    string
	Password    string
	DiscordUser string
	Client      *vrchat.Client
	CreatedAt   time.Time
}

// PendingLogins maps Discord user ids to at most one in-flight login each.
// Entries expire lazily at consumption time; SweepExpired additionally prunes
// abandoned entries when invoked by the scheduler. A second login attempt for
// the same user overwrites the prior entry (last writer wins).
type PendingLogins struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewPendingLogins creates a table with the given TTL. The sweep is driven
// externally, so no background janitor is started.
func NewPendingLogins(ttl time.Duration) *PendingLogins {
	return &PendingLogins{c: gocache.New(ttl, 0)}
}

// Put parks a pending login for userID, replacing any prior entry.
func (p *PendingLogins) Put(userID string, pl *PendingLogin) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pl.CreatedAt.IsZero() {
		pl.CreatedAt = time.Now().UTC()
	}
	p.c.SetDefault(userID, pl)
}

// Take removes and returns the pending login for userID. An entry past its
// TTL is treated as absent even if it was never swept; consumption happens at
// most once.
func (p *PendingLogins) Take(userID string) (*PendingLogin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.c.Get(userID)
	if !ok {
		return nil, false
	}
	p.c.Delete(userID)
	return v.(*PendingLogin), true
}

// SweepExpired removes every entry older than the TTL, leaving fresher
// entries untouched. Returns the number of entries removed.
func (p *PendingLogins) SweepExpired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	before := p.c.ItemCount()
	p.c.DeleteExpired()
	return before - p.c.ItemCount()
}

// Len returns the number of entries, possibly including expired ones that
// have not yet been swept or consumed.
func (p *PendingLogins) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c.ItemCount()
}
