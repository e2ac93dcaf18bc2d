package ratelimit

import (
	"sync"
	"time"
)

// Directory is the local view of who is banned and until when. Every
// gateway instance keeps its own copy, fed from the shared redis stream, so
// the hot path never waits on redis.
type Directory struct {
	mu     sync.RWMutex
	untils map[string]int64
}

// Entry is one ban action on the redis stream.
type Entry struct {
	User   string `gtrs:"user"`
	Action string `gtrs:"action"`
	Until  int64  `gtrs:"until"`
}

func NewDirectory() *Directory {
	return &Directory{
		untils: make(map[string]int64),
	}
}

// Check returns the time the user is banned until, or the zero time when
// they are not banned.
func (d *Directory) Check(user string) time.Time {
	d.mu.RLock()
	val, ok := d.untils[user]
	d.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return time.Unix(val, 0)
}

// Ban records a ban for the entry's user. A zero until unbans; an until in
// the past is a no-op.
func (d *Directory) Ban(e *Entry) {
	if e.Until == 0 {
		d.mu.Lock()
		delete(d.untils, e.User)
		d.mu.Unlock()
		return
	}
	now := time.Now()
	if e.Until < now.Unix() {
		return
	}
	d.mu.Lock()
	d.untils[e.User] = e.Until
	d.mu.Unlock()
}
