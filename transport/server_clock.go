package transport

import (
	"sync"
	"time"
)

// ServerClock estimates the server's time from the server times stamped on
// received frames, advanced by local wall time since the newest one arrived.
// It is safe for concurrent use.
type ServerClock struct {
	mu         sync.Mutex
	now        func() time.Time
	serverTime float64
	receivedAt time.Time
	synced     bool
}

// NewServerClock returns a clock reading wall time from now, or time.Now
// when now is nil.
func NewServerClock(now func() time.Time) *ServerClock {
	if now == nil {
		now = time.Now
	}
	return &ServerClock{now: now}
}

// Observe records a server timestamp received just now. Timestamps older than
// the newest observed one are ignored.
func (sc *ServerClock) Observe(serverTime float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.synced && serverTime <= sc.serverTime {
		return
	}
	sc.serverTime = serverTime
	sc.receivedAt = sc.now()
	sc.synced = true
}

// Time is the estimated current server time, or 0 before the first frame.
func (sc *ServerClock) Time() float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.synced {
		return 0
	}
	return sc.serverTime + sc.now().Sub(sc.receivedAt).Seconds()
}

func (sc *ServerClock) Synced() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.synced
}
