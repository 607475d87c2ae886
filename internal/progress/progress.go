// Package progress tracks how far a streaming load has come.
package progress

import (
	"sync"
	"time"

	"github.com/matsen/cloudscope/internal/topology"
)

// Progress is the load state shown to the user.
type Progress struct {
	LoadedNodes int       `json:"loadedNodes"`
	TotalNodes  int       `json:"totalNodes"`
	StartedAt   time.Time `json:"startedAt"`
	ElapsedMs   int64     `json:"elapsedMs"`
	DurationMs  int64     `json:"durationMs"` // zero until Done
	Done        bool      `json:"done"`
}

// Fraction returns LoadedNodes/TotalNodes in [0, 1]. An empty load counts as complete once done.
func (p Progress) Fraction() float64 {
	if p.TotalNodes == 0 {
		if p.Done {
			return 1
		}
		return 0
	}
	return float64(p.LoadedNodes) / float64(p.TotalNodes)
}

// Tracker derives Progress from the chunks of one load.
type Tracker struct {
	mu    sync.Mutex
	clock func() time.Time
	p     Progress
}

// NewTracker creates a tracker. A nil clock means time.Now.
func NewTracker(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{clock: clock}
}

// Start begins a new load of total nodes, discarding previous state.
func (t *Tracker) Start(total int) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.p = Progress{TotalNodes: total, StartedAt: t.clock()}
	return t.p
}

// Advance records a merged chunk. After the final chunk the state is frozen
// and further calls return it unchanged.
func (t *Tracker) Advance(c topology.Chunk) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.p.Done {
		return t.p
	}

	t.p.LoadedNodes += len(c.Nodes)
	t.p.ElapsedMs = t.clock().Sub(t.p.StartedAt).Milliseconds()
	if c.Done {
		t.p.DurationMs = t.p.ElapsedMs
		t.p.Done = true
	}
	return t.p
}

// Current returns the latest progress.
func (t *Tracker) Current() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
