package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/matsen/cloudscope/internal/progress"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
	"golang.org/x/time/rate"
)

// closureRenderer records snapshot sizes and the first closure violation seen.
type closureRenderer struct {
	sizes []int
	err   error
}

func (r *closureRenderer) Render(snap topology.Snapshot) error {
	r.sizes = append(r.sizes, len(snap.Nodes))
	if err := snap.Validate(); err != nil && r.err == nil {
		r.err = err
	}
	return nil
}

func seeded() *topology.Generator {
	return topology.NewGenerator(topology.WithSource(topology.NewSource(7)))
}

func TestLoadStreaming(t *testing.T) {
	r := &closureRenderer{}
	var seen []progress.Progress
	l := New(
		WithGenerator(seeded()),
		WithViewer(viewer.New(r, nil)),
		WithProgressHandler(func(p progress.Progress) { seen = append(seen, p) }),
	)

	res, err := l.LoadStreaming(context.Background(), Request{NodeCount: 10, EdgeProbability: 1, ChunkSize: 4})
	if err != nil {
		t.Fatalf("LoadStreaming() error = %v", err)
	}

	if res.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", res.Chunks)
	}
	if len(res.Snapshot.Nodes) != 10 {
		t.Errorf("got %d nodes, want 10", len(res.Snapshot.Nodes))
	}
	if bad := topology.CheckLocality(res.Snapshot.Edges, topology.LocalityWindow); len(bad) != 0 {
		t.Errorf("edges outside locality window: %v", bad)
	}
	if _, err := uuid.Parse(res.LoadID); err != nil {
		t.Errorf("LoadID %q is not a uuid: %v", res.LoadID, err)
	}

	if diff := cmp.Diff([]int{4, 8, 10}, r.sizes); diff != "" {
		t.Errorf("rendered sizes mismatch (-want +got):\n%s", diff)
	}
	if r.err != nil {
		t.Errorf("intermediate snapshot not closed: %v", r.err)
	}

	var loaded []int
	doneCount := 0
	for _, p := range seen {
		loaded = append(loaded, p.LoadedNodes)
		if p.Done {
			doneCount++
		}
	}
	if diff := cmp.Diff([]int{4, 8, 10}, loaded); diff != "" {
		t.Errorf("loaded nodes mismatch (-want +got):\n%s", diff)
	}
	if doneCount != 1 || !seen[len(seen)-1].Done {
		t.Errorf("done reported %d times, want once on the final chunk", doneCount)
	}
	if !res.Progress.Done || res.Progress.LoadedNodes != 10 {
		t.Errorf("result progress = %+v", res.Progress)
	}
}

func TestLoadStreaming_EmptyGraph(t *testing.T) {
	l := New()
	res, err := l.LoadStreaming(context.Background(), Request{NodeCount: 0, EdgeProbability: 0.5, ChunkSize: 10})
	if err != nil {
		t.Fatalf("LoadStreaming() error = %v", err)
	}
	if res.Chunks != 1 || !res.Progress.Done || !res.Snapshot.IsEmpty() {
		t.Errorf("result = %+v, want one empty done chunk", res)
	}
}

func TestLoadStreaming_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "negative nodes", req: Request{NodeCount: -1, EdgeProbability: 0.1, ChunkSize: 5}, want: topology.ErrNegativeNodeCount},
		{name: "probability above one", req: Request{NodeCount: 5, EdgeProbability: 1.5, ChunkSize: 5}, want: topology.ErrEdgeProbability},
		{name: "zero chunk size", req: Request{NodeCount: 5, EdgeProbability: 0.1, ChunkSize: 0}, want: topology.ErrChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			l := New(WithProgressHandler(func(progress.Progress) { called = true }))

			_, err := l.LoadStreaming(context.Background(), tt.req)
			if !errors.Is(err, tt.want) || !topology.IsInvalidInput(err) {
				t.Errorf("LoadStreaming() error = %v, want %v", err, tt.want)
			}
			if called {
				t.Error("progress reported for rejected request")
			}
		})
	}
}

func TestLoadStreaming_CancelStopsApplying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []progress.Progress
	l := New(WithProgressHandler(func(p progress.Progress) {
		seen = append(seen, p)
		cancel()
	}))

	_, err := l.LoadStreaming(ctx, Request{NodeCount: 10, EdgeProbability: 0.5, ChunkSize: 4})
	if !errors.Is(err, topology.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("LoadStreaming() error = %v, want ErrCanceled wrapping context.Canceled", err)
	}
	if len(seen) != 1 {
		t.Errorf("applied %d chunks after cancel, want 1", len(seen))
	}
	if l.Progress().Done {
		t.Error("canceled load reported done")
	}
}

func TestLoadStreaming_Limiter(t *testing.T) {
	l := New(WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	res, err := l.LoadStreaming(context.Background(), Request{NodeCount: 30, EdgeProbability: 0.2, ChunkSize: 7})
	if err != nil {
		t.Fatalf("LoadStreaming() error = %v", err)
	}
	if res.Chunks != 5 {
		t.Errorf("Chunks = %d, want 5", res.Chunks)
	}
}

func TestLoadSnapshot(t *testing.T) {
	var startID string
	l := New(WithStartHandler(func(id string, total int) {
		startID = id
		if total != 5 {
			t.Errorf("start total = %d, want 5", total)
		}
	}))

	res, err := l.LoadSnapshot(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(res.Snapshot.Nodes) != 5 || len(res.Snapshot.Edges) != 10 {
		t.Errorf("got %d nodes / %d edges, want 5 / 10", len(res.Snapshot.Nodes), len(res.Snapshot.Edges))
	}
	if res.Chunks != 1 || !res.Progress.Done {
		t.Errorf("result = %+v, want one done chunk", res)
	}
	if startID != res.LoadID {
		t.Errorf("start id %q != result id %q", startID, res.LoadID)
	}
}

func TestLoadSnapshot_ReplacesPreviousGraph(t *testing.T) {
	l := New()
	if _, err := l.LoadSnapshot(context.Background(), 8, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadSnapshot(context.Background(), 3, 0); err != nil {
		t.Fatal(err)
	}
	if got := len(l.Snapshot().Nodes); got != 3 {
		t.Errorf("got %d nodes after reload, want 3", got)
	}
}

func TestLoad_RoutesBySize(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		wantChunks int
		wantErr    error
	}{
		{name: "at the one-shot ceiling", req: Request{NodeCount: topology.OneShotNodeLimit, EdgeProbability: 0, ChunkSize: 100}, wantChunks: 1},
		{name: "above the ceiling streams", req: Request{NodeCount: topology.OneShotNodeLimit + 1, EdgeProbability: 0, ChunkSize: 100}, wantChunks: 6},
		{name: "chunk size ignored for one-shot", req: Request{NodeCount: 10, EdgeProbability: 0}, wantChunks: 1},
		{name: "streaming validates chunk size", req: Request{NodeCount: 1000, EdgeProbability: 0}, wantErr: topology.ErrChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Load(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.Chunks != tt.wantChunks {
				t.Errorf("Chunks = %d, want %d", res.Chunks, tt.wantChunks)
			}
			if len(res.Snapshot.Nodes) != tt.req.NodeCount {
				t.Errorf("got %d nodes, want %d", len(res.Snapshot.Nodes), tt.req.NodeCount)
			}
		})
	}
}

func TestLoader_RejectsConcurrentLoad(t *testing.T) {
	var l *Loader
	var nested error
	l = New(WithProgressHandler(func(progress.Progress) {
		if nested == nil {
			_, nested = l.LoadSnapshot(context.Background(), 2, 0)
		}
	}))

	if _, err := l.LoadStreaming(context.Background(), Request{NodeCount: 4, EdgeProbability: 0, ChunkSize: 2}); err != nil {
		t.Fatalf("LoadStreaming() error = %v", err)
	}
	if !errors.Is(nested, ErrLoadInProgress) {
		t.Errorf("nested load error = %v, want %v", nested, ErrLoadInProgress)
	}
}

func TestLoader_ProgressTiming(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(5 * time.Millisecond)
		return now
	}
	l := New(WithClock(clock))

	res, err := l.LoadStreaming(context.Background(), Request{NodeCount: 6, EdgeProbability: 0, ChunkSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Start plus three chunk advances.
	if res.Progress.DurationMs != 15 {
		t.Errorf("DurationMs = %d, want 15", res.Progress.DurationMs)
	}
}
