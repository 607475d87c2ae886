// Package loader runs load operations: it drives the topology generator and
// feeds every chunk through the accumulator, progress tracker and viewer.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/cloudscope/internal/accumulator"
	"github.com/matsen/cloudscope/internal/progress"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrLoadInProgress is returned when a load is started while another one is running.
var ErrLoadInProgress = errors.New("a load is already in progress")

// Request describes a streaming load.
type Request struct {
	NodeCount       int
	EdgeProbability float64
	ChunkSize       int
}

// Result is the outcome of a finished load.
type Result struct {
	LoadID   string            `json:"loadId"`
	Snapshot topology.Snapshot `json:"snapshot"`
	Progress progress.Progress `json:"progress"`
	Chunks   int               `json:"chunks"`
}

// Loader owns the accumulated snapshot and runs one load at a time.
type Loader struct {
	gen        *topology.Generator
	acc        *accumulator.Accumulator
	tracker    *progress.Tracker
	viewer     *viewer.Adapter
	limiter    *rate.Limiter
	clock      func() time.Time
	logger     *slog.Logger
	onProgress func(progress.Progress)
	onStart    func(loadID string, total int)

	busy atomic.Bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithGenerator sets the topology generator. The default is unseeded.
func WithGenerator(g *topology.Generator) Option {
	return func(l *Loader) {
		l.gen = g
	}
}

// WithViewer sets the adapter updated after every merged chunk.
func WithViewer(v *viewer.Adapter) Option {
	return func(l *Loader) {
		l.viewer = v
	}
}

// WithLimiter paces chunk application. Generation itself is never throttled.
func WithLimiter(lim *rate.Limiter) Option {
	return func(l *Loader) {
		l.limiter = lim
	}
}

// WithClock sets the clock used for progress timing.
func WithClock(clock func() time.Time) Option {
	return func(l *Loader) {
		l.clock = clock
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithProgressHandler sets a function called with the progress after every merged chunk.
func WithProgressHandler(fn func(progress.Progress)) Option {
	return func(l *Loader) {
		l.onProgress = fn
	}
}

// WithStartHandler sets a function called once a load has been accepted,
// before any chunk is applied.
func WithStartHandler(fn func(loadID string, total int)) Option {
	return func(l *Loader) {
		l.onStart = fn
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		acc:    accumulator.New(),
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.gen == nil {
		l.gen = topology.NewGenerator()
	}
	l.tracker = progress.NewTracker(l.clock)
	return l
}

// Snapshot returns the currently accumulated graph.
func (l *Loader) Snapshot() topology.Snapshot {
	return l.acc.Snapshot()
}

// Progress returns the progress of the current or last load.
func (l *Loader) Progress() progress.Progress {
	return l.tracker.Current()
}

// Load routes req by size: up to topology.OneShotNodeLimit nodes are
// generated in one shot (ChunkSize is ignored), larger requests stream.
func (l *Loader) Load(ctx context.Context, req Request) (Result, error) {
	if req.NodeCount <= topology.OneShotNodeLimit {
		return l.LoadSnapshot(ctx, req.NodeCount, req.EdgeProbability)
	}
	return l.LoadStreaming(ctx, req)
}

// LoadSnapshot replaces the current graph with a one-shot generated topology.
func (l *Loader) LoadSnapshot(ctx context.Context, nodeCount int, edgeProbability float64) (Result, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return Result{}, ErrLoadInProgress
	}
	defer l.busy.Store(false)

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", topology.ErrCanceled, err)
	}

	snap, err := l.gen.Generate(nodeCount, edgeProbability)
	if err != nil {
		return Result{}, err
	}

	loadID := uuid.NewString()
	logger := l.logger.With("load_id", loadID)
	l.begin(ctx, logger, loadID, nodeCount)

	chunk := topology.Chunk{Start: 0, Nodes: snap.Nodes, Edges: snap.Edges, Done: true}
	if err := l.apply(ctx, chunk); err != nil {
		logger.ErrorContext(ctx, "load failed", "error", err)
		return Result{}, err
	}

	return l.finish(ctx, logger, loadID, 1), nil
}

// LoadStreaming replaces the current graph with a streamed topology.
//
// The generator runs on its own goroutine and posts every chunk to a channel
// sized for the whole request, so it never waits for the consumer. A second
// goroutine in the same errgroup applies chunks in arrival order while the
// caller blocks until both finish. The first error from either side cancels
// the other.
func (l *Loader) LoadStreaming(ctx context.Context, req Request) (Result, error) {
	if err := topology.ValidateStreamingInput(req.NodeCount, req.EdgeProbability, req.ChunkSize); err != nil {
		return Result{}, err
	}
	if !l.busy.CompareAndSwap(false, true) {
		return Result{}, ErrLoadInProgress
	}
	defer l.busy.Store(false)

	loadID := uuid.NewString()
	logger := l.logger.With("load_id", loadID)
	l.begin(ctx, logger, loadID, req.NodeCount)
	logger.DebugContext(ctx, "streaming", "chunk_size", req.ChunkSize, "edge_probability", req.EdgeProbability)

	chunks := make(chan topology.Chunk, topology.ChunkCount(req.NodeCount, req.ChunkSize))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		_, err := l.gen.GenerateStreaming(gctx, req.NodeCount, req.EdgeProbability, req.ChunkSize, func(c topology.Chunk) error {
			chunks <- c
			return nil
		})
		return err
	})

	applied := 0
	g.Go(func() error {
		for c := range chunks {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", topology.ErrCanceled, err)
			}
			if l.limiter != nil {
				if err := l.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("pacing chunk at %d: %w", c.Start, err)
				}
			}
			if err := l.apply(gctx, c); err != nil {
				return err
			}
			applied++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, topology.ErrCanceled) {
			err = fmt.Errorf("%w: %w", topology.ErrCanceled, ctxErr)
		}
		logger.WarnContext(ctx, "load stopped", "error", err, "chunks", applied)
		return Result{}, err
	}

	return l.finish(ctx, logger, loadID, applied), nil
}

func (l *Loader) begin(ctx context.Context, logger *slog.Logger, loadID string, total int) {
	l.acc.Reset()
	l.tracker.Start(total)
	logger.InfoContext(ctx, "load started", "nodes", total)
	if l.onStart != nil {
		l.onStart(loadID, total)
	}
}

// apply merges one chunk and propagates it to the tracker, the progress
// handler and the viewer, in that order.
func (l *Loader) apply(ctx context.Context, c topology.Chunk) error {
	if err := l.acc.Merge(c); err != nil {
		return fmt.Errorf("merging chunk at %d: %w", c.Start, err)
	}
	p := l.tracker.Advance(c)
	if l.onProgress != nil {
		l.onProgress(p)
	}
	if l.viewer != nil {
		if err := l.viewer.Update(ctx, l.acc.Snapshot()); err != nil {
			return fmt.Errorf("updating viewer: %w", err)
		}
	}
	return nil
}

func (l *Loader) finish(ctx context.Context, logger *slog.Logger, loadID string, chunks int) Result {
	snap := l.acc.Snapshot()
	p := l.tracker.Current()
	logger.InfoContext(ctx, "load finished",
		"nodes", len(snap.Nodes),
		"edges", len(snap.Edges),
		"chunks", chunks,
		"duration_ms", p.DurationMs,
	)
	return Result{LoadID: loadID, Snapshot: snap, Progress: p, Chunks: chunks}
}
