// Package viewer binds accumulated snapshots to a rendering engine and turns
// load and selection events into camera operations.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/matsen/cloudscope/internal/topology"
)

// Camera timings and distances.
const (
	FitDuration   = 400 * time.Millisecond
	FitPadding    = 50
	FocusDistance = 40.0
	FocusDuration = 300 * time.Millisecond
	FocusZoom     = 1.5
)

// ErrCameraUnavailable is returned by a Camera that is not attached to a
// rendering surface yet. The adapter skips the operation.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Camera is the rendering engine's view control.
type Camera interface {
	FitView(duration time.Duration, padding int) error
	Recenter(x, y float64, duration time.Duration) error
	Zoom(factor float64, duration time.Duration) error
}

// Renderer accepts the graph to draw.
type Renderer interface {
	Render(snap topology.Snapshot) error
}

// Point is a position in the rendering engine's scene coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SelectEvent is emitted by the rendering engine when a node is clicked.
type SelectEvent struct {
	Node     topology.Node `json:"node"`
	Position Point         `json:"position"`
}

// Adapter drives a Renderer and Camera from snapshot updates and selections.
// It keeps no selection state of its own.
type Adapter struct {
	renderer Renderer
	camera   Camera
	onSelect func(topology.Node)
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSelectHandler sets the function that receives the selected node's record.
func WithSelectHandler(fn func(topology.Node)) Option {
	return func(a *Adapter) {
		a.onSelect = fn
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an adapter. Either renderer or camera may be nil.
func New(renderer Renderer, camera Camera, opts ...Option) *Adapter {
	a := &Adapter{
		renderer: renderer,
		camera:   camera,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Update renders snap and fits the view to it.
func (a *Adapter) Update(ctx context.Context, snap topology.Snapshot) error {
	if a.renderer != nil {
		if err := a.renderer.Render(snap); err != nil {
			return fmt.Errorf("rendering snapshot: %w", err)
		}
	}
	return a.cameraOp(ctx, "fit", func(c Camera) error {
		return c.FitView(FitDuration, FitPadding)
	})
}

// Select forwards the selected node to the select handler and moves the
// camera towards it. Returns the recenter target.
func (a *Adapter) Select(ctx context.Context, ev SelectEvent) (Point, error) {
	if a.onSelect != nil {
		a.onSelect(ev.Node)
	}

	target := FocusTarget(ev.Position, FocusDistance)
	if err := a.cameraOp(ctx, "recenter", func(c Camera) error {
		return c.Recenter(target.X, target.Y, FocusDuration)
	}); err != nil {
		return target, err
	}
	if err := a.cameraOp(ctx, "zoom", func(c Camera) error {
		return c.Zoom(FocusZoom, FocusDuration)
	}); err != nil {
		return target, err
	}
	return target, nil
}

func (a *Adapter) cameraOp(ctx context.Context, name string, op func(Camera) error) error {
	if a.camera == nil {
		a.logger.DebugContext(ctx, "camera not attached, skipping", "op", name)
		return nil
	}
	if err := op(a.camera); err != nil {
		if errors.Is(err, ErrCameraUnavailable) {
			a.logger.DebugContext(ctx, "camera unavailable, skipping", "op", name)
			return nil
		}
		return fmt.Errorf("camera %s: %w", name, err)
	}
	return nil
}

// FocusTarget returns the point distance units beyond p on the ray from the
// scene origin through p. A node at the origin yields the origin.
func FocusTarget(p Point, distance float64) Point {
	hyp := math.Hypot(p.X, p.Y)
	if hyp == 0 {
		hyp = 1
	}
	ratio := 1 + distance/hyp
	return Point{X: p.X * ratio, Y: p.Y * ratio}
}
