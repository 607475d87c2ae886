package viz

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matsen/cloudscope/internal/progress"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
)

// EventType names a stream event.
type EventType string

// Stream event types.
const (
	EventStart    EventType = "start"
	EventElements EventType = "elements"
	EventReset    EventType = "reset"
	EventCameraOp EventType = "camera"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Camera operation names.
const (
	OpFit      = "fit"
	OpRecenter = "recenter"
	OpZoom     = "zoom"
)

// CameraOp is one view change for the rendering engine to animate.
type CameraOp struct {
	Op         string  `json:"op"`
	DurationMs int64   `json:"durationMs"`
	Padding    int     `json:"padding,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Factor     float64 `json:"factor,omitempty"`
}

// Event is one line of the live stream. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType       `json:"type"`
	LoadID     string          `json:"loadId,omitempty"`
	TotalNodes *int            `json:"totalNodes,omitempty"`
	Nodes      []CytoscapeNode `json:"nodes,omitempty"`
	Edges      []CytoscapeEdge `json:"edges,omitempty"`
	*CameraOp
	Progress *progress.Progress `json:"progress,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// StartEvent announces a new load.
func StartEvent(loadID string, total int) Event {
	return Event{Type: EventStart, LoadID: loadID, TotalNodes: &total}
}

// ProgressEvent reports load progress. The final progress becomes a done event.
func ProgressEvent(p progress.Progress) Event {
	t := EventProgress
	if p.Done {
		t = EventDone
	}
	return Event{Type: t, Progress: &p}
}

// ErrorEvent reports a failure after the stream has started.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}

// Emitter receives stream events.
type Emitter interface {
	Emit(Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event) error

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) error {
	return f(ev)
}

// EventBuffer is an Emitter that keeps every event in memory.
type EventBuffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev.
func (b *EventBuffer) Emit(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (b *EventBuffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// CameraOps returns the camera operations among the recorded events.
func (b *EventBuffer) CameraOps() []CameraOp {
	b.mu.Lock()
	defer b.mu.Unlock()

	ops := []CameraOp{}
	for _, ev := range b.events {
		if ev.Type == EventCameraOp && ev.CameraOp != nil {
			ops = append(ops, *ev.CameraOp)
		}
	}
	return ops
}

// EventCamera is a viewer.Camera that emits camera events. A detached
// camera reports viewer.ErrCameraUnavailable.
type EventCamera struct {
	mu   sync.Mutex
	emit Emitter
}

var _ viewer.Camera = (*EventCamera)(nil)

// NewEventCamera creates a camera attached to e. A nil e yields a detached camera.
func NewEventCamera(e Emitter) *EventCamera {
	return &EventCamera{emit: e}
}

// Attach connects the camera to e.
func (c *EventCamera) Attach(e Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit = e
}

// Detach disconnects the camera; subsequent operations are unavailable.
func (c *EventCamera) Detach() {
	c.Attach(nil)
}

// FitView emits a fit operation.
func (c *EventCamera) FitView(d time.Duration, padding int) error {
	return c.send(CameraOp{Op: OpFit, DurationMs: d.Milliseconds(), Padding: padding})
}

// Recenter emits a recenter operation.
func (c *EventCamera) Recenter(x, y float64, d time.Duration) error {
	return c.send(CameraOp{Op: OpRecenter, DurationMs: d.Milliseconds(), X: x, Y: y})
}

// Zoom emits a zoom operation.
func (c *EventCamera) Zoom(factor float64, d time.Duration) error {
	return c.send(CameraOp{Op: OpZoom, DurationMs: d.Milliseconds(), Factor: factor})
}

func (c *EventCamera) send(op CameraOp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emit == nil {
		return viewer.ErrCameraUnavailable
	}
	return c.emit.Emit(Event{Type: EventCameraOp, CameraOp: &op})
}

// ErrRendererClosed is returned by a DeltaRenderer without an emitter.
var ErrRendererClosed = errors.New("renderer has no emitter")

// DeltaRenderer is a viewer.Renderer that emits only the elements added
// since its previous render. Accumulated snapshots only grow during a load,
// so a snapshot smaller than the last one means a new load started and a
// reset event is emitted first.
type DeltaRenderer struct {
	mu    sync.Mutex
	emit  Emitter
	nodes int
	edges int
}

var _ viewer.Renderer = (*DeltaRenderer)(nil)

// NewDeltaRenderer creates a renderer emitting to e.
func NewDeltaRenderer(e Emitter) *DeltaRenderer {
	return &DeltaRenderer{emit: e}
}

// Render emits the new part of snap.
func (r *DeltaRenderer) Render(snap topology.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emit == nil {
		return ErrRendererClosed
	}

	if len(snap.Nodes) < r.nodes || len(snap.Edges) < r.edges {
		if err := r.resetLocked(); err != nil {
			return err
		}
	}

	addedNodes := snap.Nodes[r.nodes:]
	addedEdges := snap.Edges[r.edges:]
	if len(addedNodes) == 0 && len(addedEdges) == 0 {
		return nil
	}

	elements := toElements(newNodes(addedNodes), newEdges(addedEdges), r.edges)
	if err := r.emit.Emit(Event{Type: EventElements, Nodes: elements.Nodes, Edges: elements.Edges}); err != nil {
		return fmt.Errorf("emitting elements: %w", err)
	}
	r.nodes = len(snap.Nodes)
	r.edges = len(snap.Edges)
	return nil
}

// Reset forgets what was rendered and tells the rendering engine to clear.
func (r *DeltaRenderer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emit == nil {
		return ErrRendererClosed
	}
	return r.resetLocked()
}

func (r *DeltaRenderer) resetLocked() error {
	if err := r.emit.Emit(Event{Type: EventReset}); err != nil {
		return fmt.Errorf("emitting reset: %w", err)
	}
	r.nodes, r.edges = 0, 0
	return nil
}
