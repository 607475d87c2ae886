package viewer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/matsen/cloudscope/internal/topology"
)

// recordingCamera logs every call and can be configured to fail.
type recordingCamera struct {
	calls []string
	err   error
}

func (c *recordingCamera) FitView(d time.Duration, padding int) error {
	c.calls = append(c.calls, "fit")
	if d != FitDuration || padding != FitPadding {
		c.calls = append(c.calls, "fit-bad-args")
	}
	return c.err
}

func (c *recordingCamera) Recenter(x, y float64, d time.Duration) error {
	c.calls = append(c.calls, "recenter")
	return c.err
}

func (c *recordingCamera) Zoom(factor float64, d time.Duration) error {
	c.calls = append(c.calls, "zoom")
	return c.err
}

type recordingRenderer struct {
	sizes []int
	err   error
}

func (r *recordingRenderer) Render(snap topology.Snapshot) error {
	r.sizes = append(r.sizes, len(snap.Nodes))
	return r.err
}

func TestFocusTarget(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want Point
	}{
		{name: "on x axis", p: Point{X: 10, Y: 0}, want: Point{X: 50, Y: 0}},
		{name: "3-4-5", p: Point{X: 3, Y: 4}, want: Point{X: 27, Y: 36}},
		{name: "negative quadrant", p: Point{X: -30, Y: -40}, want: Point{X: -54, Y: -72}},
		{name: "origin", p: Point{}, want: Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FocusTarget(tt.p, FocusDistance)
			if math.IsNaN(got.X) || math.IsNaN(got.Y) || math.IsInf(got.X, 0) || math.IsInf(got.Y, 0) {
				t.Fatalf("FocusTarget(%v) = %v, want finite", tt.p, got)
			}
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("FocusTarget(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestAdapter_UpdateRendersThenFits(t *testing.T) {
	r := &recordingRenderer{}
	c := &recordingCamera{}
	a := New(r, c)

	snap, _ := topology.Generate(5, 0)
	if err := a.Update(context.Background(), snap); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if diff := cmp.Diff([]int{5}, r.sizes); diff != "" {
		t.Errorf("render calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fit"}, c.calls); diff != "" {
		t.Errorf("camera calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_SelectForwardsAndFocuses(t *testing.T) {
	c := &recordingCamera{}
	var sel Selection
	a := New(nil, c, WithSelectHandler(sel.Set))

	node := topology.Node{ID: "node-3", Kind: topology.KindDatabase, Region: "us-east-1", Cost: 12}
	target, err := a.Select(context.Background(), SelectEvent{Node: node, Position: Point{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if target != (Point{}) {
		t.Errorf("target = %v, want origin", target)
	}
	got, ok := sel.Current()
	if !ok || got.ID != "node-3" {
		t.Errorf("selection = %v, %v; want node-3", got, ok)
	}
	if diff := cmp.Diff([]string{"recenter", "zoom"}, c.calls); diff != "" {
		t.Errorf("camera calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_CameraUnavailableIsSkipped(t *testing.T) {
	tests := []struct {
		name   string
		camera Camera
	}{
		{name: "nil camera", camera: nil},
		{name: "unmounted camera", camera: &recordingCamera{err: ErrCameraUnavailable}},
		{name: "wrapped unavailable", camera: &recordingCamera{err: errors.Join(errors.New("not mounted"), ErrCameraUnavailable)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRenderer{}
			a := New(r, tt.camera)

			if err := a.Update(context.Background(), topology.Snapshot{}); err != nil {
				t.Errorf("Update() error = %v, want nil", err)
			}
			if len(r.sizes) != 1 {
				t.Errorf("renderer called %d times, want 1", len(r.sizes))
			}
			if _, err := a.Select(context.Background(), SelectEvent{Position: Point{X: 1, Y: 1}}); err != nil {
				t.Errorf("Select() error = %v, want nil", err)
			}
		})
	}
}

func TestAdapter_CameraFailurePropagates(t *testing.T) {
	errBroken := errors.New("broken")
	a := New(nil, &recordingCamera{err: errBroken})

	if err := a.Update(context.Background(), topology.Snapshot{}); !errors.Is(err, errBroken) {
		t.Errorf("Update() error = %v, want %v", err, errBroken)
	}
}

func TestAdapter_RenderFailureSkipsFit(t *testing.T) {
	errRender := errors.New("render")
	c := &recordingCamera{}
	a := New(&recordingRenderer{err: errRender}, c)

	if err := a.Update(context.Background(), topology.Snapshot{}); !errors.Is(err, errRender) {
		t.Errorf("Update() error = %v, want %v", err, errRender)
	}
	if len(c.calls) != 0 {
		t.Errorf("camera called %v after failed render", c.calls)
	}
}

func TestSelection_Clear(t *testing.T) {
	var s Selection
	if _, ok := s.Current(); ok {
		t.Error("new Selection reports a node")
	}
	s.Set(topology.Node{ID: "node-1"})
	s.Clear()
	if _, ok := s.Current(); ok {
		t.Error("Selection still set after Clear")
	}
}
