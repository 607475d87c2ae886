package viz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
)

func sampleSnapshot() topology.Snapshot {
	return topology.Snapshot{
		Nodes: []topology.Node{
			{ID: "node-0", Kind: topology.KindVM, Region: "eu-west-1", Cost: 120, Metrics: topology.Metrics{CPU: 12.34, Mem: 56.78}},
			{ID: "node-1", Kind: topology.KindDatabase, Region: "us-east-1", Cost: 900, Metrics: topology.Metrics{CPU: 1, Mem: 2}},
			{ID: "node-2", Kind: topology.KindStorage, Region: "ap-south-1", Cost: 0},
		},
		Edges: []topology.Edge{
			{Source: "node-0", Target: "node-1", Protocol: topology.ProtocolDB},
			{Source: "node-1", Target: "node-2", Protocol: topology.ProtocolInternal},
		},
	}
}

func TestFromSnapshot(t *testing.T) {
	g := FromSnapshot(sampleSnapshot())

	want := Node{ID: "node-0", Kind: "vm", Region: "eu-west-1", Label: "node-0", Cost: 120, CPU: 12.34, Mem: 56.78}
	if diff := cmp.Diff(want, g.Nodes[0]); diff != "" {
		t.Errorf("node mismatch (-want +got):\n%s", diff)
	}
	if got := g.Edges[0]; got.Protocol != "DB" || got.Source != "node-0" || got.Target != "node-1" {
		t.Errorf("edge = %+v", got)
	}
	if back := g.Nodes[1].ToTopologyNode(); back != sampleSnapshot().Nodes[1] {
		t.Errorf("ToTopologyNode() = %+v, want %+v", back, sampleSnapshot().Nodes[1])
	}
}

func TestFromSnapshot_Empty(t *testing.T) {
	g := FromSnapshot(topology.Snapshot{})
	if !g.IsEmpty() {
		t.Error("graph from empty snapshot is not empty")
	}
	js, err := g.ToCytoscapeJSON()
	if err != nil {
		t.Fatal(err)
	}
	if js != `{"nodes":[],"edges":[]}` {
		t.Errorf("ToCytoscapeJSON() = %s", js)
	}
}

func TestToCytoscapeJSON(t *testing.T) {
	js, err := FromSnapshot(sampleSnapshot()).ToCytoscapeJSON()
	if err != nil {
		t.Fatalf("ToCytoscapeJSON() error = %v", err)
	}

	var decoded struct {
		Nodes []struct {
			Data map[string]any `json:"data"`
		} `json:"nodes"`
		Edges []struct {
			Data map[string]any `json:"data"`
		} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(js), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	for _, key := range []string{"id", "kind", "region", "cost", "cpu", "mem", "label"} {
		if _, ok := decoded.Nodes[0].Data[key]; !ok {
			t.Errorf("node data missing %q", key)
		}
	}

	ids := make(map[any]bool)
	for _, e := range decoded.Edges {
		for _, key := range []string{"id", "source", "target", "protocol"} {
			if _, ok := e.Data[key]; !ok {
				t.Errorf("edge data missing %q", key)
			}
		}
		if ids[e.Data["id"]] {
			t.Errorf("duplicate edge id %v", e.Data["id"])
		}
		ids[e.Data["id"]] = true
	}
}

func TestGenerateHTML(t *testing.T) {
	tests := []struct {
		name       string
		graph      *GraphData
		opts       HTMLOptions
		wantErr    bool
		wantSubstr []string
	}{
		{
			name:    "nil graph",
			graph:   nil,
			opts:    DefaultOptions(),
			wantErr: true,
		},
		{
			name:    "invalid layout",
			graph:   FromSnapshot(sampleSnapshot()),
			opts:    HTMLOptions{Layout: "spiral"},
			wantErr: true,
		},
		{
			name:       "empty graph",
			graph:      FromSnapshot(topology.Snapshot{}),
			opts:       DefaultOptions(),
			wantSubstr: []string{"No resources"},
		},
		{
			name:       "force layout maps to cose",
			graph:      FromSnapshot(sampleSnapshot()),
			opts:       DefaultOptions(),
			wantSubstr: []string{`"cose"`, "node-0", "Cloud Topology", "focusAt", "toFixed(1)"},
		},
		{
			name:       "grid layout",
			graph:      FromSnapshot(sampleSnapshot()),
			opts:       HTMLOptions{Layout: "grid", Title: "prod"},
			wantSubstr: []string{`"grid"`, "<title>prod</title>"},
		},
		{
			name:       "title is escaped",
			graph:      FromSnapshot(sampleSnapshot()),
			opts:       HTMLOptions{Title: "<b>x</b>"},
			wantSubstr: []string{"&lt;b&gt;x&lt;/b&gt;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := GenerateHTML(tt.graph, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateHTML() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, s := range tt.wantSubstr {
				if !strings.Contains(html, s) {
					t.Errorf("output missing %q", s)
				}
			}
		})
	}
}

func TestGenerateLiveHTML(t *testing.T) {
	html, err := GenerateLiveHTML(DefaultLiveOptions())
	if err != nil {
		t.Fatalf("GenerateLiveHTML() error = %v", err)
	}
	for _, s := range []string{
		`data-graph-path="/api/graph"`,
		`data-stream-path="/api/stream"`,
		`data-select-path="/api/select"`,
		`data-nodes="5000"`,
		"Load 200",
	} {
		if !strings.Contains(html, s) {
			t.Errorf("output missing %q", s)
		}
	}

	opts := DefaultLiveOptions()
	opts.Layout = "spiral"
	if _, err := GenerateLiveHTML(opts); err == nil {
		t.Error("GenerateLiveHTML() accepted an invalid layout")
	}
}

func TestEventCamera(t *testing.T) {
	var buf EventBuffer
	a := viewer.New(nil, NewEventCamera(&buf))

	if err := a.Update(t.Context(), topology.Snapshot{}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Select(t.Context(), viewer.SelectEvent{Position: viewer.Point{X: 3, Y: 4}}); err != nil {
		t.Fatal(err)
	}

	want := []CameraOp{
		{Op: OpFit, DurationMs: 400, Padding: 50},
		{Op: OpRecenter, DurationMs: 300, X: 27, Y: 36},
		{Op: OpZoom, DurationMs: 300, Factor: 1.5},
	}
	if diff := cmp.Diff(want, buf.CameraOps()); diff != "" {
		t.Errorf("camera ops mismatch (-want +got):\n%s", diff)
	}
}

func TestEventCamera_Detached(t *testing.T) {
	var buf EventBuffer
	c := NewEventCamera(&buf)
	c.Detach()

	if err := c.FitView(viewer.FitDuration, viewer.FitPadding); !errors.Is(err, viewer.ErrCameraUnavailable) {
		t.Errorf("FitView() error = %v, want %v", err, viewer.ErrCameraUnavailable)
	}
	if err := viewer.New(nil, c).Update(t.Context(), topology.Snapshot{}); err != nil {
		t.Errorf("adapter did not skip detached camera: %v", err)
	}
	if len(buf.Events()) != 0 {
		t.Errorf("detached camera emitted %d events", len(buf.Events()))
	}
}

func TestDeltaRenderer(t *testing.T) {
	var buf EventBuffer
	r := NewDeltaRenderer(&buf)
	full := sampleSnapshot()

	steps := []topology.Snapshot{
		{Nodes: full.Nodes[:2], Edges: full.Edges[:1]},
		{Nodes: full.Nodes[:2], Edges: full.Edges[:1]}, // unchanged
		full,
		{Nodes: full.Nodes[:1], Edges: []topology.Edge{}}, // new load
	}
	for i, s := range steps {
		if err := r.Render(s); err != nil {
			t.Fatalf("Render(step %d) error = %v", i, err)
		}
	}

	type summary struct {
		Type    EventType
		Nodes   []string
		EdgeIDs []string
	}
	var got []summary
	for _, ev := range buf.Events() {
		s := summary{Type: ev.Type}
		for _, n := range ev.Nodes {
			s.Nodes = append(s.Nodes, n.Data.ID)
		}
		for _, e := range ev.Edges {
			s.EdgeIDs = append(s.EdgeIDs, e.Data.ID)
		}
		got = append(got, s)
	}

	want := []summary{
		{Type: EventElements, Nodes: []string{"node-0", "node-1"}, EdgeIDs: []string{"node-0-node-1-0"}},
		{Type: EventElements, Nodes: []string{"node-2"}, EdgeIDs: []string{"node-1-node-2-1"}},
		{Type: EventReset},
		{Type: EventElements, Nodes: []string{"node-0"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDeltaRenderer_NoEmitter(t *testing.T) {
	r := NewDeltaRenderer(nil)
	if err := r.Render(sampleSnapshot()); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("Render() error = %v, want %v", err, ErrRendererClosed)
	}
}

func TestEvent_JSON(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "start with zero nodes keeps the total",
			ev:   StartEvent("abc", 0),
			want: `{"type":"start","loadId":"abc","totalNodes":0}`,
		},
		{
			name: "camera op is flattened",
			ev:   Event{Type: EventCameraOp, CameraOp: &CameraOp{Op: OpZoom, DurationMs: 300, Factor: 1.5}},
			want: `{"type":"camera","op":"zoom","durationMs":300,"x":0,"y":0,"factor":1.5}`,
		},
		{
			name: "reset",
			ev:   Event{Type: EventReset},
			want: `{"type":"reset"}`,
		},
		{
			name: "error",
			ev:   ErrorEvent(errors.New("boom")),
			want: `{"type":"error","error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal() = %s, want %s", b, tt.want)
			}
		})
	}
}
