package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/matsen/cloudscope/internal/index"
	"github.com/matsen/cloudscope/internal/loader"
	"github.com/matsen/cloudscope/internal/progress"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
	"github.com/matsen/cloudscope/internal/viz"
	"golang.org/x/time/rate"
)

// defaultTop is how many nodes /api/stats lists by cost.
const defaultTop = 5

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := viz.GenerateLiveHTML(s.opts.Live)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	p, err := s.parseLoadParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.Nodes > topology.OneShotNodeLimit {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("%d nodes exceeds the one-shot limit of %d; use /api/stream", p.Nodes, topology.OneShotNodeLimit))
		return
	}

	snap, err := p.generator().Generate(p.Nodes, p.EdgeProbability)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viz.FromSnapshot(snap).Elements())
}

// handleStream runs a streaming load and writes its events as NDJSON.
// Input errors are reported with 400 before any event is written; later
// failures become an error event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.FromContext(ctx)

	p, err := s.parseLoadParams(r.URL.Query())
	if err == nil {
		err = topology.ValidateStreamingInput(p.Nodes, p.EdgeProbability, p.ChunkSize)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	emitter := newStreamEmitter(w)
	camera := viz.NewEventCamera(emitter)
	defer camera.Detach()

	opts := []loader.Option{
		loader.WithGenerator(p.generator()),
		loader.WithViewer(viewer.New(viz.NewDeltaRenderer(emitter), camera, viewer.WithLogger(logger))),
		loader.WithLogger(logger),
		loader.WithStartHandler(func(loadID string, total int) {
			emitter.send(ctx, logger, viz.StartEvent(loadID, total))
		}),
		loader.WithProgressHandler(func(pr progress.Progress) {
			// The done event follows the final elements, after the load returns.
			if !pr.Done {
				emitter.send(ctx, logger, viz.ProgressEvent(pr))
			}
		}),
	}
	if s.opts.MaxChunksPerSecond > 0 {
		opts = append(opts, loader.WithLimiter(rate.NewLimiter(rate.Limit(s.opts.MaxChunksPerSecond), 1)))
	}

	res, err := loader.New(opts...).LoadStreaming(ctx, loader.Request{
		NodeCount:       p.Nodes,
		EdgeProbability: p.EdgeProbability,
		ChunkSize:       p.ChunkSize,
	})
	if err != nil {
		if ctx.Err() == nil {
			emitter.send(ctx, logger, viz.ErrorEvent(err))
		}
		return
	}
	emitter.send(ctx, logger, viz.ProgressEvent(res.Progress))
}

// streamEmitter writes each event as one JSON line and flushes it.
type streamEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
	rc  *http.ResponseController
}

func newStreamEmitter(w http.ResponseWriter) *streamEmitter {
	return &streamEmitter{enc: json.NewEncoder(w), rc: http.NewResponseController(w)}
}

func (e *streamEmitter) Emit(ev viz.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("writing %s event: %w", ev.Type, err)
	}
	if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flushing %s event: %w", ev.Type, err)
	}
	return nil
}

// send emits ev and logs a failed write at debug; the next render reports it.
func (e *streamEmitter) send(ctx context.Context, logger *slog.Logger, ev viz.Event) {
	if err := e.Emit(ev); err != nil {
		logger.DebugContext(ctx, "stream event not written", "type", ev.Type, "error", err)
	}
}

type selectRequest struct {
	Node     topology.Node `json:"node"`
	Position viewer.Point  `json:"position"`
}

type selectResponse struct {
	Node   topology.Node  `json:"node"`
	Target viewer.Point   `json:"target"`
	Camera []viz.CameraOp `json:"camera"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding selection: %w", err))
		return
	}
	if req.Node.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("selection has no node id"))
		return
	}

	var events viz.EventBuffer
	adapter := viewer.New(nil, viz.NewEventCamera(&events),
		viewer.WithSelectHandler(s.selection.Set),
		viewer.WithLogger(ctxlog.FromContext(r.Context())),
	)
	target, err := adapter.Select(r.Context(), viewer.SelectEvent{Node: req.Node, Position: req.Position})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, selectResponse{
		Node:   req.Node,
		Target: target,
		Camera: events.CameraOps(),
	})
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	node, ok := s.selection.Current()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no node selected"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node": node})
}

type statsResponse struct {
	Summary index.Summary   `json:"summary"`
	Top     []topology.Node `json:"top"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := s.parseLoadParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	top, err := intParam(q, "top", defaultTop)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := loader.New(loader.WithGenerator(p.generator()), loader.WithLogger(ctxlog.FromContext(r.Context()))).Load(r.Context(), loader.Request{
		NodeCount:       p.Nodes,
		EdgeProbability: p.EdgeProbability,
		ChunkSize:       p.ChunkSize,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	db, err := index.Open()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer db.Close()

	if err := db.Rebuild(res.Snapshot); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	summary, err := db.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	nodes, err := db.TopByCost(top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{Summary: summary, Top: nodes})
}

func statusFor(err error) int {
	if topology.IsInvalidInput(err) || errors.Is(err, errBadParam) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
