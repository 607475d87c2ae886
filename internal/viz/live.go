package viz

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/matsen/cloudscope/internal/topology"
)

var liveTemplateCompiled = template.Must(template.New("live").Parse(liveTemplate + sharedTemplates))

// LiveOptions configures the live page served by the HTTP host.
type LiveOptions struct {
	Title  string
	Layout string

	// Endpoints the page talks to.
	GraphPath  string
	StreamPath string
	SelectPath string

	// InitialNodes and InitialEdgeProbability size the graph shown on load.
	InitialNodes           int
	InitialEdgeProbability float64

	// StreamSizes are the node counts offered as streaming loads.
	StreamSizes []int
	ChunkSize   int
}

// DefaultLiveOptions returns the options used by the serve command.
func DefaultLiveOptions() LiveOptions {
	return LiveOptions{
		Title:                  "Cloud Topology",
		Layout:                 "force",
		GraphPath:              "/api/graph",
		StreamPath:             "/api/stream",
		SelectPath:             "/api/select",
		InitialNodes:           topology.DefaultNodeCount,
		InitialEdgeProbability: topology.DefaultEdgeProbability,
		StreamSizes:            []int{1000, 5000},
		ChunkSize:              topology.DefaultChunkSize,
	}
}

type liveTemplateData struct {
	LiveOptions
	Layout string
	Camera cameraSettings
}

// GenerateLiveHTML renders the page that loads graphs from the host,
// consumes the event stream and reports selections back.
func GenerateLiveHTML(opts LiveOptions) (string, error) {
	if err := ValidateLayout(opts.Layout); err != nil {
		return "", err
	}
	opts.Title = titleOrDefault(opts.Title)
	if opts.StreamSizes == nil {
		opts.StreamSizes = []int{}
	}

	data := liveTemplateData{
		LiveOptions: opts,
		Layout:      layoutToCytoscape(opts.Layout),
		Camera:      newCameraSettings(),
	}

	var buf bytes.Buffer
	if err := liveTemplateCompiled.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering live page: %w", err)
	}
	return buf.String(), nil
}

const liveTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>
  {{template "style"}}
  <style>
    #toolbar {
      position: absolute;
      top: 12px;
      left: 12px;
      display: flex;
      gap: 8px;
      align-items: center;
      z-index: 1000;
    }
    #overlay {
      position: absolute;
      left: 0;
      right: 0;
      top: 0;
      bottom: 0;
      display: none;
      align-items: center;
      justify-content: center;
      pointer-events: none;
    }
    #overlay div {
      background: rgba(255,255,255,0.9);
      padding: 12px;
      border-radius: 8px;
    }
    #status.error {
      color: #c0392b;
    }
  </style>
</head>
<body>
  <div id="toolbar" data-graph-path="{{.GraphPath}}" data-stream-path="{{.StreamPath}}" data-select-path="{{.SelectPath}}">
    <button id="load-initial">Load {{.InitialNodes}}</button>
    {{range .StreamSizes}}<button class="load-stream" data-nodes="{{.}}">Load {{.}}</button>
    {{end}}<span id="status"></span>
  </div>
  <div id="overlay"><div id="overlay-text"></div></div>
  <div id="cy"></div>
  <div id="details"></div>
  <script>
    (function() {
      const layout = "{{.Layout}}";
      const endpoints = document.getElementById('toolbar').dataset;
      const graphPath = endpoints.graphPath;
      const streamPath = endpoints.streamPath;
      const selectPath = endpoints.selectPath;
      const initialNodes = {{.InitialNodes}};
      const initialEdgeProbability = {{.InitialEdgeProbability}};
      const chunkSize = {{.ChunkSize}};

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: [],
        style: {{template "cystyle"}}
      });

      {{template "camera" .Camera}}

      const statusEl = document.getElementById('status');
      const overlay = document.getElementById('overlay');
      const overlayText = document.getElementById('overlay-text');
      let loading = false;

      function setStatus(text, isError) {
        statusEl.textContent = text;
        statusEl.className = isError ? 'error' : '';
      }

      function setLoading(on, p) {
        loading = on;
        document.querySelectorAll('button').forEach(function(b) { b.disabled = on; });
        overlay.style.display = on ? 'flex' : 'none';
        if (p) {
          const text = 'Loading ' + p.loadedNodes + '/' + p.totalNodes + ' nodes...';
          overlayText.textContent = text;
          setStatus(text, false);
        }
      }

      function runLayout() {
        cy.layout({ name: layout, animate: false, nodeRepulsion: 8000, idealEdgeLength: 60 }).run();
      }

      function addElements(ev) {
        const added = cy.add({ nodes: ev.nodes || [], edges: ev.edges || [] });
        added.nodes().layout({ name: 'random', boundingBox: { x1: -500, y1: -500, w: 1000, h: 1000 } }).run();
      }

      function handleEvent(ev) {
        switch (ev.type) {
          case 'start':
            cy.elements().remove();
            hideDetails();
            setLoading(true, { loadedNodes: 0, totalNodes: ev.totalNodes });
            break;
          case 'reset':
            cy.elements().remove();
            break;
          case 'elements':
            addElements(ev);
            break;
          case 'camera':
            applyCamera(ev);
            break;
          case 'progress':
            setLoading(true, ev.progress);
            break;
          case 'done':
            runLayout();
            applyCamera({ op: 'fit', padding: camera.fitPadding, durationMs: camera.fitDurationMs });
            setLoading(false);
            setStatus('Loaded ' + ev.progress.loadedNodes + ' nodes in ' + ev.progress.durationMs + ' ms', false);
            break;
          case 'error':
            setLoading(false);
            setStatus(ev.error, true);
            break;
        }
      }

      async function loadInitial() {
        const url = graphPath + '?nodes=' + initialNodes + '&edgeProbability=' + initialEdgeProbability;
        const res = await fetch(url);
        if (!res.ok) {
          setStatus(await res.text(), true);
          return;
        }
        const elements = await res.json();
        cy.elements().remove();
        hideDetails();
        cy.add(elements);
        runLayout();
        applyCamera({ op: 'fit', padding: camera.fitPadding, durationMs: camera.fitDurationMs });
        setStatus('Loaded ' + elements.nodes.length + ' nodes', false);
      }

      async function loadStream(nodes) {
        if (loading) return;
        const url = streamPath + '?nodes=' + nodes + '&chunkSize=' + chunkSize;
        const res = await fetch(url);
        if (!res.ok) {
          setStatus(await res.text(), true);
          return;
        }
        const reader = res.body.getReader();
        const decoder = new TextDecoder();
        let buf = '';
        for (;;) {
          const chunk = await reader.read();
          if (chunk.done) break;
          buf += decoder.decode(chunk.value, { stream: true });
          let nl;
          while ((nl = buf.indexOf('\n')) >= 0) {
            const line = buf.slice(0, nl).trim();
            buf = buf.slice(nl + 1);
            if (line) handleEvent(JSON.parse(line));
          }
        }
        if (loading) setLoading(false);
      }

      async function select(node) {
        const data = node.data();
        const body = {
          node: { id: data.id, kind: data.kind, region: data.region, cost: data.cost, metrics: { cpu: data.cpu, mem: data.mem } },
          position: node.position()
        };
        const res = await fetch(selectPath, {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify(body)
        });
        if (!res.ok) {
          focusAt(node.position());
          return;
        }
        const result = await res.json();
        (result.camera || []).forEach(applyCamera);
      }

      cy.on('tap', 'node', function(evt) {
        showDetails(evt.target.data());
        select(evt.target);
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) {
          hideDetails();
        }
      });

      document.getElementById('load-initial').addEventListener('click', loadInitial);
      document.querySelectorAll('.load-stream').forEach(function(b) {
        b.addEventListener('click', function() { loadStream(b.dataset.nodes); });
      });

      loadInitial();
    })();
  </script>
</body>
</html>`
