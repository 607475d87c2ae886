package viz

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/matsen/cloudscope/internal/viewer"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate + sharedTemplates))
}

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "force", "circle", or "grid"
	Title  string
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{
		Layout: "force",
		Title:  "Cloud Topology",
	}
}

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{"force", "circle", "grid"}

// GenerateHTML generates a self-contained HTML file for the graph visualization.
// Tapping a node shows its details and moves the camera towards it.
func GenerateHTML(graph *GraphData, opts HTMLOptions) (string, error) {
	if graph == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}

	if err := ValidateLayout(opts.Layout); err != nil {
		return "", err
	}

	if graph.IsEmpty() {
		return generateEmptyHTML(), nil
	}

	graphJSON, err := graph.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:     titleOrDefault(opts.Title),
		GraphJSON: template.JS(graphJSON),
		Layout:    layoutToCytoscape(opts.Layout),
		Camera:    newCameraSettings(),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}

	return buf.String(), nil
}

// ValidateLayout checks if the layout option is valid.
func ValidateLayout(layout string) error {
	switch layout {
	case "", "force", "circle", "grid":
		return nil
	default:
		return fmt.Errorf("invalid layout %q: must be force, circle, or grid", layout)
	}
}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	GraphJSON template.JS
	Layout    string
	Camera    cameraSettings
}

// cameraSettings carries the viewer's camera constants into page scripts.
type cameraSettings struct {
	FitDurationMs   int64
	FitPadding      int
	FocusDistance   float64
	FocusDurationMs int64
	FocusZoom       float64
}

func newCameraSettings() cameraSettings {
	return cameraSettings{
		FitDurationMs:   viewer.FitDuration.Milliseconds(),
		FitPadding:      viewer.FitPadding,
		FocusDistance:   viewer.FocusDistance,
		FocusDurationMs: viewer.FocusDuration.Milliseconds(),
		FocusZoom:       viewer.FocusZoom,
	}
}

func titleOrDefault(title string) string {
	if title == "" {
		return DefaultOptions().Title
	}
	return title
}

// layoutToCytoscape converts user-friendly layout names to Cytoscape.js layout algorithm names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case "circle":
		return "circle"
	case "grid":
		return "grid"
	default:
		return "cose"
	}
}

// generateEmptyHTML returns HTML for an empty graph state.
func generateEmptyHTML() string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Cloud Topology - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No resources</h2>
    <p>The topology has no nodes.</p>
    <p>Generate one with <code>cloudscope viz --nodes 200</code></p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>
  {{template "style"}}
</head>
<body>
  <div id="cy"></div>
  <div id="details"></div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      const layout = "{{.Layout}}";

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: graphData,
        style: {{template "cystyle"}},
        layout: {
          name: layout,
          animate: false,
          // cose-specific options
          nodeRepulsion: 8000,
          idealEdgeLength: 60,
          edgeElasticity: 100
        }
      });

      {{template "camera" .Camera}}

      cy.on('tap', 'node', function(evt) {
        const node = evt.target;
        showDetails(node.data());
        focusAt(node.position());
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) {
          hideDetails();
        }
      });
    })();
  </script>
</body>
</html>`

// sharedTemplates are used by both the static and the live page.
const sharedTemplates = `
{{define "style"}}
  <style>
    * {
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      padding: 0;
      background: #f5f5f5;
    }
    #cy {
      width: 100%;
      height: 100vh;
      background: white;
    }
    #details {
      position: absolute;
      top: 12px;
      right: 12px;
      display: none;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      min-width: 180px;
      font-size: 13px;
      z-index: 1000;
    }
    #details .kind {
      font-size: 10px;
      text-transform: uppercase;
      color: #888;
      margin-bottom: 4px;
    }
    #details .label {
      font-weight: bold;
      margin-bottom: 4px;
    }
    #details .detail {
      color: #555;
      margin: 2px 0;
    }
  </style>
{{end}}

{{define "cystyle"}}[
          {
            selector: 'node',
            style: {
              'background-color': '#95A5A6',
              'label': 'data(label)',
              'color': '#333',
              'font-size': '10px',
              'min-zoomed-font-size': 8,
              'text-valign': 'bottom',
              'text-margin-y': '3px',
              'width': '12px',
              'height': '12px'
            }
          },
          { selector: 'node[kind="vm"]', style: { 'background-color': '#4A90D9' } },
          { selector: 'node[kind="container"]', style: { 'background-color': '#27AE60' } },
          { selector: 'node[kind="db"]', style: { 'background-color': '#9B59B6', 'shape': 'barrel' } },
          { selector: 'node[kind="load-balancer"]', style: { 'background-color': '#E8923A', 'shape': 'diamond' } },
          { selector: 'node[kind="storage"]', style: { 'background-color': '#7F8C8D', 'shape': 'rectangle' } },
          {
            selector: 'edge',
            style: {
              'line-color': '#BDC3C7',
              'target-arrow-color': '#BDC3C7',
              'target-arrow-shape': 'triangle',
              'curve-style': 'haystack',
              'width': 1
            }
          },
          { selector: 'edge[protocol="HTTPS"]', style: { 'line-color': '#5CB85C', 'target-arrow-color': '#5CB85C' } },
          { selector: 'edge[protocol="DB"]', style: { 'line-color': '#9B59B6', 'target-arrow-color': '#9B59B6' } },
          { selector: 'edge[protocol="HTTP"]', style: { 'line-color': '#337AB7', 'target-arrow-color': '#337AB7' } },
          {
            selector: 'node:selected',
            style: {
              'border-width': 3,
              'border-color': '#ff6b6b'
            }
          }
        ]{{end}}

{{define "camera"}}
      const camera = {
        fitDurationMs: {{.FitDurationMs}},
        fitPadding: {{.FitPadding}},
        focusDistance: {{.FocusDistance}},
        focusDurationMs: {{.FocusDurationMs}},
        focusZoom: {{.FocusZoom}}
      };

      function applyCamera(op) {
        const opts = { duration: op.durationMs || 0 };
        if (op.op === 'fit') {
          cy.animate({ fit: { eles: cy.elements(), padding: op.padding || 0 } }, opts);
        } else if (op.op === 'recenter') {
          const z = cy.zoom();
          cy.animate({ pan: { x: cy.width() / 2 - (op.x || 0) * z, y: cy.height() / 2 - (op.y || 0) * z } }, opts);
        } else if (op.op === 'zoom') {
          cy.animate({ zoom: { level: op.factor, renderedPosition: { x: cy.width() / 2, y: cy.height() / 2 } } }, opts);
        }
      }

      // Move the view to a point beyond the node on the ray from the origin.
      function focusAt(p) {
        const h = Math.hypot(p.x, p.y) || 1;
        const ratio = 1 + camera.focusDistance / h;
        applyCamera({ op: 'recenter', x: p.x * ratio, y: p.y * ratio, durationMs: camera.focusDurationMs });
        applyCamera({ op: 'zoom', factor: camera.focusZoom, durationMs: camera.focusDurationMs });
      }

      const details = document.getElementById('details');

      function showDetails(data) {
        let html = '<div class="kind">' + escapeHtml(data.kind) + '</div>';
        html += '<div class="label">' + escapeHtml(data.id) + '</div>';
        html += '<div class="detail">Region: ' + escapeHtml(data.region) + '</div>';
        html += '<div class="detail">Cost: ' + data.cost + '</div>';
        html += '<div class="detail">CPU: ' + Number(data.cpu).toFixed(1) + '%</div>';
        html += '<div class="detail">Memory: ' + Number(data.mem).toFixed(1) + '%</div>';
        details.innerHTML = html;
        details.style.display = 'block';
      }

      function hideDetails() {
        details.style.display = 'none';
      }

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                  .replace(/</g, '&lt;')
                  .replace(/>/g, '&gt;')
                  .replace(/"/g, '&quot;');
      }
{{end}}
`
