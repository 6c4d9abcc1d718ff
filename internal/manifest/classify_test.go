package manifest

import (
	"testing"

	"github.com/chunkmap/chunkmap/internal/graph"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mod      *graph.Module
		dev      bool
		requests map[string]bool
		expected kind
	}{
		{
			name:     "css path",
			mod:      &graph.Module{Path: "./app.css"},
			expected: kindStylesheet,
		},
		{
			name:     "scss with resource query",
			mod:      &graph.Module{Path: "./app.scss?raw"},
			expected: kindStylesheet,
		},
		{
			name:     "extracted stylesheet bypasses layer filter",
			mod:      &graph.Module{Path: "./extracted.js", Extracted: true, Layer: graph.LayerServer},
			expected: kindStylesheet,
		},
		{
			name:     "style loader only counts in dev",
			mod:      &graph.Module{Path: "./inline.js", Loaders: []string{"node_modules/style-loader/index.js"}},
			dev:      true,
			expected: kindStylesheet,
		},
		{
			name:     "style loader ignored in production",
			mod:      &graph.Module{Path: "./inline.js", Loaders: []string{"node_modules/style-loader/index.js"}},
			expected: kindSkip,
		},
		{
			name:     "wrong layer",
			mod:      &graph.Module{Path: "./server.js", Layer: graph.LayerServer, ClientDirective: true},
			expected: kindSkip,
		},
		{
			name:     "no resolvable path",
			mod:      &graph.Module{Layer: graph.LayerClient, ClientDirective: true},
			expected: kindSkip,
		},
		{
			name:     "client directive",
			mod:      &graph.Module{Path: "./comp.js", Layer: graph.LayerClient, ClientDirective: true},
			expected: kindScript,
		},
		{
			name:     "recorded client entry request",
			mod:      &graph.Module{Path: "./comp.js", Layer: graph.LayerClient},
			requests: map[string]bool{"./comp.js": true},
			expected: kindScript,
		},
		{
			name:     "client layer without marker",
			mod:      &graph.Module{Path: "./plumbing.js", Layer: graph.LayerClient},
			expected: kindSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.mod, tt.dev, tt.requests); got != tt.expected {
				t.Errorf("classify(%q) = %v, want %v", tt.mod.Path, got, tt.expected)
			}
		})
	}
}
