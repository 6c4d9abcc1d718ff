package manifest

import (
	"regexp"
	"strings"

	"github.com/chunkmap/chunkmap/internal/graph"
)

// kind is the classification of a module for manifest purposes.
type kind int

const (
	kindSkip kind = iota
	kindStylesheet
	kindScript
)

// styleFileRE matches stylesheet source paths, including resource queries.
var styleFileRE = regexp.MustCompile(`\.(css|scss|sass)(\?.*)?$`)

// styleInjectLoader is the dev-mode loader that injects styles at runtime
// instead of extracting them to files. Its presence in a loader chain marks
// the module as a stylesheet even when the path pattern does not.
const styleInjectLoader = "style-loader"

// classify decides whether a module is a stylesheet, a client-referencable
// script, or irrelevant to the manifest. The graph contains plenty of
// server-only and framework plumbing modules; those must never leak into
// the client-facing index.
func classify(mod *graph.Module, dev bool, clientRequests map[string]bool) kind {
	// Stylesheets bypass layer filtering entirely.
	if isStylesheet(mod, dev) {
		if mod.Path == "" {
			return kindSkip
		}
		return kindStylesheet
	}
	if mod.Layer != graph.LayerClient {
		return kindSkip
	}
	if mod.Path == "" {
		return kindSkip
	}
	if clientRequests[mod.Path] || mod.ClientDirective {
		return kindScript
	}
	return kindSkip
}

func isStylesheet(mod *graph.Module, dev bool) bool {
	if styleFileRE.MatchString(mod.Path) || mod.Extracted {
		return true
	}
	if !dev {
		return false
	}
	for _, loader := range mod.Loaders {
		if strings.Contains(loader, styleInjectLoader) {
			return true
		}
	}
	return false
}
