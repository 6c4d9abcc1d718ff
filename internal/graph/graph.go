// Package graph models the frozen module-graph snapshot handed over by a
// bundling engine once a build has finished: bundle groups, their chunks,
// and the modules placed into them. The snapshot is read-only input for
// manifest construction; nothing in this package resolves modules or
// decides chunking.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Layer tags assigned by the bundling engine to place modules into build
// variants. Only LayerClient modules may become client references.
const (
	LayerClient = "client"
	LayerServer = "server"
)

// Re-export relation kinds discovered by the engine's export inference.
const (
	// ReExportCommonJS is a module.exports-style re-export; it resolves to
	// the single export name "default".
	ReExportCommonJS = "commonjs"
	// ReExportNamespace re-exports another module's namespace; it resolves
	// to that module's declared export list.
	ReExportNamespace = "namespace"
)

// ModuleID is the bundler-assigned identifier of a module or chunk group
// member. Engines emit numeric ids in production and path-like string ids
// in development, so the type keeps the original JSON shape intact.
type ModuleID struct {
	str   string
	num   int64
	isNum bool
}

// StringID returns a ModuleID holding a string identifier.
func StringID(s string) ModuleID { return ModuleID{str: s} }

// IntID returns a ModuleID holding a numeric identifier.
func IntID(n int64) ModuleID { return ModuleID{num: n, isNum: true} }

// IsZero reports whether the id was never assigned.
func (id ModuleID) IsZero() bool { return !id.isNum && id.str == "" }

// String renders the id the way it appears as a JSON object key.
func (id ModuleID) String() string {
	if id.isNum {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

// MarshalJSON preserves the numeric/string distinction on the wire.
func (id ModuleID) MarshalJSON() ([]byte, error) {
	if id.isNum {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ModuleID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' {
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid module id %s: %w", string(data), err)
		}
		*id = IntID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid module id: %w", err)
	}
	*id = StringID(s)
	return nil
}

// Snapshot is one completed build: every bundle group with its chunks and
// modules, frozen after optimization and before final asset write.
type Snapshot struct {
	Groups []*BundleGroup `json:"groups"`
}

// BundleGroup is a named set of chunks produced for one build entry point
// or shared boundary. Parents lists the names of groups this group is
// nested under through shared-chunk relationships.
type BundleGroup struct {
	Name    string   `json:"name"`
	Chunks  []*Chunk `json:"chunks"`
	Parents []string `json:"parents,omitempty"`
}

// Chunk is a physical output unit holding a subset of modules.
type Chunk struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Hash  string `json:"hash,omitempty"`
	Files []string `json:"files"`
	// Bootstrap marks internal runtime/system entry chunks that client
	// references never need to load explicitly.
	Bootstrap bool      `json:"bootstrap,omitempty"`
	Modules   []*Module `json:"modules"`
}

// Module is one resolved module inside the client bundle graph.
type Module struct {
	Path    string   `json:"path"`
	ID      ModuleID `json:"id"`
	Layer   string   `json:"layer,omitempty"`
	Loaders []string `json:"loaders,omitempty"`

	// Exports are the statically inferred provided export names.
	Exports []string `json:"exports,omitempty"`
	// ReExports are synthetic re-export relations contributing further
	// export names.
	ReExports []ReExport `json:"reExports,omitempty"`

	// ClientDirective is set when the module itself carries a static
	// client-component marker.
	ClientDirective bool `json:"clientDirective,omitempty"`
	// Extracted is set on modules produced by a stylesheet-extraction
	// mechanism rather than resolved from a source file pattern.
	Extracted bool `json:"extracted,omitempty"`
	// Async marks modules requiring asynchronous loading.
	Async bool `json:"async,omitempty"`

	// Concatenated lists modules a bundle optimizer folded into this one.
	// They share this module's id but keep their own paths and exports.
	Concatenated []*Module `json:"concatenated,omitempty"`
}

// ExportNames returns the observed export name set: provided exports plus
// names resolved through re-export relations, in first-seen order. The
// internal ES-module marker export is never included.
func (m *Module) ExportNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "__esModule" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, name := range m.Exports {
		add(name)
	}
	for _, re := range m.ReExports {
		switch re.Kind {
		case ReExportCommonJS:
			add("default")
		case ReExportNamespace:
			for _, name := range re.Names {
				add(name)
			}
		}
	}
	return names
}

// ReExport is a synthetic re-export relation on a module.
type ReExport struct {
	Kind  string   `json:"kind"`
	Names []string `json:"names,omitempty"`
}

// LoadSnapshot reads a snapshot exported as JSON by a bundling engine.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse graph snapshot: %w", err)
	}
	return &snap, nil
}
