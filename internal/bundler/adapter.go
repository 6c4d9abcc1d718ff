package bundler

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/chunkmap/chunkmap/internal/graph"
)

// clientDirectiveRE matches the "use client" directive at the top of a
// module, before any code.
var clientDirectiveRE = regexp.MustCompile(`(?s)^(?:\s|//[^\n]*\n|/\*.*?\*/)*['"]use client['"]\s*;?`)

// chunkHashRE extracts the content hash esbuild embeds in chunk file names.
var chunkHashRE = regexp.MustCompile(`-([A-Z0-9]{8})\.(?:js|css)$`)

// DetectClientDirective reports whether source code opens with a
// "use client" directive.
func DetectClientDirective(code string) bool {
	return clientDirectiveRE.MatchString(code)
}

// Snapshot converts a metafile into the frozen graph view the manifest
// builder consumes. Module ids are assigned deterministically over the
// sorted input paths; entry outputs become bundle groups that pull in
// every chunk they import.
func Snapshot(meta *Metafile, projectDir string) *graph.Snapshot {
	inputs := make([]string, 0, len(meta.Inputs))
	for path := range meta.Inputs {
		inputs = append(inputs, path)
	}
	sort.Strings(inputs)

	ids := make(map[string]graph.ModuleID, len(inputs))
	for i, path := range inputs {
		ids[path] = graph.IntID(int64(i + 1))
	}

	outputs := make([]string, 0, len(meta.Outputs))
	for name := range meta.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)

	chunkIDs := make(map[string]string, len(outputs))
	for i, name := range outputs {
		chunkIDs[name] = strconv.Itoa(i)
	}

	snap := &graph.Snapshot{}
	for _, name := range outputs {
		out := meta.Outputs[name]
		if out.EntryPoint == "" {
			continue
		}
		group := &graph.BundleGroup{Name: groupName(out.EntryPoint)}
		for _, chunkName := range collectChunks(meta, name) {
			group.Chunks = append(group.Chunks, buildChunk(meta, chunkName, chunkIDs[chunkName], ids, projectDir))
		}
		snap.Groups = append(snap.Groups, group)
	}
	return snap
}

// collectChunks returns the output and every non-entry output it reaches
// through static import edges, in discovery order.
func collectChunks(meta *Metafile, root string) []string {
	chunks := []string{root}
	seen := map[string]bool{root: true}
	for i := 0; i < len(chunks); i++ {
		out := meta.Outputs[chunks[i]]
		for _, imp := range out.Imports {
			if imp.External || imp.Kind != "import-statement" || seen[imp.Path] {
				continue
			}
			if target, ok := meta.Outputs[imp.Path]; ok && target.EntryPoint == "" {
				seen[imp.Path] = true
				chunks = append(chunks, imp.Path)
			}
		}
	}
	return chunks
}

func buildChunk(meta *Metafile, name, id string, ids map[string]graph.ModuleID, projectDir string) *graph.Chunk {
	out := meta.Outputs[name]
	chunk := &graph.Chunk{
		ID:    id,
		Name:  chunkName(name),
		Hash:  chunkHash(name),
		Files: []string{name},
	}
	if out.CSSBundle != "" {
		chunk.Files = append(chunk.Files, out.CSSBundle)
	}

	modules := make([]string, 0, len(out.Inputs))
	for path := range out.Inputs {
		modules = append(modules, path)
	}
	sort.Strings(modules)

	for _, path := range modules {
		mod := &graph.Module{
			Path:  "./" + filepath.ToSlash(path),
			ID:    ids[path],
			Layer: graph.LayerClient,
		}
		if path == out.EntryPoint {
			mod.Exports = out.Exports
		}
		if code, err := os.ReadFile(filepath.Join(projectDir, path)); err == nil {
			mod.ClientDirective = DetectClientDirective(string(code))
		}
		chunk.Modules = append(chunk.Modules, mod)
	}
	return chunk
}

// groupName derives the bundle group name from an entry point path:
// forward slashes, extension stripped ("app/page.tsx" -> "app/page").
func groupName(entryPoint string) string {
	name := filepath.ToSlash(entryPoint)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func chunkName(output string) string {
	base := filepath.Base(output)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if m := chunkHashRE.FindStringSubmatch(filepath.Base(output)); m != nil {
		base = strings.TrimSuffix(base, "-"+m[1])
	}
	return base
}

func chunkHash(output string) string {
	if m := chunkHashRE.FindStringSubmatch(filepath.Base(output)); m != nil {
		return m[1]
	}
	return ""
}
