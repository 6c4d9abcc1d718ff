package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chunkmap/chunkmap/internal/graph"
)

// appRouteRE recognizes bundle groups belonging to the application-route
// namespace. Records from these groups take precedence on key collisions,
// and only these groups contribute entry-CSS keys.
var appRouteRE = regexp.MustCompile(`^app[/\\]`)

// MirrorRule maps module paths under an internal library subtree to the
// path convention of an alternate build variant. Records for matching
// modules are written under both paths, sharing one record object.
type MirrorRule struct {
	Subtree string
	Variant string
}

func (r *MirrorRule) apply(path string) (string, bool) {
	if r == nil || r.Subtree == "" {
		return "", false
	}
	if !strings.Contains(path, r.Subtree) {
		return "", false
	}
	return strings.Replace(path, r.Subtree, r.Variant, 1), true
}

// Options configures one manifest-building pass.
type Options struct {
	// Dev selects development output: no content-hash suffixes on chunk
	// descriptors and pretty-printed serialization.
	Dev bool
	// AppDir is the absolute directory of the application-route entries;
	// entry-CSS keys are derived relative to it.
	AppDir string
	// ProjectDir is the build context directory; SSR lookups use module
	// paths normalized relative to it.
	ProjectDir string

	// ClientRequests holds module paths recorded as client entry requests
	// by the engine's entry collection.
	ClientRequests map[string]bool
	// SSRModules and EdgeSSRModules map normalized relative module paths
	// to the ids assigned by the sibling SSR / edge-SSR builds.
	SSRModules     map[string]graph.ModuleID
	EdgeSSRModules map[string]graph.ModuleID
	// AsyncModules is the drained accumulator of module paths requiring
	// async loading (see graph.AsyncSet).
	AsyncModules map[string]bool

	Mirror *MirrorRule
}

// Build runs one synchronous pass over the frozen snapshot and returns the
// finished manifest. The snapshot is never mutated; the manifest is
// exclusively owned by this pass until it returns.
func Build(snap *graph.Snapshot, opts Options) (*Manifest, error) {
	b := &builder{
		opts:  opts,
		m:     New(),
		owner: make(map[string]string),
	}

	styles := make(map[string][]string, len(snap.Groups))
	for _, group := range snap.Groups {
		styles[group.Name] = styleFiles(group)
	}

	for _, group := range snap.Groups {
		required := requiredChunks(group, opts.Dev)
		css := styles[group.Name]
		for _, chunk := range group.Chunks {
			for _, mod := range chunk.Modules {
				if err := b.record(group, css, required, mod, mod.ID); err != nil {
					return nil, err
				}
				// Modules fused by the concatenation optimizer stay
				// addressable by their own paths but resolve to the
				// outer unit's id.
				for _, inner := range mod.Concatenated {
					if err := b.record(group, css, required, inner, mod.ID); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	b.aggregateEntryCSS(snap, styles)

	log.Debug().
		Int("records", b.m.Len()).
		Int("entries", len(b.m.EntryKeys())).
		Msg("Client reference manifest built")
	return b.m, nil
}

type builder struct {
	opts Options
	m    *Manifest
	// owner remembers which bundle group last wrote each composite key,
	// for the cross-group precedence rule.
	owner map[string]string
}

func (b *builder) record(group *graph.BundleGroup, css, required []string, mod *graph.Module, id graph.ModuleID) error {
	switch classify(mod, b.opts.Dev, b.opts.ClientRequests) {
	case kindStylesheet:
		b.recordStylesheet(group, css, mod, id)
	case kindScript:
		return b.recordScript(group, required, mod, id)
	}
	return nil
}

// recordStylesheet writes or merges the path# record for a stylesheet
// module. A stylesheet may be re-chunked across bundle groups; every chunk
// file that could serve it is retained.
func (b *builder) recordStylesheet(group *graph.BundleGroup, css []string, mod *graph.Module, id graph.ModuleID) {
	key := RefKey{Path: mod.Path, Export: AnonymousExport}
	if existing, ok := b.m.Record(key); ok {
		existing.Chunks = mergeChunks(existing.Chunks, css)
		return
	}
	rec := &ModuleRecord{
		ID:     id,
		Name:   AnonymousExport,
		Chunks: append([]string(nil), css...),
		Async:  b.isAsync(mod),
	}
	b.write(group, key, rec, true)
}

func (b *builder) recordScript(group *graph.BundleGroup, required []string, mod *graph.Module, id graph.ModuleID) error {
	if id.IsZero() {
		// A client reference without a bundle id cannot be loaded; a
		// corrupted manifest is worse than a failed build.
		return fmt.Errorf("client module %s has no bundle id in group %s", mod.Path, group.Name)
	}
	async := b.isAsync(mod)

	// The whole-namespace and anonymous records always reflect the
	// latest-seen bundle placement.
	star := &ModuleRecord{ID: id, Name: NamespaceExport, Chunks: required, Async: async}
	b.write(group, RefKey{Path: mod.Path, Export: NamespaceExport}, star, true)
	b.crossLink(mod, id, NamespaceExport, star)

	anon := &ModuleRecord{ID: id, Name: AnonymousExport, Chunks: required, Async: async}
	b.write(group, RefKey{Path: mod.Path, Export: AnonymousExport}, anon, true)
	b.crossLink(mod, id, AnonymousExport, anon)

	for _, name := range mod.ExportNames() {
		if name == NamespaceExport || name == AnonymousExport {
			continue
		}
		rec := &ModuleRecord{ID: id, Name: name, Chunks: required, Async: async}
		if b.write(group, RefKey{Path: mod.Path, Export: name}, rec, false) {
			b.crossLink(mod, id, name, rec)
		}
	}
	return nil
}

// write stores rec under key, honoring the precedence rule unless force is
// set: a record produced by another group survives a later write unless
// the writing group belongs to the app-route family. Returns whether the
// record was stored.
func (b *builder) write(group *graph.BundleGroup, key RefKey, rec *ModuleRecord, force bool) bool {
	k := key.String()
	if !force {
		if owner, ok := b.owner[k]; ok && owner != group.Name && !appRouteRE.MatchString(group.Name) {
			return false
		}
	}
	b.m.SetRecord(key, rec)
	b.owner[k] = group.Name

	// The alternate-build variant resolves the same reference through its
	// own path convention; the record object is shared, not duplicated.
	if mirrored, ok := b.opts.Mirror.apply(key.Path); ok {
		mk := RefKey{Path: mirrored, Export: key.Export}
		b.m.SetRecord(mk, rec)
		b.owner[mk.String()] = group.Name
	}
	return true
}

// crossLink writes shadow records into the SSR and edge-SSR mappings when
// the module's normalized path appears in the respective id table. A miss
// means that runtime does not need this reference.
func (b *builder) crossLink(mod *graph.Module, id graph.ModuleID, export string, rec *ModuleRecord) {
	rel := relativeModuleID(b.opts.ProjectDir, mod.Path)
	if ssrID, ok := b.opts.SSRModules[rel]; ok {
		b.m.ssr.set(id.String(), export, rec.WithID(ssrID))
	}
	if edgeID, ok := b.opts.EdgeSSRModules[rel]; ok {
		b.m.edgeSSR.set(id.String(), export, rec.WithID(edgeID))
	}
}

func (b *builder) isAsync(mod *graph.Module) bool {
	return mod.Async || b.opts.AsyncModules[mod.Path]
}

// aggregateEntryCSS fills entryCssFiles: each app-route group's key
// receives the group's own stylesheet files plus those of every parent
// group, first-seen order preserved. A route must include stylesheets
// pulled in transitively through ancestor groups.
func (b *builder) aggregateEntryCSS(snap *graph.Snapshot, styles map[string][]string) {
	for _, group := range snap.Groups {
		if !appRouteRE.MatchString(group.Name) {
			continue
		}
		files := append([]string(nil), styles[group.Name]...)
		for _, parent := range group.Parents {
			files = append(files, styles[parent]...)
		}
		if len(files) == 0 {
			continue
		}
		b.m.css.append(b.entryKey(group.Name), files)
	}
}

// entryKey derives the entry-CSS key from an app-route group name: the
// appDir-joined path with the namespace prefix stripped and any file
// extension removed, using platform separators.
func (b *builder) entryKey(name string) string {
	trimmed := strings.TrimPrefix(name, "app")
	key := filepath.Join(b.opts.AppDir, trimmed)
	if ext := filepath.Ext(key); ext != "" {
		key = strings.TrimSuffix(key, ext)
	}
	return key
}

// requiredChunks lists the deduplicated chunk descriptors a client must
// load for any module in the group, excluding internal bootstrap chunks.
// Production descriptors carry the content hash for cache busting; dev
// output stays hash-free for stability.
func requiredChunks(group *graph.BundleGroup, dev bool) []string {
	var descriptors []string
	seen := make(map[string]bool)
	for _, chunk := range group.Chunks {
		if chunk.Bootstrap {
			continue
		}
		desc := chunk.ID + ":" + chunk.Name
		if !dev && chunk.Hash != "" {
			desc += "-" + chunk.Hash
		}
		if seen[desc] {
			continue
		}
		seen[desc] = true
		descriptors = append(descriptors, desc)
	}
	return descriptors
}

// styleFiles collects the group's stylesheet output files in chunk order.
func styleFiles(group *graph.BundleGroup) []string {
	var files []string
	seen := make(map[string]bool)
	for _, chunk := range group.Chunks {
		for _, f := range chunk.Files {
			if !strings.HasSuffix(f, ".css") || seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	return files
}

// mergeChunks unions two chunk lists, keeping existing entries first.
func mergeChunks(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range incoming {
		if !seen[c] {
			seen[c] = true
			existing = append(existing, c)
		}
	}
	return existing
}

// relativeModuleID normalizes a module path to the build-relative form the
// SSR id tables are keyed by: forward slashes, always starting with a
// relative-path marker.
func relativeModuleID(projectDir, path string) string {
	rel := path
	if projectDir != "" {
		if r, err := filepath.Rel(projectDir, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
