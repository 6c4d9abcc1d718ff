// Package manifest builds the client-reference manifest: a deterministic
// index mapping server-rendered component modules to the client bundle
// ids, chunk files and export names a runtime needs to hydrate them, plus
// the id mappings of the separate SSR and edge-SSR builds and the per-entry
// stylesheet index.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chunkmap/chunkmap/internal/graph"
)

// NamespaceExport represents a module's whole namespace; AnonymousExport is
// the default/anonymous re-export used for side-effect-only or
// default-shaped modules.
const (
	NamespaceExport = "*"
	AnonymousExport = ""
)

// RefKey identifies one manifest entry: a module path plus the export name
// the entry represents. The string form is the on-wire composite key.
type RefKey struct {
	Path   string
	Export string
}

// String renders the composite key: the bare path for the namespace
// export, "path#" for the anonymous export, "path#name" otherwise.
func (k RefKey) String() string {
	if k.Export == NamespaceExport {
		return k.Path
	}
	return k.Path + "#" + k.Export
}

// ModuleRecord is one manifest entry for a (module path, export name) pair.
type ModuleRecord struct {
	ID     graph.ModuleID `json:"id"`
	Name   string         `json:"name"`
	Chunks []string       `json:"chunks"`
	Async  bool           `json:"async"`
}

// WithID returns a copy of the record resolving to a different build's id.
// The chunk list is shared; the record data is identical by construction.
func (r *ModuleRecord) WithID(id graph.ModuleID) *ModuleRecord {
	clone := *r
	clone.ID = id
	return &clone
}

// records is an insertion-ordered composite-key -> record map. Order is
// preserved so two passes over the same snapshot serialize identically.
type records struct {
	keys []string
	vals map[string]*ModuleRecord
}

func newRecords() *records {
	return &records{vals: make(map[string]*ModuleRecord)}
}

func (r *records) get(key string) (*ModuleRecord, bool) {
	rec, ok := r.vals[key]
	return rec, ok
}

func (r *records) set(key string, rec *ModuleRecord) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = rec
}

// moduleMapping is an insertion-ordered module-id -> export-name -> record
// table, used for the SSR and edge-SSR cross-link sub-maps.
type moduleMapping struct {
	ids  []string
	vals map[string]*records
}

func newModuleMapping() *moduleMapping {
	return &moduleMapping{vals: make(map[string]*records)}
}

func (m *moduleMapping) set(id, export string, rec *ModuleRecord) {
	exports, ok := m.vals[id]
	if !ok {
		exports = newRecords()
		m.ids = append(m.ids, id)
		m.vals[id] = exports
	}
	exports.set(export, rec)
}

func (m *moduleMapping) get(id, export string) (*ModuleRecord, bool) {
	exports, ok := m.vals[id]
	if !ok {
		return nil, false
	}
	return exports.get(export)
}

// cssIndex is an insertion-ordered entry-key -> stylesheet-list map with
// first-seen dedup on append.
type cssIndex struct {
	keys []string
	vals map[string][]string
	seen map[string]map[string]bool
}

func newCSSIndex() *cssIndex {
	return &cssIndex{
		vals: make(map[string][]string),
		seen: make(map[string]map[string]bool),
	}
}

func (c *cssIndex) append(key string, files []string) {
	seen, ok := c.seen[key]
	if !ok {
		seen = make(map[string]bool)
		c.keys = append(c.keys, key)
		c.seen[key] = seen
	}
	for _, f := range files {
		if seen[f] {
			continue
		}
		seen[f] = true
		c.vals[key] = append(c.vals[key], f)
	}
}

// Manifest is the finished index for one build. It is created empty,
// populated by a single synchronous pass over the snapshot, and not
// mutated after serialization.
type Manifest struct {
	mods    *records
	ssr     *moduleMapping
	edgeSSR *moduleMapping
	css     *cssIndex
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		mods:    newRecords(),
		ssr:     newModuleMapping(),
		edgeSSR: newModuleMapping(),
		css:     newCSSIndex(),
	}
}

// Record returns the record stored under key, if any.
func (m *Manifest) Record(key RefKey) (*ModuleRecord, bool) {
	return m.mods.get(key.String())
}

// SetRecord stores rec under key, overwriting any previous record.
func (m *Manifest) SetRecord(key RefKey, rec *ModuleRecord) {
	m.mods.set(key.String(), rec)
}

// SSRRecord returns the SSR cross-link record for a client module id and
// export name, if any.
func (m *Manifest) SSRRecord(id, export string) (*ModuleRecord, bool) {
	return m.ssr.get(id, export)
}

// EdgeSSRRecord returns the edge-SSR cross-link record, if any.
func (m *Manifest) EdgeSSRRecord(id, export string) (*ModuleRecord, bool) {
	return m.edgeSSR.get(id, export)
}

// EntryCSS returns the stylesheet list aggregated for an entry key.
func (m *Manifest) EntryCSS(key string) []string {
	return m.css.vals[key]
}

// Len reports the number of module records.
func (m *Manifest) Len() int { return len(m.mods.keys) }

// Keys returns the composite record keys in insertion order.
func (m *Manifest) Keys() []string {
	keys := make([]string, len(m.mods.keys))
	copy(keys, m.mods.keys)
	return keys
}

// EntryKeys returns the entry-CSS keys in insertion order.
func (m *Manifest) EntryKeys() []string {
	keys := make([]string, len(m.css.keys))
	copy(keys, m.css.keys)
	return keys
}

// MarshalJSON serializes the manifest as one minified JSON object: every
// module record keyed by its composite key, followed by the three named
// sub-maps. Key order is insertion order, so output is byte-deterministic
// for a fixed snapshot.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, key := range m.mods.keys {
		if err := writeMember(&buf, key, m.mods.vals[key]); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, "ssrModuleMapping", m.ssr); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeMember(&buf, "edgeSsrModuleMapping", m.edgeSSR); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeMember(&buf, "entryCssFiles", m.css); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *records) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, key, r.vals[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *moduleMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, id, m.vals[id]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *cssIndex) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, key, c.vals[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, val any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to encode manifest key %q: %w", key, err)
	}
	v, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode manifest entry %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
