package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkmap/chunkmap/internal/graph"
)

func clientModule(path string, id graph.ModuleID, exports ...string) *graph.Module {
	return &graph.Module{
		Path:            path,
		ID:              id,
		Layer:           graph.LayerClient,
		ClientDirective: true,
		Exports:         exports,
	}
}

func pageGroup(name string, chunks ...*graph.Chunk) *graph.BundleGroup {
	return &graph.BundleGroup{Name: name, Chunks: chunks}
}

func TestBuildScenario(t *testing.T) {
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID:      "1",
			Name:    "main",
			Hash:    "abc123",
			Files:   []string{"main.js"},
			Modules: []*graph.Module{clientModule("./comp.js", graph.IntID(42), "*", "", "Foo")},
		}),
	}}

	t.Run("development", func(t *testing.T) {
		m, err := Build(snap, Options{Dev: true})
		require.NoError(t, err)

		for _, export := range []string{NamespaceExport, AnonymousExport, "Foo"} {
			rec, ok := m.Record(RefKey{Path: "./comp.js", Export: export})
			require.True(t, ok, "missing record for export %q", export)
			assert.Equal(t, export, rec.Name)
			assert.Equal(t, []string{"1:main"}, rec.Chunks)
			assert.Equal(t, "42", rec.ID.String())
			assert.False(t, rec.Async)
		}
		assert.Equal(t, []string{"./comp.js", "./comp.js#", "./comp.js#Foo"}, m.Keys())

		// Empty lookup tables produce no cross-link records.
		_, ok := m.SSRRecord("42", NamespaceExport)
		assert.False(t, ok)
	})

	t.Run("production adds hash suffix", func(t *testing.T) {
		m, err := Build(snap, Options{Dev: false})
		require.NoError(t, err)

		rec, ok := m.Record(RefKey{Path: "./comp.js", Export: "Foo"})
		require.True(t, ok)
		assert.Equal(t, []string{"1:main-abc123"}, rec.Chunks)
	})
}

func TestBuildDeterministic(t *testing.T) {
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page",
			&graph.Chunk{ID: "1", Name: "main", Files: []string{"main.js", "page.css"}, Modules: []*graph.Module{
				clientModule("./a.js", graph.IntID(1), "A", "B"),
				clientModule("./b.js", graph.StringID("./b.js"), "default"),
				{Path: "./page.css", ID: graph.IntID(9)},
			}},
			&graph.Chunk{ID: "2", Name: "vendor", Hash: "ff00", Files: []string{"vendor.js"}},
		),
	}}
	opts := Options{
		SSRModules: map[string]graph.ModuleID{"./a.js": graph.IntID(11)},
	}

	first, err := Build(snap, opts)
	require.NoError(t, err)
	second, err := Build(snap, opts)
	require.NoError(t, err)

	a, err := Encode(first, false)
	require.NoError(t, err)
	b, err := Encode(second, false)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestStylesheetChunkDedup(t *testing.T) {
	sheet := func(id int64) *graph.Module {
		return &graph.Module{Path: "./styles.css", ID: graph.IntID(id)}
	}
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID: "1", Name: "page", Files: []string{"a.css", "shared.css"},
			Modules: []*graph.Module{sheet(1)},
		}),
		pageGroup("app/other/page", &graph.Chunk{
			ID: "2", Name: "other", Files: []string{"shared.css", "b.css"},
			Modules: []*graph.Module{sheet(1)},
		}),
	}}

	m, err := Build(snap, Options{Dev: true})
	require.NoError(t, err)

	rec, ok := m.Record(RefKey{Path: "./styles.css", Export: AnonymousExport})
	require.True(t, ok)
	assert.Equal(t, []string{"a.css", "shared.css", "b.css"}, rec.Chunks)
}

func TestAppRoutePrecedence(t *testing.T) {
	mod := func() *graph.Module { return clientModule("./shared.js", graph.IntID(5), "Widget") }
	appGroup := pageGroup("app/page", &graph.Chunk{ID: "1", Name: "app-page", Modules: []*graph.Module{mod()}})
	otherGroup := pageGroup("client-shared", &graph.Chunk{ID: "2", Name: "shared", Modules: []*graph.Module{mod()}})

	tests := []struct {
		name   string
		groups []*graph.BundleGroup
	}{
		{"app group first", []*graph.BundleGroup{appGroup, otherGroup}},
		{"app group last", []*graph.BundleGroup{otherGroup, appGroup}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(&graph.Snapshot{Groups: tt.groups}, Options{Dev: true})
			require.NoError(t, err)

			rec, ok := m.Record(RefKey{Path: "./shared.js", Export: "Widget"})
			require.True(t, ok)
			assert.Equal(t, []string{"1:app-page"}, rec.Chunks,
				"app-route group must win regardless of processing order")
		})
	}
}

func TestMirroredVariantSharesRecord(t *testing.T) {
	path := "node_modules/lib/dist/client/button.js"
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID: "1", Name: "main",
			Modules: []*graph.Module{clientModule(path, graph.IntID(3), "Button")},
		}),
	}}

	m, err := Build(snap, Options{
		Dev: true,
		Mirror: &MirrorRule{
			Subtree: "node_modules/lib/dist/",
			Variant: "node_modules/lib/dist/esm/",
		},
	})
	require.NoError(t, err)

	orig, ok := m.Record(RefKey{Path: path, Export: "Button"})
	require.True(t, ok)
	twin, ok := m.Record(RefKey{Path: "node_modules/lib/dist/esm/client/button.js", Export: "Button"})
	require.True(t, ok)
	assert.Same(t, orig, twin, "mirrored record must share the original object")
}

func TestSSRCrossLink(t *testing.T) {
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID: "1", Name: "main",
			Modules: []*graph.Module{
				clientModule("./linked.js", graph.IntID(1), "Foo"),
				clientModule("./unlinked.js", graph.IntID(2), "Bar"),
			},
		}),
	}}

	m, err := Build(snap, Options{
		Dev:            true,
		SSRModules:     map[string]graph.ModuleID{"./linked.js": graph.IntID(101)},
		EdgeSSRModules: map[string]graph.ModuleID{"./linked.js": graph.StringID("edge-101")},
	})
	require.NoError(t, err)

	for _, export := range []string{NamespaceExport, AnonymousExport, "Foo"} {
		shadow, ok := m.SSRRecord("1", export)
		require.True(t, ok, "missing ssr record for export %q", export)
		assert.Equal(t, "101", shadow.ID.String())

		edge, ok := m.EdgeSSRRecord("1", export)
		require.True(t, ok)
		assert.Equal(t, "edge-101", edge.ID.String())

		orig, ok := m.Record(RefKey{Path: "./linked.js", Export: export})
		require.True(t, ok)
		assert.Equal(t, orig.Chunks, shadow.Chunks, "shadow record copies chunk data")
	}

	_, ok := m.SSRRecord("2", NamespaceExport)
	assert.False(t, ok, "lookup miss must not produce a record")
	_, ok = m.EdgeSSRRecord("2", NamespaceExport)
	assert.False(t, ok)
}

func TestConcatenatedModulesShareParentID(t *testing.T) {
	outer := clientModule("./outer.js", graph.IntID(7), "Outer")
	outer.Concatenated = []*graph.Module{
		clientModule("./inner.js", graph.ModuleID{}, "Inner"),
	}
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{ID: "1", Name: "main", Modules: []*graph.Module{outer}}),
	}}

	m, err := Build(snap, Options{Dev: true})
	require.NoError(t, err)

	inner, ok := m.Record(RefKey{Path: "./inner.js", Export: "Inner"})
	require.True(t, ok, "inner module must stay addressable by its own path")
	assert.Equal(t, "7", inner.ID.String())
}

func TestAsyncHandoff(t *testing.T) {
	set := graph.NewAsyncSet()
	set.Add("./lazy.js")

	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID: "1", Name: "main",
			Modules: []*graph.Module{
				clientModule("./lazy.js", graph.IntID(1)),
				clientModule("./eager.js", graph.IntID(2)),
			},
		}),
	}}

	m, err := Build(snap, Options{Dev: true, AsyncModules: set.Drain()})
	require.NoError(t, err)

	lazy, _ := m.Record(RefKey{Path: "./lazy.js", Export: NamespaceExport})
	assert.True(t, lazy.Async)
	eager, _ := m.Record(RefKey{Path: "./eager.js", Export: NamespaceExport})
	assert.False(t, eager.Async)

	assert.Empty(t, set.Drain(), "first drain must reset the accumulator")
}

func TestMissingBundleIDAborts(t *testing.T) {
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page", &graph.Chunk{
			ID: "1", Name: "main",
			Modules: []*graph.Module{clientModule("./broken.js", graph.ModuleID{})},
		}),
	}}

	_, err := Build(snap, Options{Dev: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "./broken.js")
}

func TestEntryCSSInheritance(t *testing.T) {
	parent := pageGroup("client-shared", &graph.Chunk{
		ID: "9", Name: "shared", Files: []string{"x.css"},
	})
	route := &graph.BundleGroup{
		Name:    "app/page",
		Parents: []string{"client-shared"},
		Chunks:  []*graph.Chunk{{ID: "1", Name: "page", Files: []string{"page.js"}}},
	}
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{parent, route}}

	m, err := Build(snap, Options{Dev: true, AppDir: "/proj/app"})
	require.NoError(t, err)

	key := m.EntryKeys()
	require.Len(t, key, 1)
	assert.True(t, strings.HasSuffix(key[0], "page"))
	assert.Equal(t, []string{"x.css"}, m.EntryCSS(key[0]),
		"route entry inherits stylesheets from ancestor groups")
}

func TestEntryCSSOrderAndExtension(t *testing.T) {
	snap := &graph.Snapshot{Groups: []*graph.BundleGroup{
		pageGroup("app/page.js", &graph.Chunk{ID: "1", Name: "a", Files: []string{"a.css"}}),
		pageGroup("app/page.tsx", &graph.Chunk{ID: "2", Name: "b", Files: []string{"b.css", "a.css"}}),
	}}

	m, err := Build(snap, Options{Dev: true, AppDir: "/proj/app"})
	require.NoError(t, err)

	keys := m.EntryKeys()
	require.Len(t, keys, 1, "extension-stripped names must collapse to one key")
	assert.Equal(t, []string{"a.css", "b.css"}, m.EntryCSS(keys[0]),
		"first-seen ordering preserved, duplicates dropped")
}

func TestRequiredChunksSkipBootstrap(t *testing.T) {
	group := pageGroup("app/page",
		&graph.Chunk{ID: "0", Name: "runtime", Bootstrap: true},
		&graph.Chunk{ID: "1", Name: "main", Hash: "beef"},
		&graph.Chunk{ID: "1", Name: "main", Hash: "beef"},
	)

	assert.Equal(t, []string{"1:main"}, requiredChunks(group, true))
	assert.Equal(t, []string{"1:main-beef"}, requiredChunks(group, false))
}

func TestRelativeModuleID(t *testing.T) {
	tests := []struct {
		projectDir string
		path       string
		want       string
	}{
		{"", "./comp.js", "./comp.js"},
		{"", "comp.js", "./comp.js"},
		{"/proj", "/proj/src/comp.js", "./src/comp.js"},
		{"/proj/sub", "/proj/comp.js", "../comp.js"},
	}
	for _, tt := range tests {
		if got := relativeModuleID(tt.projectDir, tt.path); got != tt.want {
			t.Errorf("relativeModuleID(%q, %q) = %q, want %q", tt.projectDir, tt.path, got, tt.want)
		}
	}
}
