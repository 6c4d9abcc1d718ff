package bundler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// Options configures one client build.
type Options struct {
	// ProjectDir is the absolute working directory; metafile paths are
	// relative to it.
	ProjectDir string
	// Entries are the entry point files, relative to ProjectDir.
	Entries []string
	// OutDir receives the emitted chunk files.
	OutDir string
	// Production enables minification and content-hashed chunk names.
	Production bool
}

// Result is one finished build: the parsed metafile plus the files esbuild
// wrote to disk.
type Result struct {
	Metafile    *Metafile
	OutputFiles []string
}

// Build bundles the client entries with esbuild, splitting shared code
// into separate chunks and emitting the metafile the graph adapter needs.
func Build(opts Options) (*Result, error) {
	buildOpts := api.BuildOptions{
		EntryPoints:   opts.Entries,
		Outdir:        opts.OutDir,
		AbsWorkingDir: opts.ProjectDir,
		Bundle:        true,
		Splitting:     true,
		Write:         true,
		Metafile:      true,
		Format:        api.FormatESModule,
		Platform:      api.PlatformBrowser,
		Target:        api.ESNext,
		EntryNames:    "[dir]/[name]",
		ChunkNames:    "chunks/chunk-[hash]",
	}
	if opts.Production {
		buildOpts.MinifyWhitespace = true
		buildOpts.MinifyIdentifiers = true
		buildOpts.MinifySyntax = true
	}

	result := api.Build(buildOpts)
	if len(result.Errors) > 0 {
		var errMsgs []string
		for _, err := range result.Errors {
			errMsgs = append(errMsgs, err.Text)
		}
		return nil, fmt.Errorf("client build failed: %s", strings.Join(errMsgs, "; "))
	}

	var meta Metafile
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	// esbuild reports written files only through the metafile when Write
	// is enabled.
	files := make([]string, 0, len(meta.Outputs))
	for name := range meta.Outputs {
		files = append(files, name)
	}
	sort.Strings(files)

	log.Debug().
		Int("entries", len(opts.Entries)).
		Int("outputs", len(meta.Outputs)).
		Msg("Client build finished")
	return &Result{Metafile: &meta, OutputFiles: files}, nil
}
