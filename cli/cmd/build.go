package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chunkmap/chunkmap/internal/bundler"
	"github.com/chunkmap/chunkmap/internal/config"
	"github.com/chunkmap/chunkmap/internal/graph"
	"github.com/chunkmap/chunkmap/internal/manifest"
)

var (
	buildProjectDir string
	buildAppDir     string
	buildOutDir     string
	buildEntries    []string
	buildProduction bool
	buildSSRTable   string
	buildEdgeTable  string
	buildClientReqs []string
	buildAsyncMods  []string
	mirrorSubtree   string
	mirrorVariant   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle client entries and emit the reference manifest",
	Long: `Bundle the client entry points with code splitting, then derive the
client-reference manifest from the resulting module graph.

Examples:
  chunkmap build --entry app/page.tsx
  chunkmap build --entry app/page.tsx --production --ssr-manifest ssr-ids.json`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildProjectDir, "project-dir", "", "project root directory")
	buildCmd.Flags().StringVar(&buildAppDir, "app-dir", "", "application route directory")
	buildCmd.Flags().StringVar(&buildOutDir, "out", "", "output directory for chunks and manifest")
	buildCmd.Flags().StringSliceVar(&buildEntries, "entry", nil, "entry point, relative to the project dir (repeatable)")
	buildCmd.Flags().BoolVar(&buildProduction, "production", false, "minify output and hash chunk names")
	buildCmd.Flags().StringVar(&buildSSRTable, "ssr-manifest", "", "id table exported by the SSR build")
	buildCmd.Flags().StringVar(&buildEdgeTable, "edge-ssr-manifest", "", "id table exported by the edge SSR build")
	buildCmd.Flags().StringSliceVar(&buildClientReqs, "client-request", nil, "module path recorded as a client entry request (repeatable)")
	buildCmd.Flags().StringSliceVar(&buildAsyncMods, "async-module", nil, "module path that must load asynchronously (repeatable)")
	buildCmd.Flags().StringVar(&mirrorSubtree, "mirror-subtree", "", "library subtree to mirror")
	buildCmd.Flags().StringVar(&mirrorVariant, "mirror-variant", "", "variant path receiving mirrored records")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadBuildConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Build.Entries) == 0 {
		return fmt.Errorf("no entry points given (use --entry or build.entries)")
	}

	buildID := uuid.New().String()
	logger := log.With().Str("build_id", buildID).Logger()
	logger.Info().
		Strs("entries", cfg.Build.Entries).
		Bool("production", cfg.Build.Production).
		Msg("Starting client build")

	result, err := bundler.Build(bundler.Options{
		ProjectDir: cfg.Build.ProjectDir,
		Entries:    cfg.Build.Entries,
		OutDir:     cfg.Build.OutDir,
		Production: cfg.Build.Production,
	})
	if err != nil {
		return err
	}
	snap := bundler.Snapshot(result.Metafile, cfg.Build.ProjectDir)

	opts, err := manifestOptions(cfg)
	if err != nil {
		return err
	}
	m, err := manifest.Build(snap, opts)
	if err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}
	if err := manifest.Write(cfg.Build.OutDir, m, !cfg.Build.Production); err != nil {
		return err
	}

	logger.Info().
		Int("groups", len(snap.Groups)).
		Int("references", m.Len()).
		Msg("Manifest emitted")

	f := GetFormatter()
	f.PrintSuccess(fmt.Sprintf("Built %d output file(s), %d client reference(s)",
		len(result.OutputFiles), m.Len()))
	return nil
}

// loadBuildConfig loads the file/env configuration and overlays any flags
// set on the command line.
func loadBuildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("project-dir") {
		cfg.Build.ProjectDir = buildProjectDir
	}
	if flags.Changed("app-dir") {
		cfg.Build.AppDir = buildAppDir
	}
	if flags.Changed("out") {
		cfg.Build.OutDir = buildOutDir
	}
	if flags.Changed("entry") {
		cfg.Build.Entries = buildEntries
	}
	if flags.Changed("production") {
		cfg.Build.Production = buildProduction
	}
	if flags.Changed("ssr-manifest") {
		cfg.Build.SSRManifest = buildSSRTable
	}
	if flags.Changed("edge-ssr-manifest") {
		cfg.Build.EdgeSSRManifest = buildEdgeTable
	}
	if flags.Changed("mirror-subtree") {
		cfg.Mirror.Subtree = mirrorSubtree
	}
	if flags.Changed("mirror-variant") {
		cfg.Mirror.Variant = mirrorVariant
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// manifestOptions assembles the manifest build options from configuration,
// loading the sibling builds' id tables when configured.
func manifestOptions(cfg *config.Config) (manifest.Options, error) {
	opts := manifest.Options{
		Dev:        !cfg.Build.Production,
		AppDir:     cfg.Build.AppDir,
		ProjectDir: cfg.Build.ProjectDir,
	}

	if len(buildClientReqs) > 0 {
		opts.ClientRequests = make(map[string]bool, len(buildClientReqs))
		for _, path := range buildClientReqs {
			opts.ClientRequests[path] = true
		}
	}

	if cfg.Build.SSRManifest != "" {
		table, err := graph.LoadIDTable(cfg.Build.SSRManifest)
		if err != nil {
			return opts, err
		}
		opts.SSRModules = table
	}
	if cfg.Build.EdgeSSRManifest != "" {
		table, err := graph.LoadIDTable(cfg.Build.EdgeSSRManifest)
		if err != nil {
			return opts, err
		}
		opts.EdgeSSRModules = table
	}

	if len(buildAsyncMods) > 0 {
		set := graph.NewAsyncSet()
		for _, path := range buildAsyncMods {
			set.Add(path)
		}
		opts.AsyncModules = set.Drain()
	}

	if cfg.Mirror.Subtree != "" {
		opts.Mirror = &manifest.MirrorRule{
			Subtree: cfg.Mirror.Subtree,
			Variant: cfg.Mirror.Variant,
		}
	}
	return opts, nil
}
