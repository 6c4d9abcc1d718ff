package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chunkmap/chunkmap/internal/graph"
	"github.com/chunkmap/chunkmap/internal/manifest"
)

var manifestGraphPath string

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Emit the reference manifest from a saved graph snapshot",
	Long: `Derive the client-reference manifest from a previously saved bundle
graph snapshot instead of running a fresh build. Useful when the bundler
runs elsewhere and only the graph is shipped here.

Examples:
  chunkmap manifest --graph graph.json --out dist
  chunkmap manifest --graph graph.json --production --ssr-manifest ssr-ids.json`,
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().StringVar(&manifestGraphPath, "graph", "", "path to the graph snapshot JSON")
	_ = manifestCmd.MarkFlagRequired("graph")

	manifestCmd.Flags().StringVar(&buildProjectDir, "project-dir", "", "project root directory")
	manifestCmd.Flags().StringVar(&buildAppDir, "app-dir", "", "application route directory")
	manifestCmd.Flags().StringVar(&buildOutDir, "out", "", "output directory for the manifest")
	manifestCmd.Flags().BoolVar(&buildProduction, "production", false, "emit minified, content-hashed output")
	manifestCmd.Flags().StringVar(&buildSSRTable, "ssr-manifest", "", "id table exported by the SSR build")
	manifestCmd.Flags().StringVar(&buildEdgeTable, "edge-ssr-manifest", "", "id table exported by the edge SSR build")
	manifestCmd.Flags().StringSliceVar(&buildClientReqs, "client-request", nil, "module path recorded as a client entry request (repeatable)")
	manifestCmd.Flags().StringSliceVar(&buildAsyncMods, "async-module", nil, "module path that must load asynchronously (repeatable)")
	manifestCmd.Flags().StringVar(&mirrorSubtree, "mirror-subtree", "", "library subtree to mirror")
	manifestCmd.Flags().StringVar(&mirrorVariant, "mirror-variant", "", "variant path receiving mirrored records")
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, err := loadBuildConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := graph.LoadSnapshot(manifestGraphPath)
	if err != nil {
		return err
	}

	buildID := uuid.New().String()
	logger := log.With().Str("build_id", buildID).Logger()
	logger.Info().
		Str("graph", manifestGraphPath).
		Int("groups", len(snap.Groups)).
		Msg("Building manifest from snapshot")

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

	f := GetFormatter()
	f.PrintSuccess(fmt.Sprintf("Manifest written to %s (%d client reference(s))",
		cfg.Build.OutDir, m.Len()))
	return nil
}
