package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chunkmap/chunkmap/cli/output"
	"github.com/chunkmap/chunkmap/internal/bundler"
)

var analyzeTop int

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze client bundle sizes",
	Long: `Bundle the client entries and break down each emitted chunk by the
source modules contributing to it.

Examples:
  chunkmap analyze --entry app/page.tsx
  chunkmap analyze --entry app/page.tsx --top 5 -o json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&buildProjectDir, "project-dir", "", "project root directory")
	analyzeCmd.Flags().StringVar(&buildOutDir, "out", "", "output directory for chunks")
	analyzeCmd.Flags().StringSliceVar(&buildEntries, "entry", nil, "entry point, relative to the project dir (repeatable)")
	analyzeCmd.Flags().BoolVar(&buildProduction, "production", false, "minify output and hash chunk names")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 10, "number of contributors to show per chunk")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadBuildConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Build.Entries) == 0 {
		return fmt.Errorf("no entry points given (use --entry or build.entries)")
	}

	result, err := bundler.Build(bundler.Options{
		ProjectDir: cfg.Build.ProjectDir,
		Entries:    cfg.Build.Entries,
		OutDir:     cfg.Build.OutDir,
		Production: cfg.Build.Production,
	})
	if err != nil {
		return err
	}

	analysis := bundler.Analyze(result.Metafile)

	f := GetFormatter()
	if f.Format != output.FormatTable {
		return f.Print(analysis)
	}

	for _, out := range analysis.Outputs {
		label := out.Path
		if out.EntryPoint != "" {
			label += " (entry: " + out.EntryPoint + ")"
		}
		f.PrintKeyValue(label, formatBytes(out.Bytes))

		rows := make([][]string, 0, len(out.Inputs))
		for i, input := range out.Inputs {
			if i >= analyzeTop {
				rows = append(rows, []string{
					fmt.Sprintf("... %d more", len(out.Inputs)-analyzeTop), "", "",
				})
				break
			}
			rows = append(rows, []string{
				input.Path,
				formatBytes(input.BytesInOutput),
				fmt.Sprintf("%.1f%%", input.Percentage),
			})
		}
		f.PrintTable(output.TableData{
			Headers: []string{"MODULE", "SIZE", "SHARE"},
			Rows:    rows,
		})
		if len(out.ExternalImports) > 0 {
			f.PrintKeyValue("external", strings.Join(out.ExternalImports, ", "))
		}
	}

	f.PrintKeyValue("total", formatBytes(analysis.TotalBytes))
	return nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
