package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chunkmap/chunkmap/cli/output"
	"github.com/chunkmap/chunkmap/internal/manifest"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show the contents of an emitted manifest",
	Long: `Read an emitted client-reference manifest and list its records.

Examples:
  chunkmap inspect
  chunkmap inspect dist/` + manifest.Name + `.json -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := filepath.Join("dist", manifest.Name+".json")
	if len(args) == 1 {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	var ssr, edge map[string]map[string]manifest.ModuleRecord
	var css map[string][]string
	if raw, ok := top["ssrModuleMapping"]; ok {
		if err := json.Unmarshal(raw, &ssr); err != nil {
			return fmt.Errorf("failed to parse ssr module mapping: %w", err)
		}
		delete(top, "ssrModuleMapping")
	}
	if raw, ok := top["edgeSsrModuleMapping"]; ok {
		if err := json.Unmarshal(raw, &edge); err != nil {
			return fmt.Errorf("failed to parse edge ssr module mapping: %w", err)
		}
		delete(top, "edgeSsrModuleMapping")
	}
	if raw, ok := top["entryCssFiles"]; ok {
		if err := json.Unmarshal(raw, &css); err != nil {
			return fmt.Errorf("failed to parse entry css index: %w", err)
		}
		delete(top, "entryCssFiles")
	}

	keys := make([]string, 0, len(top))
	for key := range top {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		var rec manifest.ModuleRecord
		if err := json.Unmarshal(top[key], &rec); err != nil {
			return fmt.Errorf("failed to parse record %s: %w", key, err)
		}
		rows = append(rows, []string{
			key,
			rec.ID.String(),
			rec.Name,
			strings.Join(rec.Chunks, ", "),
			strconv.FormatBool(rec.Async),
		})
	}

	f := GetFormatter()
	f.PrintTable(output.TableData{
		Headers: []string{"KEY", "ID", "EXPORT", "CHUNKS", "ASYNC"},
		Rows:    rows,
	})
	f.PrintKeyValue("records", strconv.Itoa(len(rows)))
	f.PrintKeyValue("ssr mappings", strconv.Itoa(len(ssr)))
	f.PrintKeyValue("edge ssr mappings", strconv.Itoa(len(edge)))
	f.PrintKeyValue("entry css keys", strconv.Itoa(len(css)))
	return nil
}
