package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadIDTable reads a JSON object mapping normalized module paths to the
// bundle ids a sibling build assigned to them. Sibling server builds export
// these tables so their ids can be cross-referenced here.
func LoadIDTable(path string) (map[string]ModuleID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read id table %s: %w", path, err)
	}
	var table map[string]ModuleID
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse id table %s: %w", path, err)
	}
	return table, nil
}
