package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Name is the fixed base name of the emitted manifest artifacts.
const Name = "client-reference-manifest"

// globalAssignment exposes the manifest to a browser runtime without a
// module loader.
const globalAssignment = "self.__RSC_MANIFEST="

// Encode serializes the manifest: minified for production, 2-space
// pretty-printed for development. Both modes carry the identical
// structure; only whitespace differs.
func Encode(m *Manifest, dev bool) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if !dev {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write emits the two manifest artifacts under dir: the JSON document and
// the script assigning it to the well-known global.
func Write(dir string, m *Manifest, dev bool) error {
	data, err := Encode(m, dev)
	if err != nil {
		return err
	}

	jsonPath := filepath.Join(dir, Name+".json")
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}

	script := append([]byte(globalAssignment), data...)
	scriptPath := filepath.Join(dir, Name+".js")
	if err := os.WriteFile(scriptPath, script, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", scriptPath, err)
	}

	log.Debug().
		Str("json", jsonPath).
		Str("script", scriptPath).
		Int("bytes", len(data)).
		Msg("Manifest artifacts written")
	return nil
}
