package bundler

import (
	"sort"
)

// Analysis summarizes the size breakdown of one build.
type Analysis struct {
	TotalBytes int
	Outputs    []OutputAnalysis
}

// OutputAnalysis describes one emitted chunk file.
type OutputAnalysis struct {
	Path            string
	EntryPoint      string
	Bytes           int
	Inputs          []InputAnalysis
	ExternalImports []string
}

// InputAnalysis describes one source module's contribution to a chunk.
type InputAnalysis struct {
	Path          string
	Bytes         int
	BytesInOutput int
	Percentage    float64
}

// Analyze processes a metafile into a per-chunk size breakdown. Outputs are
// ordered largest first; within a chunk, inputs are ordered by their
// contribution.
func Analyze(meta *Metafile) *Analysis {
	result := &Analysis{}

	for path, output := range meta.Outputs {
		oa := OutputAnalysis{
			Path:       path,
			EntryPoint: output.EntryPoint,
			Bytes:      output.Bytes,
		}
		result.TotalBytes += output.Bytes

		for _, imp := range output.Imports {
			if imp.External {
				oa.ExternalImports = append(oa.ExternalImports, imp.Path)
			}
		}
		sort.Strings(oa.ExternalImports)

		for inputPath, contrib := range output.Inputs {
			inputInfo, ok := meta.Inputs[inputPath]
			if !ok {
				continue
			}

			percentage := 0.0
			if output.Bytes > 0 {
				percentage = float64(contrib.BytesInOutput) / float64(output.Bytes) * 100
			}

			oa.Inputs = append(oa.Inputs, InputAnalysis{
				Path:          inputPath,
				Bytes:         inputInfo.Bytes,
				BytesInOutput: contrib.BytesInOutput,
				Percentage:    percentage,
			})
		}

		// Sort by bytes in output (largest first), path breaks ties so the
		// order is stable across runs.
		sort.Slice(oa.Inputs, func(i, j int) bool {
			if oa.Inputs[i].BytesInOutput != oa.Inputs[j].BytesInOutput {
				return oa.Inputs[i].BytesInOutput > oa.Inputs[j].BytesInOutput
			}
			return oa.Inputs[i].Path < oa.Inputs[j].Path
		})

		result.Outputs = append(result.Outputs, oa)
	}

	sort.Slice(result.Outputs, func(i, j int) bool {
		if result.Outputs[i].Bytes != result.Outputs[j].Bytes {
			return result.Outputs[i].Bytes > result.Outputs[j].Bytes
		}
		return result.Outputs[i].Path < result.Outputs[j].Path
	})

	return result
}
