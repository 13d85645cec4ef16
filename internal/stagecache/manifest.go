package stagecache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"subpipe/internal/fileutil"
)

// ManifestFileName is the manifest's location inside a stage output directory.
const ManifestFileName = "manifest.json"

// Manifest records the inputs, parameters, and version that produced a
// stage's outputs. Two manifests with equal inputs checksum, params, and
// runner version represent interchangeable executions.
type Manifest struct {
	StageName      string          `json:"stage_name"`
	Inputs         []string        `json:"inputs"`
	InputsChecksum string          `json:"inputs_checksum"`
	Params         json.RawMessage `json:"params"`
	RunnerVersion  string          `json:"runner_version"`
	Outputs        []string        `json:"outputs"`
	// Timestamp is the last time real work happened.
	Timestamp int64 `json:"timestamp"`
	// LastCheckedTS advances on every cache check, including skips.
	LastCheckedTS int64 `json:"last_checked_ts"`
}

// LoadManifest reads the manifest from outputDir. A missing or unparseable
// manifest reports ok=false; corruption is a cache miss, never an error.
func LoadManifest(outputDir string) (Manifest, bool) {
	data, err := os.ReadFile(filepath.Join(outputDir, ManifestFileName))
	if err != nil {
		return Manifest{}, false
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false
	}
	if m.StageName == "" {
		return Manifest{}, false
	}
	return m, true
}

// SaveManifest writes the manifest atomically as pretty-printed JSON with
// sorted keys.
func SaveManifest(outputDir string, m Manifest) error {
	data, err := canonicalIndentJSON(m)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(outputDir, ManifestFileName), data, 0o644)
}

// canonicalJSON produces deterministic JSON: object keys sorted, no
// indentation. Used for params equality.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// canonicalIndentJSON is canonicalJSON with human-friendly indentation for
// on-disk manifests.
func canonicalIndentJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.MarshalIndent(generic, "", "  ")
}
