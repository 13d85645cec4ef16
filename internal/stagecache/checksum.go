package stagecache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subpipe/internal/contenthash"
)

// ComputeInputsChecksum digests the content of every input path. Directories
// are walked recursively; files are hashed directly. Missing inputs fold in
// the hash sentinel instead of failing, so the checksum stays computable and
// deterministically changes the moment a previously-present input disappears.
func ComputeInputsChecksum(inputs []string) string {
	sorted := make([]string, len(inputs))
	copy(sorted, inputs)
	sort.Strings(sorted)

	var parts []string
	for _, input := range sorted {
		info, err := os.Stat(input)
		if err == nil && info.IsDir() {
			parts = append(parts, directoryParts(input)...)
			continue
		}
		parts = append(parts, input+":"+contenthash.HashFile(input))
	}
	return contenthash.HashBytes([]byte(strings.Join(parts, "|")))
}

func directoryParts(root string) []string {
	type entry struct {
		rel  string
		path string
	}
	var entries []entry
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), path: p})
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, root+"/"+e.rel+":"+contenthash.HashFile(e.path))
	}
	return parts
}
