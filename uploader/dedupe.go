package uploader

import (
	"os"
)

// dedupe drops sources that point at a file seen earlier, such as the same
// path given twice or a hardlink in another directory. The first occurrence
// wins.
func dedupe(sources []source) ([]source, []Skip) {
	seen := make(map[string]string, len(sources))
	kept := make([]source, 0, len(sources))
	var skipped []Skip

	for _, src := range sources {
		fi, err := os.Stat(src.path)
		if err != nil {
			// left for prepare to report
			kept = append(kept, src)
			continue
		}
		key := fileKey(fi, src.path)
		if first, ok := seen[key]; ok {
			skipped = append(skipped, Skip{Path: src.path, Reason: "same file as " + first})
			continue
		}
		seen[key] = src.path
		kept = append(kept, src)
	}
	return kept, skipped
}
