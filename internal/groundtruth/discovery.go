package groundtruth

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileSuffix is the suffix of ground-truth files; the rest of the file name
// is the product code.
const FileSuffix = ".nutriments.json"

// Entry is a ground-truth file found on disk.
type Entry struct {
	Code string
	Path string
}

// Discover walks root and returns one entry per `<code>.nutriments.json`
// file, in lexical walk order. Hidden directories are skipped and a code seen
// twice keeps its first file.
func Discover(root string) ([]Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	var entries []Entry
	seen := map[string]string{}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, FileSuffix) {
			return nil
		}
		code := strings.TrimSuffix(name, FileSuffix)
		if code == "" {
			return nil
		}
		if first, dup := seen[code]; dup {
			slog.Warn("duplicate ground-truth file ignored", "code", code, "path", path, "kept", first)
			return nil
		}
		seen[code] = path
		entries = append(entries, Entry{Code: code, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", absRoot, err)
	}

	return entries, nil
}

// Codes returns the product codes of entries, in order.
func Codes(entries []Entry) []string {
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	return codes
}
