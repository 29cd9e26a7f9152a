package database

import (
	"os"
	"path/filepath"
	"strings"
)

const dbFileName = "trading_data.db"

// Locate resolves the canonical database file path. Resolution order:
//  1. TRADING_DB_PATH, returned verbatim when set (no existence check,
//     the caller may be about to create the file),
//  2. <project root>/var/trading_data.db when that file exists,
//  3. <project root>/trading_data.db.
//
// startDir anchors the project-root search; pass the working directory.
func Locate(startDir string) string {
	if override := os.Getenv("TRADING_DB_PATH"); override != "" {
		return override
	}

	root := projectRoot(startDir)
	if p := filepath.Join(root, "var", dbFileName); fileExists(p) {
		return p
	}
	return filepath.Join(root, dbFileName)
}

// projectRoot walks up from dir looking for a workspace marker: a
// packages/ directory or a *.code-workspace file. When no ancestor
// carries a marker, dir itself is the root.
func projectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}

	for cur := abs; ; {
		if hasMarker(cur) {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}
		cur = parent
	}
}

func hasMarker(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, "packages")); err == nil && info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".code-workspace") {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
