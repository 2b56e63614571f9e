package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd finds the project root: the closest parent directory holding go.mod.
// go-test changes the working directory to the package being tested, so the cwd cannot be trusted.
// Falls back to the cwd when no go.mod is found (binaries deployed without sources).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
