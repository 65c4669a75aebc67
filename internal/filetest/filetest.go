// Package filetest backs the golden-file tests of the compiler pipeline:
// it enumerates fixture sources and compares produced output against
// recorded golden files, regenerating them when the update flag is set.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var update = flag.Bool("test.update-golden-files", false, "If set, replace golden files with the produced output.")

// Files returns the names of the regular files in dir carrying ext (with
// or without the leading dot).
func Files(t *testing.T, dir, ext string) []string {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, de := range dents {
		if de.Type().IsRegular() && filepath.Ext(de.Name()) == ext {
			names = append(names, de.Name())
		}
	}
	return names
}

// Golden compares got against the content of the golden file dir/name+ext,
// reporting a line diff on mismatch. With -test.update-golden-files the
// golden file is rewritten with got instead and nothing is compared. A
// missing golden file compares as empty, so a brand-new fixture fails with
// a full diff rather than a file-open error.
func Golden(t *testing.T, dir, name, ext, got string) {
	t.Helper()

	path := filepath.Join(dir, name+ext)
	if *update {
		if err := os.WriteFile(path, []byte(got), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if patch := diff.Diff(string(wantb), got); patch != "" {
		if testing.Verbose() {
			t.Logf("got:\n%s\n", got)
		}
		t.Errorf("%s: output differs from golden file:\n%s", path, patch)
	}
}
