package schema

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestVersions(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"10", "2", "1", "draft", "0"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "3"), []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	vs, err := New(nil, root).versions()
	if err != nil {
		t.Fatal(err)
	}

	want := []int{1, 2, 10}
	if len(vs) != len(want) {
		t.Fatalf("versions = %+v, want %v", vs, want)
	}
	for i, v := range vs {
		if v.Number != want[i] {
			t.Errorf("versions[%d] = %d, want %d", i, v.Number, want[i])
		}
		if v.Dir != filepath.Join(root, strconv.Itoa(want[i])) {
			t.Errorf("unexpected dir: %s", v.Dir)
		}
	}
}

func TestVersions_missingRepository(t *testing.T) {
	if _, err := New(nil, filepath.Join(t.TempDir(), "nowhere")).versions(); err == nil {
		t.Error("expected error, but not")
	}
}
