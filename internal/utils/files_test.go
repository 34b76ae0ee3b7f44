package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileCreatesParent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "charts", "q1.png")
	if err := SafeWriteFile(p, []byte("png")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "png" {
		t.Fatalf("read back = %q, %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, WorkspaceFile), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "runs", "a")
	if err := EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	got, err := FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != root {
		t.Fatalf("root = %s, want %s", got, root)
	}
	if _, err := FindWorkspaceRoot(t.TempDir()); err == nil {
		t.Fatalf("expected error outside a workspace")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected json: %s", b)
	}
}
