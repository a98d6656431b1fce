package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunInit_CreatesWorkspaceFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")

	if err := runInit(initCmd, []string{dir}); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		filepath.Join(dir, "membank.yaml"),
		filepath.Join(dir, ".membank", ".gitignore"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}
}

func TestRunInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "membank.yaml"), []byte("name: keep"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, []string{dir}); err == nil {
		t.Fatal("expected error for existing config")
	}

	content, err := os.ReadFile(filepath.Join(dir, "membank.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "name: keep" {
		t.Error("existing config must not be touched")
	}
}
