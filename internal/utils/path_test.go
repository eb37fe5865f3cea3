package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && !filepath.IsAbs(result) {
				t.Errorf("ResolvePath(%q) = %q, want absolute", tt.input, result)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir(%q) error = %v", dir, err)
	}
	if !DirExists(dir) {
		t.Errorf("DirExists(%q) = false after EnsureDir", dir)
	}
	// second call is a no-op
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir(%q) repeat error = %v", dir, err)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(file) {
		t.Errorf("FileExists(%q) = false for a regular file", file)
	}
	if FileExists(dir) {
		t.Errorf("FileExists(%q) = true for a directory", dir)
	}
	if DirExists(file) {
		t.Errorf("DirExists(%q) = true for a regular file", file)
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists = true for a missing path")
	}
}
