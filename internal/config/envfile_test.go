package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadEnvFileLoadsAndPreservesExisting(t *testing.T) {
	t.Setenv("SITEOPS_EXISTING_KEY", "from-env")
	file := filepath.Join(t.TempDir(), "test.env")
	content := "# comment\nSITEOPS_EXISTING_KEY=from-file\nSITEOPS_NEW_KEY=hello\nSITEOPS_QUOTED=\"x\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("SITEOPS_NEW_KEY")
		_ = os.Unsetenv("SITEOPS_QUOTED")
	})

	if err := LoadEnvFile(file); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("SITEOPS_EXISTING_KEY"); got != "from-env" {
		t.Fatalf("expected existing var to be preserved, got %q", got)
	}
	if got := os.Getenv("SITEOPS_NEW_KEY"); got != "hello" {
		t.Fatalf("unexpected SITEOPS_NEW_KEY=%q", got)
	}
	if got := os.Getenv("SITEOPS_QUOTED"); got != "x" {
		t.Fatalf("unexpected SITEOPS_QUOTED=%q", got)
	}
}

func TestLoadEnvFileDirectoryFails(t *testing.T) {
	if err := LoadEnvFile(t.TempDir()); err == nil {
		t.Fatal("expected error when path is a directory")
	}
}

func FuzzLoadEnvFileErrorClasses(f *testing.F) {
	f.Add([]byte("KEY=value\nANOTHER=ok\n"))
	f.Add([]byte("# comment\n QUOTED = \"x\" \n"))
	f.Add([]byte("NO_EQUALS_LINE\nBROKEN"))
	f.Add(bytes.Repeat([]byte("A"), 70000))

	f.Fuzz(func(t *testing.T, content []byte) {
		if len(content) > 200000 {
			content = content[:200000]
		}
		file := filepath.Join(t.TempDir(), "fuzz.env")
		if err := os.WriteFile(file, content, 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}

		err := LoadEnvFile(file)
		if err == nil {
			return
		}
		msg := err.Error()
		if !strings.HasPrefix(msg, "read env file:") && !strings.HasPrefix(msg, "set env ") {
			t.Fatalf("unexpected error class: %v", err)
		}
	})
}
