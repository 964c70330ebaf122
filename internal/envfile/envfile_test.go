package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		in     string
		k, v   string
		wantOK bool
	}{
		{"A=1", "A", "1", true},
		{"  export B = two ", "B", "two", true},
		{`C="quoted value"`, "C", "quoted value", true},
		{`D='x'`, "D", "x", true},
		{"E=a=b", "E", "a=b", true},
		{"F=", "F", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"novalue", "", "", false},
		{"=1", "", "", false},
	}
	for _, tt := range tests {
		k, v, ok := parseLine(tt.in)
		if ok != tt.wantOK || k != tt.k || v != tt.v {
			t.Errorf("parseLine(%q) = %q, %q, %v", tt.in, k, v, ok)
		}
	}
}

func TestLoadKeepsExistingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PMON_TEST_KEEP=file\nPMON_TEST_NEW=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PMON_TEST_KEEP", "env")
	t.Setenv("PMON_TEST_NEW", "")
	os.Unsetenv("PMON_TEST_NEW")

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := os.Getenv("PMON_TEST_KEEP"); got != "env" {
		t.Fatalf("PMON_TEST_KEEP = %q", got)
	}
	if got := os.Getenv("PMON_TEST_NEW"); got != "file" {
		t.Fatalf("PMON_TEST_NEW = %q", got)
	}
}

func TestEnsureAndLoadWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".env")
	if err := EnsureAndLoad(path); err != nil {
		t.Fatalf("EnsureAndLoad: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != envExample {
		t.Fatal("template not written")
	}
}
