package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("FEEDER_SET", "pi")
	t.Setenv("FEEDER_EMPTY", "")

	cases := map[string]string{
		"$FEEDER_SET":               "pi",
		"${FEEDER_SET}:8888":        "pi:8888",
		"${FEEDER_SET:-other}":      "pi",
		"${FEEDER_EMPTY:-fallback}": "fallback",
		"${FEEDER_UNSET:-8080}":     "8080",
		"${FEEDER_UNSET}":           "",
		"${FEEDER_UNSET:-a:b}":      "a:b",
		"plain text without vars":   "plain text without vars",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeFile(t, "count: 3\n")
	s := sample{Name: "default"}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" || s.Count != 3 {
		t.Errorf("sample = %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeFile(t, "count: -1\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithDefaults_Fallback(t *testing.T) {
	def := writeFile(t, "name: fallback\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q", s.Name)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("expected error without default file")
	}
}
