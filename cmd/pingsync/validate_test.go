package main

import (
	"strings"
	"testing"
)

func TestRunValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  url: https://example.org
  name: Example
plugin_id: my-plugin
interval: 6h
store:
  driver: sqlite
  path: /tmp/pingsync-test.db
admin:
  enabled: true
  port: 9090
  token: s3cret
`)

	out, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Site:          https://example.org",
		"Source key:    my-plugin-url",
		"Ping list key: ping_sites",
		"Interval:      6h0m0s",
		"Store:         sqlite",
		"Admin API:     port 9090",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(out, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, out)
		}
	}
}

func TestRunValidate_FromStore(t *testing.T) {
	path := writeConfig(t, "site:\n  from_store: true\n  url: https://fallback.example\n")

	out, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(out, "from store (fallback https://fallback.example)") {
		t.Errorf("output = %s", out)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "site:\n  url: ftp://example.org\n")

	_, err := executeCmd(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate should fail for invalid config")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v, want 'invalid config' prefix", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/pingsync.yaml")
	if err == nil {
		t.Fatal("validate should fail for a missing file")
	}
}
