package manifest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func record(name, typ, value string, ttl int, extra string) string {
	return `meta:
  owner: infra
  purpose: test
  registered_at: "2025-01-01"
  valid_until: "2026-01-01"
record:
  name: ` + name + `
  type: ` + typ + `
  value: ` + value + `
  ttl: ` + strconv.Itoa(ttl) + `
` + extra + `maintainers:
  - name: Infra Team
    email: infra@example.com
    url: https://example.com/infra
`
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b-www.yaml", record("www.example.com", "CNAME", "app.example.com", 300, "  proxied: false\n  comment: alias\n"))
	write(t, dir, "a-app.yaml", record("app.example.com", "A", "1.2.3.4", 300, "  proxied: true\n  comment: frontend\n"))
	write(t, dir, "notes.txt", "not a manifest")

	loader := NewLoader(nil)
	records, loadErrs, err := loader.LoadDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loadErrs) != 0 {
		t.Fatalf("Unexpected load errors: %v", loadErrs)
	}
	if len(records) != 2 {
		t.Fatalf("Records mismatch: got %d, want 2", len(records))
	}

	// Ordered by file path, not declaration order.
	if records[0].Name != "app.example.com" || records[1].Name != "www.example.com" {
		t.Errorf("Order mismatch: got %q then %q", records[0].Name, records[1].Name)
	}

	app := records[0]
	if app.Type != "A" || app.Content != "1.2.3.4" || app.TTL != 300 {
		t.Errorf("Record fields mismatch: %+v", app)
	}
	if app.Proxied == nil || !*app.Proxied {
		t.Error("Proxied not carried through")
	}
	if app.Comment != "frontend" {
		t.Errorf("Comment mismatch: %q", app.Comment)
	}
	if app.SourceFile != filepath.Join(dir, "a-app.yaml") {
		t.Errorf("SourceFile mismatch: %q", app.SourceFile)
	}
	if app.Priority != nil {
		t.Error("Absent priority must stay nil")
	}
}

func TestLoadDirMalformedFilesAreCollectedNotFatal(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "good.yaml", record("app.example.com", "A", "1.2.3.4", 300, "  proxied: true\n"))
	write(t, dir, "broken.yaml", "record: [oops\n")
	write(t, dir, "no-name.yaml", record("\"\"", "A", "1.2.3.4", 300, ""))
	write(t, dir, "bad-ttl.yaml", record("x.example.com", "A", "1.2.3.4", 0, ""))

	loader := NewLoader(nil)
	records, loadErrs, err := loader.LoadDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "app.example.com" {
		t.Errorf("Expected only the good record, got %+v", records)
	}
	if len(loadErrs) != 3 {
		t.Fatalf("Expected 3 load errors, got %d: %v", len(loadErrs), loadErrs)
	}
	for _, loadErr := range loadErrs {
		if loadErr.Path == "" || loadErr.Err == nil {
			t.Errorf("Load error missing context: %+v", loadErr)
		}
	}
}

func TestLoadDirAppliesTypeAllowList(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "mx.yaml", record("example.com", "MX", "mail.example.com", 300, "  priority: 10\n"))
	write(t, dir, "txt.yaml", record("_verify.example.com", "TXT", "token", 3600, ""))

	loader := NewLoader(nil)
	records, loadErrs, err := loader.LoadDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loadErrs) != 0 {
		t.Fatalf("Allow-list filtering is not an error: %v", loadErrs)
	}
	if len(records) != 1 || records[0].Type != "TXT" {
		t.Errorf("Expected only the TXT record, got %+v", records)
	}
}

func TestLoadDirAppliesSkipList(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "app.yaml", record("app.example.com", "A", "1.2.3.4", 300, "  proxied: true\n"))
	write(t, dir, "verify.yaml", record("cf-verify.example.com", "TXT", "token", 300, ""))

	loader := NewLoader([]string{"cf-verify"})
	records, _, err := loader.LoadDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "app.example.com" {
		t.Errorf("Skip-listed manifest should be dropped, got %+v", records)
	}
}

func TestLoadDirMissingDir(t *testing.T) {
	loader := NewLoader(nil)
	if _, _, err := loader.LoadDir("/does/not/exist"); err == nil {
		t.Fatal("Expected error for missing directory")
	}
}
