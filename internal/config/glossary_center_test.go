package config

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func glossaryTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestApplyGlossaryBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "glossary")
	raw := glossaryTarGz(t, map[string]string{
		"bundle/terms.json":      `[{"original":"Burn","translation":"燃烧","type":"Status"}]`,
		"bundle/terms_prompt.md": "提示词",
		"bundle/extra.txt":       "ignored",
	})
	if err := applyGlossaryBundle(raw, dir); err != nil {
		t.Fatalf("applyGlossaryBundle error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "terms.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "燃烧") {
		t.Fatalf("unexpected terms content: %s", b)
	}
	if _, err := os.Stat(filepath.Join(dir, "extra.txt")); !os.IsNotExist(err) {
		t.Fatalf("unrelated bundle file should be skipped")
	}
}

func TestApplyGlossaryBundleMissingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "glossary")
	raw := glossaryTarGz(t, map[string]string{"terms.json": "[]"})
	err := applyGlossaryBundle(raw, dir)
	if err == nil || !strings.Contains(err.Error(), "terms_prompt.md") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestApplyGlossaryBundleBadArchive(t *testing.T) {
	if err := applyGlossaryBundle([]byte("not a tarball"), filepath.Join(t.TempDir(), "g")); err == nil {
		t.Fatalf("expected error for invalid archive")
	}
}

func TestGlossaryLockRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "glossary.lock.json")
	in := glossaryLock{ReleaseID: 42, TagName: "v1.2", AssetName: "glossary-bundle.tar.gz", SyncedAt: "2026-01-01T00:00:00Z"}
	if err := writeGlossaryLock(p, in); err != nil {
		t.Fatal(err)
	}
	out, err := readGlossaryLock(p)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("lock mismatch: %+v != %+v", out, in)
	}
}

func TestSyncGlossaryDisabled(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	res, err := SyncGlossaryFromCenter(cfg, &Paths{})
	if err != nil || res.Updated || res.Warning != "" {
		t.Fatalf("disabled center should be a no-op: %+v, %v", res, err)
	}
}

func TestSyncGlossaryMissingOwner(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.GlossaryCenter.Enabled = true

	res, err := SyncGlossaryFromCenter(cfg, &Paths{})
	if err != nil {
		t.Fatalf("non-strict should not fail: %v", err)
	}
	if !strings.Contains(res.Warning, "owner") {
		t.Fatalf("expected warning, got %+v", res)
	}

	cfg.GlossaryCenter.Strict = true
	if _, err := SyncGlossaryFromCenter(cfg, &Paths{}); err == nil {
		t.Fatalf("strict mode should fail")
	}
}

func TestRequiredGlossaryFilesExist(t *testing.T) {
	dir := t.TempDir()
	if requiredGlossaryFilesExist(dir) {
		t.Fatalf("empty dir should not satisfy")
	}
	for _, name := range requiredGlossaryFiles() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if !requiredGlossaryFilesExist(dir) {
		t.Fatalf("all files present but check failed")
	}
}

func TestFallbackTag(t *testing.T) {
	if fallbackTag(" v2 ", "latest") != "v2" || fallbackTag("", "latest") != "latest" {
		t.Fatalf("unexpected fallback behavior")
	}
}
