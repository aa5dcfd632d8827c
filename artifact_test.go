package main

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func makeZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestXrayAssetForArch(t *testing.T) {
	cases := []struct {
		arch string
		want string
	}{
		{"amd64", "Xray-linux-64.zip"},
		{"arm64", "Xray-linux-arm64-v8a.zip"},
		{"386", "Xray-linux-32.zip"},
		{"arm", "Xray-linux-arm32-v7a.zip"},
		{"riscv64", "Xray-linux-riscv64.zip"},
		{"s390x", "Xray-linux-s390x.zip"},
		{"mips64", "Xray-linux-64.zip"}, // unknown falls back to 64-bit
	}
	for _, tc := range cases {
		if got := xrayAssetForArch(tc.arch); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.arch, got, tc.want)
		}
	}
}

func TestVerifyXrayArchive(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.zip")
	if err := os.WriteFile(good, makeZip(t, map[string]string{"xray": "bin", "geoip.dat": "d"}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyXrayArchive(good); err != nil {
		t.Fatalf("good archive rejected: %v", err)
	}

	noEntry := filepath.Join(dir, "noentry.zip")
	if err := os.WriteFile(noEntry, makeZip(t, map[string]string{"readme.md": "hi"}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyXrayArchive(noEntry); err == nil || !strings.Contains(err.Error(), "no \"xray\" entry") {
		t.Fatalf("missing-entry archive accepted: %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.zip")
	if err := os.WriteFile(corrupt, []byte("<html>not a zip</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyXrayArchive(corrupt); err == nil || !strings.Contains(err.Error(), "not a readable zip") {
		t.Fatalf("corrupt archive accepted: %v", err)
	}
}

func TestInstall_DownloadExtract(t *testing.T) {
	archive := makeZip(t, map[string]string{"xray": "fake binary", "geosite.dat": "d"})
	var downloads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"tag_name":"v25.1.1","assets":[{"name":"Xray-linux-64.zip","browser_download_url":"` +
				"http://" + r.Host + `/dl/Xray-linux-64.zip"}]}`))
		case "/dl/Xray-linux-64.zip":
			downloads++
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	ins := &xrayInstaller{
		client:       srv.Client(),
		apiURL:       srv.URL + "/api",
		downloadBase: srv.URL + "/dl/",
		installDirs:  []string{filepath.Join(dir, "bin")},
		arch:         "amd64",
	}
	if err := os.MkdirAll(ins.installDirs[0], 0o755); err != nil {
		t.Fatal(err)
	}

	art, err := ins.install(noWarn)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if art.Path != filepath.Join(ins.installDirs[0], "xray") {
		t.Fatalf("unexpected install path: %s", art.Path)
	}
	b, err := os.ReadFile(art.Path)
	if err != nil || string(b) != "fake binary" {
		t.Fatalf("extracted binary: %q, %v", b, err)
	}
	st, _ := os.Stat(art.Path)
	if st.Mode().Perm() != 0o755 {
		t.Fatalf("binary not executable: %v", st.Mode())
	}
	if downloads != 1 {
		t.Fatalf("expected exactly one download, got %d", downloads)
	}
}

func TestInstall_CorruptThenGoodArchiveRetries(t *testing.T) {
	archive := makeZip(t, map[string]string{"xray": "bin"})
	var downloads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" {
			http.NotFound(w, r)
			return
		}
		downloads++
		if downloads == 1 {
			_, _ = w.Write([]byte("truncated garbage"))
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	ins := &xrayInstaller{
		client:       srv.Client(),
		apiURL:       srv.URL + "/api",
		downloadBase: srv.URL + "/",
		installDirs:  []string{dir},
		arch:         "amd64",
	}

	var warnings []string
	art, err := ins.install(func(s string) { warnings = append(warnings, s) })
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if art.Path == "" {
		t.Fatal("empty artifact path")
	}
	if downloads != 2 {
		t.Fatalf("expected 2 archive downloads, got %d", downloads)
	}
	var sawVerifyWarn bool
	for _, w := range warnings {
		if strings.Contains(w, "archive verification failed") {
			sawVerifyWarn = true
		}
	}
	if !sawVerifyWarn {
		t.Fatalf("expected verification warning, got %v", warnings)
	}
}

func TestInstall_GivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("never a zip"))
	}))
	defer srv.Close()

	ins := &xrayInstaller{
		client:       srv.Client(),
		apiURL:       srv.URL + "/api",
		downloadBase: srv.URL + "/",
		installDirs:  []string{t.TempDir()},
		arch:         "amd64",
	}
	if _, err := ins.install(noWarn); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestResolveAssetURL_MetadataFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"v25.1.1","assets":[{"name":"Xray-linux-arm64-v8a.zip","browser_download_url":"https://example.com/arm.zip"}]}`))
	}))
	defer srv.Close()

	ins := &xrayInstaller{
		client:       srv.Client(),
		apiURL:       srv.URL,
		downloadBase: "https://example.com/dl/",
		arch:         "amd64",
	}

	var warnings []string
	url := ins.resolveAssetURL("Xray-linux-64.zip", func(s string) { warnings = append(warnings, s) })
	if url != "https://example.com/dl/Xray-linux-64.zip" {
		t.Fatalf("expected direct-download fallback, got %q", url)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no asset") {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	url = ins.resolveAssetURL("Xray-linux-arm64-v8a.zip", noWarn)
	if url != "https://example.com/arm.zip" {
		t.Fatalf("expected metadata URL, got %q", url)
	}
}

func TestExtractBinary_FirstWritableDirWins(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")
	if err := os.WriteFile(archive, makeZip(t, map[string]string{"xray": "bin"}), 0o644); err != nil {
		t.Fatal(err)
	}

	// First install dir is a regular file, so writes there fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	usable := filepath.Join(dir, "bin")
	if err := os.MkdirAll(usable, 0o755); err != nil {
		t.Fatal(err)
	}

	ins := &xrayInstaller{installDirs: []string{blocked, usable}}
	path, err := ins.extractBinary(archive)
	if err != nil {
		t.Fatalf("extractBinary: %v", err)
	}
	if path != filepath.Join(usable, "xray") {
		t.Fatalf("unexpected path: %s", path)
	}
}
