package main

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	xrayReleaseAPI      = "https://api.github.com/repos/XTLS/Xray-core/releases/latest"
	xrayDownloadBase    = "https://github.com/XTLS/Xray-core/releases/latest/download/"
	xrayBinaryName      = "xray"
	xrayDownloadRetries = 2
)

// installedArtifact records where the tunnel-server binary ended up. An
// empty Path means installation failed and the service cannot be configured.
type installedArtifact struct {
	Path      string
	SourceURL string
	Arch      string
}

// xrayAssetForArch maps the host CPU architecture to the release asset
// naming convention. Unknown architectures default to the 64-bit build.
func xrayAssetForArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "Xray-linux-64.zip"
	case "arm64":
		return "Xray-linux-arm64-v8a.zip"
	case "386":
		return "Xray-linux-32.zip"
	case "arm":
		return "Xray-linux-arm32-v7a.zip"
	case "riscv64":
		return "Xray-linux-riscv64.zip"
	case "s390x":
		return "Xray-linux-s390x.zip"
	default:
		return "Xray-linux-64.zip"
	}
}

type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type releaseMetadata struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

type xrayInstaller struct {
	client       *http.Client
	apiURL       string
	downloadBase string
	installDirs  []string
	arch         string
}

func newXrayInstaller() *xrayInstaller {
	return &xrayInstaller{
		client:       &http.Client{Timeout: 3 * time.Minute},
		apiURL:       xrayReleaseAPI,
		downloadBase: xrayDownloadBase,
		installDirs:  []string{"/usr/local/bin", "/usr/bin"},
		arch:         runtime.GOARCH,
	}
}

// install resolves the release asset for this architecture, downloads it with
// integrity verification and places the executable into the first writable
// install directory. Every failure is non-fatal to the pipeline; the caller
// sees an empty artifact and degrades.
func (ins *xrayInstaller) install(warn func(string)) (installedArtifact, error) {
	asset := xrayAssetForArch(ins.arch)
	url := ins.resolveAssetURL(asset, warn)

	archive, err := ins.downloadVerified(url, warn)
	if err != nil {
		return installedArtifact{}, err
	}
	defer os.Remove(archive)

	path, err := ins.extractBinary(archive)
	if err != nil {
		return installedArtifact{}, err
	}
	return installedArtifact{Path: path, SourceURL: url, Arch: ins.arch}, nil
}

// resolveAssetURL queries the release-metadata endpoint for the asset's
// download URL; metadata or matching failures fall back to the well-known
// latest-download convention.
func (ins *xrayInstaller) resolveAssetURL(asset string, warn func(string)) string {
	fallback := ins.downloadBase + asset
	resp, err := ins.client.Get(ins.apiURL)
	if err != nil {
		warn(fmt.Sprintf("release metadata query failed, using direct download: %v", err))
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		warn(fmt.Sprintf("release metadata query returned %s, using direct download", resp.Status))
		return fallback
	}
	var meta releaseMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&meta); err != nil {
		warn(fmt.Sprintf("release metadata decode failed, using direct download: %v", err))
		return fallback
	}
	for _, a := range meta.Assets {
		if a.Name == asset && a.BrowserDownloadURL != "" {
			return a.BrowserDownloadURL
		}
	}
	warn(fmt.Sprintf("release %s has no asset %q, using direct download", meta.TagName, asset))
	return fallback
}

// downloadVerified fetches the archive with a bounded number of attempts.
// Each download must open and list as a zip containing the tunnel binary
// before it is accepted; a truncated or corrupt archive triggers a fresh
// attempt, not a crash.
func (ins *xrayInstaller) downloadVerified(url string, warn func(string)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= xrayDownloadRetries; attempt++ {
		path, err := ins.downloadOnce(url)
		if err != nil {
			lastErr = err
			warn(fmt.Sprintf("download attempt %d/%d failed: %v", attempt, xrayDownloadRetries, err))
			continue
		}
		if err := verifyXrayArchive(path); err != nil {
			_ = os.Remove(path)
			lastErr = err
			warn(fmt.Sprintf("archive verification failed on attempt %d/%d: %v", attempt, xrayDownloadRetries, err))
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("download %s: %w", url, lastErr)
}

func (ins *xrayInstaller) downloadOnce(url string) (string, error) {
	resp, err := ins.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "xray-release-*.zip")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// verifyXrayArchive is the integrity gate: the file must be a readable zip
// and must contain the executable entry.
func verifyXrayArchive(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("not a readable zip: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == xrayBinaryName {
			return nil
		}
	}
	return fmt.Errorf("archive has no %q entry", xrayBinaryName)
}

func (ins *xrayInstaller) extractBinary(archive string) (string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == xrayBinaryName {
			entry = f
			break
		}
	}
	if entry == nil {
		return "", fmt.Errorf("archive has no %q entry", xrayBinaryName)
	}

	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, dir := range ins.installDirs {
		dst := filepath.Join(dir, xrayBinaryName)
		if err := atomicWriteFile(dst, data, 0o755); err != nil {
			lastErr = err
			continue
		}
		return dst, nil
	}
	return "", fmt.Errorf("no writable install directory: %w", lastErr)
}
