package config

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GlossarySyncResult 描述一次术语包同步的结果。
// 非严格模式下所有失败都降级为 Warning。
type GlossarySyncResult struct {
	Updated bool
	Message string
	Warning string
}

type glossaryLock struct {
	ReleaseID int64  `json:"release_id"`
	TagName   string `json:"tag_name"`
	AssetName string `json:"asset_name"`
	SyncedAt  string `json:"synced_at"`
}

type githubRelease struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name string `json:"name"`
		URL  string `json:"browser_download_url"`
	} `json:"assets"`
}

// SyncGlossaryFromCenter 从 GitHub release 拉取共享术语包
// （terms.json + terms_prompt.md），解压到 ~/.mewcn/glossary/。
// release id 没变且文件齐全时跳过下载。
func SyncGlossaryFromCenter(cfg *Config, paths *Paths) (GlossarySyncResult, error) {
	out := GlossarySyncResult{}
	if cfg == nil || paths == nil || !cfg.GlossaryCenter.Enabled {
		return out, nil
	}
	center := cfg.GlossaryCenter
	owner := strings.TrimSpace(center.Owner)
	repo := strings.TrimSpace(center.Repo)
	if owner == "" || repo == "" {
		msg := "glossary_center 缺少 owner 或 repo"
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}

	releaseRef := strings.TrimSpace(center.Release)
	if releaseRef == "" {
		releaseRef = "latest"
	}
	assetName := strings.TrimSpace(center.Asset)
	if assetName == "" {
		assetName = "glossary-bundle.tar.gz"
	}

	timeoutSec := center.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 20
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	client := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}

	release, err := fetchGitHubRelease(ctx, client, owner, repo, releaseRef)
	if err != nil {
		msg := fmt.Sprintf("术语中心查询失败：%v", err)
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}

	assetURL := ""
	for _, a := range release.Assets {
		if strings.EqualFold(strings.TrimSpace(a.Name), assetName) {
			assetURL = strings.TrimSpace(a.URL)
			break
		}
	}
	if assetURL == "" {
		msg := fmt.Sprintf("术语中心未找到资产 %s（release=%s）", assetName, fallbackTag(release.TagName, releaseRef))
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}

	lock, _ := readGlossaryLock(paths.GlossaryLockPath)
	if lock.ReleaseID == release.ID && lock.AssetName == assetName && requiredGlossaryFilesExist(paths.GlossaryDir) {
		out.Message = fmt.Sprintf("术语包已是最新版本（%s）", fallbackTag(release.TagName, releaseRef))
		return out, nil
	}

	raw, err := downloadBytes(ctx, client, assetURL)
	if err != nil {
		msg := fmt.Sprintf("术语中心下载失败：%v", err)
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}

	if err := applyGlossaryBundle(raw, paths.GlossaryDir); err != nil {
		msg := fmt.Sprintf("术语包解压失败：%v", err)
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}

	newLock := glossaryLock{
		ReleaseID: release.ID,
		TagName:   release.TagName,
		AssetName: assetName,
		SyncedAt:  time.Now().Format(time.RFC3339),
	}
	if err := writeGlossaryLock(paths.GlossaryLockPath, newLock); err != nil {
		msg := fmt.Sprintf("写入术语锁失败：%v", err)
		if center.Strict {
			return out, fmt.Errorf("%s", msg)
		}
		out.Warning = msg
		return out, nil
	}
	out.Updated = true
	out.Message = fmt.Sprintf("术语包更新成功（%s）", fallbackTag(release.TagName, releaseRef))
	return out, nil
}

func fetchGitHubRelease(ctx context.Context, client *http.Client, owner, repo, releaseRef string) (githubRelease, error) {
	var url string
	if strings.EqualFold(releaseRef, "latest") {
		url = fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo)
	} else {
		url = fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/tags/%s", owner, repo, releaseRef)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return githubRelease{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "mewcn")
	resp, err := client.Do(req)
	if err != nil {
		return githubRelease{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return githubRelease{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return githubRelease{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out githubRelease
	if err := json.Unmarshal(body, &out); err != nil {
		return githubRelease{}, fmt.Errorf("解析 release 响应失败：%w", err)
	}
	if out.ID == 0 {
		return githubRelease{}, fmt.Errorf("release id 为空")
	}
	return out, nil
}

func downloadBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "mewcn")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("空响应")
	}
	return raw, nil
}

func applyGlossaryBundle(raw []byte, glossaryDir string) error {
	tmpDir := glossaryDir + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixNano())
	if err := os.RemoveAll(tmpDir); err != nil {
		return err
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	if err := extractGlossaryFiles(raw, tmpDir); err != nil {
		return err
	}
	for _, name := range requiredGlossaryFiles() {
		p := filepath.Join(tmpDir, name)
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("术语包缺少 %s", name)
		}
	}
	if err := os.RemoveAll(glossaryDir); err != nil {
		return err
	}
	if err := os.Rename(tmpDir, glossaryDir); err != nil {
		return err
	}
	return nil
}

func extractGlossaryFiles(raw []byte, outDir string) error {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	required := map[string]struct{}{}
	for _, n := range requiredGlossaryFiles() {
		required[n] = struct{}{}
	}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		base := filepath.Base(strings.TrimSpace(hdr.Name))
		if _, ok := required[base]; !ok {
			continue
		}
		target := filepath.Join(outDir, base)
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func requiredGlossaryFiles() []string {
	return []string{"terms.json", "terms_prompt.md"}
}

// GlossaryTermsPath 是同步下来的共享术语表路径。
func (p *Paths) GlossaryTermsPath() string {
	return filepath.Join(p.GlossaryDir, "terms.json")
}

// GlossaryPromptPath 是同步下来的共享提示词路径。
func (p *Paths) GlossaryPromptPath() string {
	return filepath.Join(p.GlossaryDir, "terms_prompt.md")
}

func requiredGlossaryFilesExist(dir string) bool {
	for _, name := range requiredGlossaryFiles() {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

func readGlossaryLock(path string) (glossaryLock, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return glossaryLock{}, err
	}
	out := glossaryLock{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return glossaryLock{}, err
	}
	return out, nil
}

func writeGlossaryLock(path string, lock glossaryLock) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func fallbackTag(tag, fallback string) string {
	if strings.TrimSpace(tag) != "" {
		return strings.TrimSpace(tag)
	}
	return strings.TrimSpace(fallback)
}
