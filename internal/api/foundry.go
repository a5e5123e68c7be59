package api

import (
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

// FoundryClient talks to the foundry backend's plain HTTP endpoints.
type FoundryClient struct {
	baseURL string
	http    *http.Client
}

// NewFoundryClient creates a client for the given base URL.
func NewFoundryClient(baseURL string) *FoundryClient {
	return &FoundryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// DownloadBRD fetches the business requirements document named by
// brdPath and writes it into destDir, returning the local file path.
// brdPath is whatever the strategy step reported, typically a server-side
// path like "output/brd_xyz.pdf", so only its final component is used.
func (c *FoundryClient) DownloadBRD(ctx context.Context, brdPath, destDir string) (string, error) {
	filename := BRDFilename(brdPath)
	if filename == "" {
		return "", fmt.Errorf("no filename in BRD path %q", brdPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/download_brd/"+filename, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download BRD: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return "", fmt.Errorf("download BRD: %s", apiErr.Detail)
		}
		return "", fmt.Errorf("download BRD: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	dest := filepath.Join(destDir, filename)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}

// BRDFilename extracts the final path component, accepting both slash
// styles since the backend runs on either platform.
func BRDFilename(brdPath string) string {
	s := strings.TrimSpace(brdPath)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	return s
}
