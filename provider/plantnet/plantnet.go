// Package plantnet implements the secondary ProviderClient against the
// Pl@ntNet REST API: the free tier used as fallback and score
// cross-check. It never returns disease or care metadata.
package plantnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verdant-labs/florascan"
)

const (
	DefaultBaseURL = "https://my-api.plantnet.org/v2"

	// "all" matches against every Pl@ntNet project; a region-specific
	// project id narrows the flora and improves scores.
	DefaultProject = "all"

	userAgent = "florascan/1.0"

	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	dialTimeout         = 10 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	project string
	http    *http.Client
}

var _ florascan.ProviderClient = (*Client)(nil)

type Config struct {
	APIKey  string
	BaseURL string // default DefaultBaseURL
	Project string // default DefaultProject

	// HTTPClient overrides the tuned default; used by tests.
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("plantnet: api key is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConnsPerHost,
				IdleConnTimeout:     idleConnTimeout,
				TLSHandshakeTimeout: tlsHandshakeTimeout,
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		}
	}
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		project: cfg.Project,
		http:    hc,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.project == "" {
		c.project = DefaultProject
	}
	return c, nil
}

type identifyResponse struct {
	Results []struct {
		Score   float64 `json:"score"`
		Species struct {
			ScientificName string   `json:"scientificNameWithoutAuthor"`
			CommonNames    []string `json:"commonNames"`
		} `json:"species"`
	} `json:"results"`
}

// Identify uploads the image as multipart form data. opts.Disease is
// accepted and ignored; Pl@ntNet has no health assessment.
func (c *Client) Identify(ctx context.Context, image []byte, _ florascan.IdentifyOptions) (florascan.ProviderResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("images", "image.jpg")
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: build form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: build form: %w", err)
	}
	if err := mw.WriteField("organs", "auto"); err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: build form: %w", err)
	}

	u := fmt.Sprintf("%s/identify/%s?%s", c.baseURL, url.PathEscape(c.project),
		url.Values{"api-key": {c.apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means no species matched, which is an empty answer, not a fault
	if resp.StatusCode == http.StatusNotFound {
		return florascan.ProviderResult{Provider: florascan.ProviderSecondary}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantnet: decode response: %w", err)
	}

	res := florascan.ProviderResult{Provider: florascan.ProviderSecondary}
	for _, r := range parsed.Results {
		cand := florascan.Candidate{Name: r.Species.ScientificName, Score: r.Score}
		if len(r.Species.CommonNames) > 0 {
			cand.CommonName = r.Species.CommonNames[0]
		}
		res.Candidates = append(res.Candidates, cand)
	}
	return res, nil
}
