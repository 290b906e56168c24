// Package plantid implements the primary ProviderClient against the
// Plant.id REST API: the paid, higher-accuracy service and the only one
// offering disease assessment.
package plantid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verdant-labs/florascan"
)

const (
	DefaultBaseURL = "https://api.plant.id/api/v3"

	userAgent = "florascan/1.0"

	// connection pool tuning for a steady stream of identification calls
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	dialTimeout         = 10 * time.Second
)

// Client calls the Plant.id identification endpoint. Safe for concurrent
// use. The overall request deadline comes from the caller's context; the
// orchestrator sets the per-provider timeout.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

var _ florascan.ProviderClient = (*Client)(nil)

type Config struct {
	APIKey  string
	BaseURL string // default DefaultBaseURL

	// HTTPClient overrides the tuned default; used by tests.
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("plantid: api key is required")
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
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(firstNonEmpty(cfg.BaseURL, DefaultBaseURL), "/"),
		http:    hc,
	}, nil
}

type identifyRequest struct {
	Images []string `json:"images"`
	Health string   `json:"health,omitempty"`
}

type identifyResponse struct {
	Result struct {
		Classification struct {
			Suggestions []suggestion `json:"suggestions"`
		} `json:"classification"`
		Disease struct {
			Suggestions []suggestion `json:"suggestions"`
		} `json:"disease"`
	} `json:"result"`
}

type suggestion struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Details     struct {
		CommonNames []string `json:"common_names"`
		Description string   `json:"description"`
		Treatment   struct {
			Biological []string `json:"biological"`
			Chemical   []string `json:"chemical"`
			Prevention []string `json:"prevention"`
		} `json:"treatment"`
		Watering string `json:"watering"`
		Sunlight string `json:"best_light_condition"`
		Soil     string `json:"best_soil_type"`
	} `json:"details"`
}

// Identify posts the image for classification and, when requested, disease
// assessment in the same call.
func (c *Client) Identify(ctx context.Context, image []byte, opts florascan.IdentifyOptions) (florascan.ProviderResult, error) {
	reqBody := identifyRequest{
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	}
	if opts.Disease {
		reqBody.Health = "all"
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantid: encode request: %w", err)
	}

	u := c.baseURL + "/identification?" + url.Values{
		"details": {"common_names,description,treatment,watering,best_light_condition,best_soil_type"},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantid: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little for the error message, never the whole body
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return florascan.ProviderResult{}, fmt.Errorf("plantid: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return florascan.ProviderResult{}, fmt.Errorf("plantid: decode response: %w", err)
	}
	return c.toResult(parsed, opts), nil
}

func (c *Client) toResult(parsed identifyResponse, opts florascan.IdentifyOptions) florascan.ProviderResult {
	res := florascan.ProviderResult{Provider: florascan.ProviderPrimary}

	for _, s := range parsed.Result.Classification.Suggestions {
		cand := florascan.Candidate{Name: s.Name, Score: s.Probability}
		if len(s.Details.CommonNames) > 0 {
			cand.CommonName = s.Details.CommonNames[0]
		}
		res.Candidates = append(res.Candidates, cand)
		if res.Care == nil && (s.Details.Watering != "" || s.Details.Sunlight != "" || s.Details.Soil != "") {
			res.Care = &florascan.CareInfo{
				Watering: s.Details.Watering,
				Sunlight: s.Details.Sunlight,
				Soil:     s.Details.Soil,
			}
		}
	}

	if opts.Disease {
		if ds := parsed.Result.Disease.Suggestions; len(ds) > 0 {
			top := ds[0]
			res.Disease = &florascan.DiseaseInfo{
				Name:        top.Name,
				Probability: top.Probability,
				Description: top.Details.Description,
				Treatment:   joinTreatment(top),
			}
		}
	}
	return res
}

func joinTreatment(s suggestion) string {
	var parts []string
	parts = append(parts, s.Details.Treatment.Biological...)
	parts = append(parts, s.Details.Treatment.Chemical...)
	parts = append(parts, s.Details.Treatment.Prevention...)
	return strings.Join(parts, " ")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
