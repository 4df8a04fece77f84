package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"verdant/internal/external"
	"verdant/internal/types"
)

// HTTPFetcher calls POST {baseURL}/api/hazard-info, the same endpoint the
// browser uses.
type HTTPFetcher struct {
	base    *external.BaseClient
	baseURL string
}

func NewHTTPFetcher(base *external.BaseClient, baseURL string) *HTTPFetcher {
	return &HTTPFetcher{base: base, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Fetch returns the text field of a 2xx response. Transport failures, non-2xx
// statuses and undecodable bodies are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, req types.HazardInfoRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding hazard info request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/api/hazard-info", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating hazard info request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.base.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("hazard info returned status %d", resp.StatusCode)
	}

	var out types.HazardInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding hazard info response: %w", err)
	}
	return out.Text, nil
}
