package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/options_alerts/internal/domain"
)

// Batch is what an upstream scanner publishes per cycle.
type Batch struct {
	IVRank        float64              `json:"iv_rank"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// HTTPFeed pulls opportunity batches from scanner endpoints.
type HTTPFeed struct {
	client *http.Client
}

func NewHTTPFeed(client *http.Client) *HTTPFeed {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFeed{client: client}
}

func (f *HTTPFeed) Fetch(ctx context.Context, url string) (*Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	var batch Batch
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode batch from %s: %w", url, err)
	}
	return &batch, nil
}
