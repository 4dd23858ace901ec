package proof

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client fetches execution proofs. A proof is short-lived: it is requested
// fresh immediately before each market submission and never cached.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
		logger: logger,
	}
}

func (c *Client) FetchProof(ctx context.Context, assetIndex int64) (string, error) {
	var out struct {
		Proof string `json:"proof"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("pairs", strconv.FormatInt(assetIndex, 10)).
		SetResult(&out).
		Get("/proof")
	if err != nil {
		return "", fmt.Errorf("fetch proof: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("proof endpoint status %d", resp.StatusCode())
	}
	if out.Proof == "" {
		return "", fmt.Errorf("proof endpoint returned empty proof")
	}
	return out.Proof, nil
}
