package history

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

// Client fetches raw tick series from the historical chart endpoint.
// The endpoint returns near-JSON: an array of {time, open} objects that may
// be missing outer brackets or separators between objects.
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

type rawPoint struct {
	Time domain.FlexFloat  `json:"time"`
	Open *domain.FlexFloat `json:"open"`
}

func (c *Client) GetSeries(ctx context.Context, pairID int64, intervalSec int) ([]domain.SeriesPoint, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"pair":     strconv.FormatInt(pairID, 10),
			"interval": strconv.Itoa(intervalSec),
		}).
		Get("/history")
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("history endpoint status %d", resp.StatusCode())
	}

	repaired, err := RepairArray(resp.Body())
	if err != nil {
		return nil, err
	}

	var raw []rawPoint
	if err := json.Unmarshal(repaired, &raw); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	points := make([]domain.SeriesPoint, 0, len(raw))
	for _, r := range raw {
		// rows without a usable time or open value are dropped
		if r.Time == 0 || r.Open == nil {
			continue
		}
		points = append(points, domain.SeriesPoint{
			Time:  int64(r.Time),
			Value: r.Open.Float64(),
		})
	}
	return points, nil
}

var (
	objectRunRe   = regexp.MustCompile(`}\s*,?\s*{`)
	trailingComma = regexp.MustCompile(`,+\s*$`)
)

// RepairArray turns a near-JSON array into a valid one or rejects it with
// domain.ErrUnparseable. Payloads that already start with '[' pass through
// untouched; otherwise the outer brackets are restored, runs of adjacent
// objects get their separating commas and trailing commas are stripped.
func RepairArray(body []byte) ([]byte, error) {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "[") {
		text = objectRunRe.ReplaceAllString(text, "},{")
		text = trailingComma.ReplaceAllString(text, "")
		text = "[" + text + "]"
	}
	if !json.Valid([]byte(text)) {
		return nil, domain.ErrUnparseable
	}
	return []byte(text), nil
}
