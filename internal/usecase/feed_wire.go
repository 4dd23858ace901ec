package usecase

import (
	"encoding/json"
	"strings"

	"github.com/vitos/perps_sync/internal/domain"
)

// The feed delivers text frames shaped as a JSON object keyed by arbitrary
// identifiers; each value optionally carries an instruments array. Envelope
// values that do not decode, or that lack a usable instruments array, are
// skipped without affecting sibling envelopes.

type feedInstrument struct {
	TradingPair  string           `json:"tradingPair"`
	CurrentPrice domain.FlexFloat `json:"currentPrice"`
	Change24h    domain.FlexFloat `json:"24h_change"`
	High24h      domain.FlexFloat `json:"24h_high"`
	Low24h       domain.FlexFloat `json:"24h_low"`
	Timestamp    string           `json:"timestamp"`
}

type feedEnvelope struct {
	ID          *int64          `json:"id"`
	Name        string          `json:"name"`
	Instruments json.RawMessage `json:"instruments"`
}

// decodeFrame splits a raw frame into its envelopes. A frame that is not a
// JSON object is rejected as a whole; a single malformed envelope is not.
func decodeFrame(raw []byte) (map[string]json.RawMessage, error) {
	var envelopes map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, err
	}
	return envelopes, nil
}

func decodeEnvelope(raw json.RawMessage) (feedEnvelope, []feedInstrument, bool) {
	var env feedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return feedEnvelope{}, nil, false
	}
	if len(env.Instruments) == 0 {
		return env, nil, false
	}
	var instruments []feedInstrument
	if err := json.Unmarshal(env.Instruments, &instruments); err != nil {
		return env, nil, false
	}
	if len(instruments) == 0 {
		return env, nil, false
	}
	return env, instruments, true
}

// NormalizeSymbol uppercases a feed pair string and replaces the underscore
// separator with a slash: "eth_usdt" -> "ETH/USDT".
func NormalizeSymbol(pair string) string {
	return strings.ReplaceAll(strings.ToUpper(pair), "_", "/")
}

// ParseFeedFrame flattens one frame into instrument snapshots, one per
// instrument entry across all envelopes.
func ParseFeedFrame(raw []byte) ([]domain.InstrumentSnapshot, error) {
	envelopes, err := decodeFrame(raw)
	if err != nil {
		return nil, err
	}

	var snapshots []domain.InstrumentSnapshot
	for _, rawEnv := range envelopes {
		env, instruments, ok := decodeEnvelope(rawEnv)
		if !ok {
			continue
		}
		for _, inst := range instruments {
			snap := domain.InstrumentSnapshot{
				Symbol:       NormalizeSymbol(inst.TradingPair),
				DisplayName:  env.Name,
				Price:        inst.CurrentPrice.Float64(),
				ChangePct24h: inst.Change24h.Float64(),
				High24h:      inst.High24h.Float64(),
				Low24h:       inst.Low24h.Float64(),
				ObservedAt:   inst.Timestamp,
			}
			if env.ID != nil {
				snap.ID = *env.ID
				snap.HasID = true
			}
			if snap.Price < 0 {
				snap.Price = 0
			}
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots, nil
}
