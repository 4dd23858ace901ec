package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

const (
	// flatRunEpsilon collapses consecutive points whose values differ by
	// no more than this into the first point of the run.
	flatRunEpsilon = 1e-8

	// maxPlotPoints bounds the downsampled output.
	maxPlotPoints = 20

	// trimLeadingFraction of the oldest points is discarded so early
	// history does not dominate the shape.
	trimLeadingFraction = 0.25
)

// Trend is the overall direction of a processed series.
type Trend int

const (
	TrendFlat Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) Color() string {
	switch t {
	case TrendUp:
		return "#3b82f6"
	case TrendDown:
		return "#ef4444"
	default:
		return "#007bff"
	}
}

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "flat"
	}
}

// Viewport is the fixed-size output box points are mapped into.
type Viewport struct {
	Width   float64
	Height  float64
	Padding float64
}

// DefaultViewport matches the sparkline box used by the presentation layer.
var DefaultViewport = Viewport{Width: 120, Height: 36, Padding: 2}

// SortPoints orders a series ascending by time, in place.
func SortPoints(points []domain.SeriesPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
}

// DedupFlatRuns collapses runs of near-identical consecutive values,
// keeping the first point of each run. Idempotent.
func DedupFlatRuns(points []domain.SeriesPoint) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, 0, len(points))
	for _, pt := range points {
		if len(out) == 0 || math.Abs(pt.Value-out[len(out)-1].Value) > flatRunEpsilon {
			out = append(out, pt)
		}
	}
	return out
}

// TrimOldest drops the leading quarter of the series.
func TrimOldest(points []domain.SeriesPoint) []domain.SeriesPoint {
	start := int(math.Floor(float64(len(points)) * trimLeadingFraction))
	return points[start:]
}

// Downsample keeps every stride-th point starting at index 0 so at most
// maxPlotPoints remain.
func Downsample(points []domain.SeriesPoint) []domain.SeriesPoint {
	if len(points) == 0 {
		return points
	}
	// ceiling division keeps the output bound strict for lengths just
	// above the maximum
	stride := (len(points) + maxPlotPoints - 1) / maxPlotPoints
	if stride < 1 {
		stride = 1
	}
	out := make([]domain.SeriesPoint, 0, maxPlotPoints+1)
	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}
	return out
}

// TrendOf compares the first and last values. Fewer than two points keep
// the neutral default.
func TrendOf(points []domain.SeriesPoint) Trend {
	if len(points) < 2 {
		return TrendFlat
	}
	if points[len(points)-1].Value > points[0].Value {
		return TrendUp
	}
	return TrendDown
}

// Process runs the full pipeline over a raw tick series: sort, flat-run
// dedup, leading trim, downsample, trend.
func Process(points []domain.SeriesPoint) ([]domain.SeriesPoint, Trend) {
	series := make([]domain.SeriesPoint, len(points))
	copy(series, points)
	SortPoints(series)
	series = DedupFlatRuns(series)
	series = TrimOldest(series)
	series = Downsample(series)
	return series, TrendOf(series)
}

// MapToViewport projects the series into the viewport with symmetric
// padding. Values grow bottom-to-top, so y is inverted; a zero-span axis is
// treated as span 1 to avoid division by zero.
func MapToViewport(points []domain.SeriesPoint, vp Viewport) []domain.PlotPoint {
	if len(points) == 0 {
		return nil
	}

	minX, maxX := points[0].Time, points[0].Time
	minY, maxY := points[0].Value, points[0].Value
	for _, pt := range points {
		if pt.Time < minX {
			minX = pt.Time
		}
		if pt.Time > maxX {
			maxX = pt.Time
		}
		if pt.Value < minY {
			minY = pt.Value
		}
		if pt.Value > maxY {
			maxY = pt.Value
		}
	}

	spanX := float64(maxX - minX)
	if spanX == 0 {
		spanX = 1
	}
	spanY := maxY - minY
	if spanY == 0 {
		spanY = 1
	}

	w := vp.Width - vp.Padding*2
	h := vp.Height - vp.Padding*2

	mapped := make([]domain.PlotPoint, 0, len(points))
	for _, pt := range points {
		mapped = append(mapped, domain.PlotPoint{
			X: vp.Padding + float64(pt.Time-minX)/spanX*w,
			Y: vp.Padding + (1-(pt.Value-minY)/spanY)*h,
		})
	}
	return mapped
}

// PathData renders plot points as an SVG path ("M x,y L x,y ...") with
// two-decimal coordinates. Empty input yields an empty path.
func PathData(points []domain.PlotPoint) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	for i, pt := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s%.2f,%.2f", cmd, pt.X, pt.Y)
	}
	return b.String()
}

// Sparkline turns a pair's raw history into a display-ready point sequence.
// A missing sparkline is a degraded state, not a fatal one: any fetch or
// parse failure yields an empty sequence instead of an error.
type Sparkline struct {
	source   domain.SeriesSource
	viewport Viewport
	logger   *zap.Logger
}

func NewSparkline(source domain.SeriesSource, vp Viewport, logger *zap.Logger) *Sparkline {
	return &Sparkline{source: source, viewport: vp, logger: logger}
}

func (s *Sparkline) Render(ctx context.Context, pairID int64, intervalSec int) ([]domain.PlotPoint, Trend) {
	raw, err := s.source.GetSeries(ctx, pairID, intervalSec)
	if err != nil {
		s.logger.Warn("sparkline fetch failed",
			zap.Int64("pair", pairID),
			zap.Error(err))
		return nil, TrendFlat
	}
	series, trend := Process(raw)
	return MapToViewport(series, s.viewport), trend
}
