package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"trendbot/internal/domain"

	"github.com/markcheno/go-talib"
)

const (
	chartWidth  = 960
	chartHeight = 640
	maxPoints   = 240

	smaShort  = 9
	smaLong   = 20
	rsiPeriod = 14
)

var ErrTooFewSamples = errors.New("need at least 2 price samples to render a chart")

var (
	colBackground = color.RGBA{R: 250, G: 252, B: 255, A: 255}
	colGrid       = color.RGBA{R: 225, G: 232, B: 240, A: 255}
	colBull       = color.RGBA{R: 18, G: 140, B: 126, A: 255}
	colBear       = color.RGBA{R: 210, G: 61, B: 87, A: 255}
	colFlat       = color.RGBA{R: 58, G: 64, B: 90, A: 255}
	colShort      = color.RGBA{R: 62, G: 106, B: 214, A: 255}
	colLong       = color.RGBA{R: 255, G: 149, B: 0, A: 255}
	colBand       = color.RGBA{R: 104, G: 122, B: 146, A: 255}
)

// Renderer draws the trailing price window of an asset with its moving
// averages above and RSI below.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderTrend returns a PNG of samples. The price line is colored by trend.
func (r *Renderer) RenderTrend(samples []*domain.PriceSample, trend domain.Trend) ([]byte, error) {
	prices := normalizePrices(samples)
	if len(prices) < 2 {
		return nil, ErrTooFewSamples
	}
	if len(prices) > maxPoints {
		prices = prices[len(prices)-maxPoints:]
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fillRect(img, img.Bounds(), colBackground)

	mainRect := image.Rect(60, 20, chartWidth-20, (chartHeight*72)/100)
	auxRect := image.Rect(60, mainRect.Max.Y+16, chartWidth-20, chartHeight-30)
	drawGrid(img, mainRect, 8, 6)
	drawGrid(img, auxRect, 8, 3)

	short := smaSeries(prices, smaShort)
	long := smaSeries(prices, smaLong)
	minV, maxV := finiteBounds(prices)
	drawSeries(img, mainRect, short, minV, maxV, colShort)
	drawSeries(img, mainRect, long, minV, maxV, colLong)
	drawSeries(img, mainRect, prices, minV, maxV, trendColor(trend))

	drawHorizontalValueLine(img, auxRect, 30, 0, 100, colBand)
	drawHorizontalValueLine(img, auxRect, 70, 0, 100, colBand)
	drawSeries(img, auxRect, rsiSeries(prices, rsiPeriod), 0, 100, colShort)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func trendColor(trend domain.Trend) color.RGBA {
	switch trend {
	case domain.TrendBullish:
		return colBull
	case domain.TrendBearish:
		return colBear
	default:
		return colFlat
	}
}

func normalizePrices(in []*domain.PriceSample) []float64 {
	samples := make([]*domain.PriceSample, 0, len(in))
	for _, s := range in {
		if s != nil {
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Timestamp.Before(samples[j].Timestamp) })
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.PriceUSD
	}
	return out
}

// smaSeries is NaN until period samples exist.
func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, talib.Sma(values, period))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

func rsiSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) <= period {
		return out
	}
	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gainSum += d
		} else {
			lossSum -= d
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiFromAvg(avgGain, avgLoss)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		avgGain = (avgGain*float64(period-1) + math.Max(d, 0)) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + math.Max(-d, 0)) / float64(period)
		out[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

func drawSeries(img *image.RGBA, rect image.Rectangle, series []float64, minV, maxV float64, col color.RGBA) {
	lastX, lastY := -1, -1
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			lastX, lastY = -1, -1
			continue
		}
		x := mapIndexToX(i, len(series), rect)
		y := mapValueToY(v, minV, maxV, rect)
		if lastX >= 0 {
			drawLine(img, lastX, lastY, x, y, col)
		}
		lastX, lastY = x, y
	}
}

func drawGrid(img *image.RGBA, rect image.Rectangle, verticalLines, horizontalLines int) {
	for i := 0; i <= verticalLines; i++ {
		x := rect.Min.X + (rect.Dx()*i)/max(1, verticalLines)
		drawLine(img, x, rect.Min.Y, x, rect.Max.Y, colGrid)
	}
	for i := 0; i <= horizontalLines; i++ {
		y := rect.Min.Y + (rect.Dy()*i)/max(1, horizontalLines)
		drawLine(img, rect.Min.X, y, rect.Max.X, y, colGrid)
	}
}

func drawHorizontalValueLine(img *image.RGBA, rect image.Rectangle, value, minV, maxV float64, col color.RGBA) {
	y := mapValueToY(value, minV, maxV, rect)
	drawLine(img, rect.Min.X, y, rect.Max.X, y, col)
}

func mapIndexToX(idx, total int, rect image.Rectangle) int {
	if total <= 1 {
		return rect.Min.X
	}
	return rect.Min.X + (idx*(rect.Dx()-1))/(total-1)
}

func mapValueToY(value, minV, maxV float64, rect image.Rectangle) int {
	if maxV <= minV {
		return rect.Max.Y
	}
	ratio := math.Max(0, math.Min(1, (value-minV)/(maxV-minV)))
	return rect.Max.Y - int(ratio*float64(rect.Dy()-1))
}

func finiteBounds(values []float64) (float64, float64) {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if math.IsInf(minV, 1) {
		return 0, 1
	}
	if minV == maxV {
		return minV, maxV + 1
	}
	return minV, maxV
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	r := rect.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine is Bresenham's.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx, sx := abs(x1-x0), 1
	if x0 > x1 {
		sx = -1
	}
	dy, sy := -abs(y1-y0), 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
