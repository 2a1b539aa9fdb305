package curves

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantcore/internal/domain"
)

func curveOf(points ...domain.CurvePoint) domain.YieldCurve {
	return domain.YieldCurve{Points: points}
}

func TestInterpolate(t *testing.T) {
	curve := curveOf(
		domain.CurvePoint{Maturity: 1, Rate: 0.02},
		domain.CurvePoint{Maturity: 3, Rate: 0.04},
		domain.CurvePoint{Maturity: 10, Rate: 0.05},
	)

	tests := []struct {
		name     string
		maturity float64
		want     float64
	}{
		{"before first point", 0.25, 0.02},
		{"on first point", 1, 0.02},
		{"midway", 2, 0.03},
		{"on inner point", 3, 0.04},
		{"second segment", 6.5, 0.045},
		{"beyond last point", 30, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(curve, tt.maturity)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestInterpolate_NeedsTwoPoints(t *testing.T) {
	_, err := Interpolate(curveOf(domain.CurvePoint{Maturity: 1, Rate: 0.02}), 1)
	assert.True(t, domain.IsInsufficientData(err))
}

func TestForwardRates(t *testing.T) {
	forwards := ForwardRates([]domain.CurvePoint{
		{Maturity: 1, Rate: 0.02},
		{Maturity: 2, Rate: 0.03},
		{Maturity: 4, Rate: 0.03},
	})
	require.Len(t, forwards, 2)

	assert.InDelta(t, 1.03*1.03/1.02-1, forwards[0].Rate, 1e-12)
	assert.Equal(t, 1.0, forwards[0].Start)
	assert.Equal(t, 2.0, forwards[0].End)
	// flat segment forwards at the spot rate
	assert.InDelta(t, 0.03, forwards[1].Rate, 1e-12)

	assert.Empty(t, ForwardRates(nil))
}

func TestForwardRates_ReproduceLongZero(t *testing.T) {
	points := []domain.CurvePoint{
		{Maturity: 0.5, Rate: 0.041},
		{Maturity: 2, Rate: 0.037},
		{Maturity: 7, Rate: 0.044},
	}
	growth := math.Pow(1+points[0].Rate, points[0].Maturity)
	for _, f := range ForwardRates(points) {
		growth *= math.Pow(1+f.Rate, f.End-f.Start)
	}
	assert.InDelta(t, math.Pow(1.044, 7), growth, 1e-12)
}

func TestClassifyShape(t *testing.T) {
	tests := []struct {
		name  string
		rates [3]float64
		want  ShapeType
	}{
		{"normal", [3]float64{0.02, 0.03, 0.04}, ShapeNormal},
		{"inverted", [3]float64{0.05, 0.04, 0.03}, ShapeInverted},
		{"humped", [3]float64{0.02, 0.05, 0.03}, ShapeHumped},
		{"flat", [3]float64{0.0300, 0.0302, 0.0305}, ShapeFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve := curveOf(
				domain.CurvePoint{Maturity: 0.25, Rate: tt.rates[0]},
				domain.CurvePoint{Maturity: 2, Rate: tt.rates[1]},
				domain.CurvePoint{Maturity: 10, Rate: tt.rates[2]},
			)
			shape, err := ClassifyShape(curve)
			require.NoError(t, err)

			assert.Equal(t, tt.want, shape.Type)
			assert.InDelta(t, tt.rates[2]-tt.rates[0], shape.Slope, 1e-12)
			assert.InDelta(t, 2*tt.rates[1]-tt.rates[0]-tt.rates[2], shape.Curvature, 1e-12)
			assert.InDelta(t, (tt.rates[0]+tt.rates[1]+tt.rates[2])/3, shape.Level, 1e-12)
			assert.InDelta(t, tt.rates[2]-tt.rates[1], shape.Spread2y10y, 1e-12)
			assert.InDelta(t, tt.rates[2]-tt.rates[0], shape.Spread3m10y, 1e-12)
		})
	}

	_, err := ClassifyShape(curveOf())
	assert.True(t, domain.IsInsufficientData(err))
}
