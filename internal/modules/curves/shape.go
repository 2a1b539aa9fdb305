package curves

import (
	"math"

	"github.com/aristath/quantcore/internal/domain"
)

// ShapeType is the qualitative form of a yield curve
type ShapeType string

const (
	ShapeNormal   ShapeType = "normal"
	ShapeInverted ShapeType = "inverted"
	ShapeFlat     ShapeType = "flat"
	ShapeHumped   ShapeType = "humped"
)

// flatThreshold is the largest short-long gap still called flat
const flatThreshold = 0.001

// Shape summarises the level, slope and curvature of a curve
type Shape struct {
	Type        ShapeType `json:"type"`
	ShortRate   float64   `json:"short_rate"`
	MidRate     float64   `json:"mid_rate"`
	LongRate    float64   `json:"long_rate"`
	Slope       float64   `json:"slope"`
	Curvature   float64   `json:"curvature"`
	Level       float64   `json:"level"`
	Spread2y10y float64   `json:"spread_2y_10y"`
	Spread3m10y float64   `json:"spread_3m_10y"`
}

// ClassifyShape compares the first, middle and last zero rates of the curve
func ClassifyShape(curve domain.YieldCurve) (Shape, error) {
	n := len(curve.Points)
	if n < 2 {
		return Shape{}, &domain.InsufficientDataError{What: "curve points", Need: 2, Got: n}
	}

	short := curve.Points[0].Rate
	mid := curve.Points[n/2].Rate
	long := curve.Points[n-1].Rate

	shape := Shape{
		ShortRate: short,
		MidRate:   mid,
		LongRate:  long,
		Slope:     long - short,
		Curvature: 2*mid - short - long,
		Level:     (short + mid + long) / 3,
	}

	switch {
	case short > long:
		shape.Type = ShapeInverted
	case mid > short && mid > long:
		shape.Type = ShapeHumped
	case math.Abs(short-long) < flatThreshold:
		shape.Type = ShapeFlat
	default:
		shape.Type = ShapeNormal
	}

	r3m := interpolatePoints(curve.Points, 0.25)
	r2y := interpolatePoints(curve.Points, 2)
	r10y := interpolatePoints(curve.Points, 10)
	shape.Spread2y10y = r10y - r2y
	shape.Spread3m10y = r10y - r3m

	return shape, nil
}
