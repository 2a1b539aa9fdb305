package regulatory

import (
	"math"

	"github.com/aristath/quantcore/internal/domain"
)

// liquidityBucket maps the largest position/volume ratio of a bucket to its horizon in days
type liquidityBucket struct {
	maxVolumeRatio float64
	horizonDays    int
}

var liquidityBuckets = []liquidityBucket{
	{maxVolumeRatio: 0.10, horizonDays: 1},
	{maxVolumeRatio: 0.25, horizonDays: 5},
	{maxVolumeRatio: 0.50, horizonDays: 20},
}

const (
	illiquidHorizonDays = 60
	horizonPremiumRate  = 0.01
)

// LiquidityInput is one position's VaR with the market depth needed to unwind it
type LiquidityInput struct {
	Symbol         string  `json:"symbol"`
	VaR            float64 `json:"var"`
	PositionSize   float64 `json:"position_size"`
	AvgDailyVolume float64 `json:"avg_daily_volume"`
	BidAskSpread   float64 `json:"bid_ask_spread"` // decimal, 0.002 = 20 bps
}

// LiquidityResult is the liquidity-adjusted VaR of one position
type LiquidityResult struct {
	Symbol           string  `json:"symbol"`
	VolumeRatio      float64 `json:"volume_ratio"`
	HorizonDays      int     `json:"horizon_days"`
	LiquidityPremium float64 `json:"liquidity_premium"`
	VaR              float64 `json:"var"`
	LiquidityVaR     float64 `json:"liquidity_adjusted_var"`
}

// LiquidityReport holds per-position results and their sums
type LiquidityReport struct {
	Positions         []LiquidityResult `json:"positions"`
	TotalVaR          float64           `json:"total_var"`
	TotalLiquidityVaR float64           `json:"total_liquidity_adjusted_var"`
}

// LiquidityHorizon buckets a position/average-daily-volume ratio into days needed to exit
func LiquidityHorizon(volumeRatio float64) int {
	for _, b := range liquidityBuckets {
		if volumeRatio <= b.maxVolumeRatio {
			return b.horizonDays
		}
	}
	return illiquidHorizonDays
}

// LiquidityAdjustedRisk scales each VaR by 1 + spread/2 + √horizon·1%
func LiquidityAdjustedRisk(inputs []LiquidityInput) (LiquidityReport, error) {
	if len(inputs) == 0 {
		return LiquidityReport{}, &domain.InsufficientDataError{What: "positions", Need: 1, Got: 0}
	}

	report := LiquidityReport{Positions: make([]LiquidityResult, len(inputs))}
	for i, in := range inputs {
		if err := in.validate(); err != nil {
			return LiquidityReport{}, domain.WrapIndex("positions", i, err)
		}

		ratio := in.PositionSize / in.AvgDailyVolume
		horizon := LiquidityHorizon(ratio)
		premium := in.BidAskSpread/2 + math.Sqrt(float64(horizon))*horizonPremiumRate
		lvar := in.VaR * (1 + premium)

		report.Positions[i] = LiquidityResult{
			Symbol:           in.Symbol,
			VolumeRatio:      ratio,
			HorizonDays:      horizon,
			LiquidityPremium: premium,
			VaR:              in.VaR,
			LiquidityVaR:     lvar,
		}
		report.TotalVaR += in.VaR
		report.TotalLiquidityVaR += lvar
	}
	return report, nil
}

func (in LiquidityInput) validate() error {
	if !(in.AvgDailyVolume > 0) {
		return &domain.ValidationError{Field: "avg_daily_volume", Reason: "must be positive"}
	}
	if !(in.PositionSize >= 0) {
		return &domain.ValidationError{Field: "position_size", Reason: "must be non-negative"}
	}
	if !(in.BidAskSpread >= 0) {
		return &domain.ValidationError{Field: "bid_ask_spread", Reason: "must be non-negative"}
	}
	if math.IsNaN(in.VaR) || math.IsInf(in.VaR, 0) {
		return &domain.ValidationError{Field: "var", Reason: "must be finite"}
	}
	return nil
}
