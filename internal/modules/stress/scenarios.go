package stress

import (
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

// AssetClassShocks maps an asset class to the return it suffered in an episode
type AssetClassShocks map[domain.AssetClass]float64

// NamedScenario is a market episode described per asset class rather than per position
type NamedScenario struct {
	Date        time.Time        `json:"date"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Shocks      AssetClassShocks `json:"shocks"`
}

// StandardScenarios returns the built-in historical episodes, oldest first.
// Shocks are peak-to-trough returns per asset class, rounded.
func StandardScenarios() []NamedScenario {
	return []NamedScenario{
		{
			Date:        time.Date(1987, 10, 19, 0, 0, 0, 0, time.UTC),
			Name:        "black_monday_1987",
			Description: "October 1987 equity crash",
			Shocks: AssetClassShocks{
				domain.AssetClassEquity:         -0.205,
				domain.AssetClassGovernmentBond: 0.020,
				domain.AssetClassAgencyBond:     0.015,
				domain.AssetClassMunicipalBond:  0.010,
				domain.AssetClassCorporateBond:  -0.010,
				domain.AssetClassHighYieldBond:  -0.050,
				domain.AssetClassMortgage:       0.010,
				domain.AssetClassCommodity:      -0.030,
				domain.AssetClassRealEstate:     -0.100,
				domain.AssetClassAlternative:    -0.080,
			},
		},
		{
			Date:        time.Date(2002, 10, 9, 0, 0, 0, 0, time.UTC),
			Name:        "dot_com_2000",
			Description: "2000-2002 technology bubble unwind",
			Shocks: AssetClassShocks{
				domain.AssetClassEquity:         -0.490,
				domain.AssetClassGovernmentBond: 0.120,
				domain.AssetClassAgencyBond:     0.100,
				domain.AssetClassMunicipalBond:  0.080,
				domain.AssetClassCorporateBond:  0.050,
				domain.AssetClassHighYieldBond:  -0.100,
				domain.AssetClassMortgage:       0.080,
				domain.AssetClassCommodity:      0.050,
				domain.AssetClassRealEstate:     0.100,
				domain.AssetClassAlternative:    -0.150,
			},
		},
		{
			Date:        time.Date(2009, 3, 9, 0, 0, 0, 0, time.UTC),
			Name:        "global_financial_crisis_2008",
			Description: "2008-2009 credit crisis",
			Shocks: AssetClassShocks{
				domain.AssetClassEquity:         -0.500,
				domain.AssetClassGovernmentBond: 0.100,
				domain.AssetClassAgencyBond:     0.060,
				domain.AssetClassMunicipalBond:  -0.050,
				domain.AssetClassCorporateBond:  -0.150,
				domain.AssetClassHighYieldBond:  -0.330,
				domain.AssetClassMortgage:       -0.050,
				domain.AssetClassCommodity:      -0.550,
				domain.AssetClassRealEstate:     -0.600,
				domain.AssetClassAlternative:    -0.250,
			},
		},
		{
			Date:        time.Date(2020, 3, 23, 0, 0, 0, 0, time.UTC),
			Name:        "covid_2020",
			Description: "February-March 2020 pandemic sell-off",
			Shocks: AssetClassShocks{
				domain.AssetClassEquity:         -0.340,
				domain.AssetClassGovernmentBond: 0.050,
				domain.AssetClassAgencyBond:     0.020,
				domain.AssetClassMunicipalBond:  -0.100,
				domain.AssetClassCorporateBond:  -0.120,
				domain.AssetClassHighYieldBond:  -0.200,
				domain.AssetClassMortgage:       -0.020,
				domain.AssetClassCommodity:      -0.300,
				domain.AssetClassRealEstate:     -0.400,
				domain.AssetClassAlternative:    -0.150,
			},
		},
		{
			Date:        time.Date(2022, 10, 12, 0, 0, 0, 0, time.UTC),
			Name:        "rate_shock_2022",
			Description: "2022 inflation and rate hiking cycle",
			Shocks: AssetClassShocks{
				domain.AssetClassEquity:         -0.250,
				domain.AssetClassGovernmentBond: -0.170,
				domain.AssetClassAgencyBond:     -0.120,
				domain.AssetClassMunicipalBond:  -0.100,
				domain.AssetClassCorporateBond:  -0.180,
				domain.AssetClassHighYieldBond:  -0.150,
				domain.AssetClassMortgage:       -0.120,
				domain.AssetClassCommodity:      0.160,
				domain.AssetClassRealEstate:     -0.280,
				domain.AssetClassAlternative:    -0.100,
			},
		},
	}
}

// ScenarioFromAssetClassShocks lays the episode's shocks onto the portfolio's positions.
// Classes the episode does not mention, cash included, are left unshocked.
func ScenarioFromAssetClassShocks(portfolio domain.Portfolio, named NamedScenario) domain.StressScenario {
	returns := make([]float64, len(portfolio.Positions))
	for i, pos := range portfolio.Positions {
		returns[i] = named.Shocks[pos.AssetClass]
	}
	return domain.StressScenario{
		Date:        named.Date,
		Name:        named.Name,
		Description: named.Description,
		Returns:     returns,
	}
}

// StandardStressScenarios maps every built-in episode onto the portfolio
func StandardStressScenarios(portfolio domain.Portfolio) []domain.StressScenario {
	named := StandardScenarios()
	out := make([]domain.StressScenario, len(named))
	for i, n := range named {
		out[i] = ScenarioFromAssetClassShocks(portfolio, n)
	}
	return out
}
