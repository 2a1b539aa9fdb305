package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/quantcore/internal/config"
	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/analytics/handlers"
	"github.com/aristath/quantcore/internal/modules/curves"
	"github.com/aristath/quantcore/internal/services"
	"github.com/aristath/quantcore/pkg/logger"
)

// app is the state shared by every subcommand once the root command has loaded config
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	service *services.AnalyticsService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "quantcli",
		Short:         "Fixed-income and portfolio risk analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.LogLevel = level
			}

			a.cfg = cfg
			a.log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Output: cmd.ErrOrStderr()})
			a.service = services.NewAnalyticsService(cfg, curves.NewCache(), a.log)
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		a.priceCmd(),
		a.yieldCmd(),
		a.curveCmd(),
		a.varCmd(),
		a.portfolioCmd(),
		a.stressCmd(),
		a.factorsCmd(),
		a.baselCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quantcli %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", commit)
		},
	}
}

// inputCommand builds a command that decodes --input into a fresh T and prints what run returns
func inputCommand[T any](use, short string, run func(cmd *cobra.Command, req T) (interface{}, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("input")

			var req T
			if err := readInput(path, &req); err != nil {
				return err
			}
			result, err := run(cmd, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringP("input", "i", "", "JSON input file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) priceCmd() *cobra.Command {
	return inputCommand("price", "Price bonds at given yields",
		func(cmd *cobra.Command, req handlers.PriceBondsRequest) (interface{}, error) {
			return a.service.PriceBonds(req.Bonds, req.ValuationDate)
		})
}

func (a *app) yieldCmd() *cobra.Command {
	return inputCommand("yield", "Solve yields to maturity from market prices",
		func(cmd *cobra.Command, req handlers.UniverseRequest) (interface{}, error) {
			return a.service.SolveYields(domain.BondUniverse{Bonds: req.Bonds, Prices: req.Prices}, req.ValuationDate)
		})
}

func (a *app) curveCmd() *cobra.Command {
	cmd := inputCommand("curve", "Bootstrap a zero curve from a bond universe",
		func(cmd *cobra.Command, req handlers.UniverseRequest) (interface{}, error) {
			if method, _ := cmd.Flags().GetString("method"); method != "" {
				req.Method = method
			}
			return a.service.BootstrapCurve(domain.BondUniverse{Bonds: req.Bonds, Prices: req.Prices}, req.ValuationDate, req.Method)
		})
	cmd.Flags().String("method", "", "bootstrap method (iterative, simplified)")
	return cmd
}

func (a *app) varCmd() *cobra.Command {
	cmd := inputCommand("var", "Compute Value at Risk and Expected Shortfall",
		func(cmd *cobra.Command, req services.RiskRequest) (interface{}, error) {
			if method, _ := cmd.Flags().GetString("method"); method != "" {
				req.Method = domain.RiskMethod(method)
			}
			return a.service.ComputeRisk(cmd.Context(), req)
		})
	cmd.Flags().String("method", "", "VaR method (historical, parametric, monte_carlo)")
	return cmd
}

func (a *app) portfolioCmd() *cobra.Command {
	return inputCommand("portfolio", "Decompose portfolio VaR by asset",
		func(cmd *cobra.Command, req handlers.PortfolioRiskRequest) (interface{}, error) {
			return a.service.PortfolioRisk(req.Portfolio, req.ConfidenceLevel)
		})
}

func (a *app) stressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run historical or Monte Carlo stress tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("input")
			monteCarlo, _ := cmd.Flags().GetBool("monte-carlo")

			if monteCarlo {
				var req handlers.MonteCarloStressRequest
				if err := readInput(path, &req); err != nil {
					return err
				}
				result, err := a.service.MonteCarloStressTest(cmd.Context(), req.Portfolio, req.Shock, req.Simulations, req.Seed)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			}

			var req handlers.StressTestRequest
			if err := readInput(path, &req); err != nil {
				return err
			}
			standard, _ := cmd.Flags().GetBool("standard")
			result, err := a.service.HistoricalStressTest(req.Portfolio, req.Scenarios, req.IncludeStandard || standard)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringP("input", "i", "", "JSON input file")
	cmd.Flags().Bool("monte-carlo", false, "simulate shocked returns instead of replaying scenarios")
	cmd.Flags().Bool("standard", false, "also replay the built-in historical episodes")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) factorsCmd() *cobra.Command {
	return inputCommand("factors", "Fit a linear factor model",
		func(cmd *cobra.Command, req handlers.FactorModelRequest) (interface{}, error) {
			return a.service.FactorModel(req.AssetReturns, req.FactorReturns, req.FactorNames)
		})
}

func (a *app) baselCmd() *cobra.Command {
	return inputCommand("basel", "Compute Basel III capital and leverage ratios",
		func(cmd *cobra.Command, req handlers.BaselRequest) (interface{}, error) {
			return a.service.BaselIII(req.Positions, req.RiskWeights)
		})
}

func readInput(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
