package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"ctsim/app"
	"ctsim/internal/config"
	"ctsim/internal/container"
	"ctsim/internal/scenario"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "ctsim",
		Short:         "Monte Carlo clinical-trial simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newScenarioCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func newRunCmd() *cobra.Command {
	var (
		numTrials   int
		sampleSize  int
		effectSize  float64
		dropoutRate float64
		seed        int64
		alpha       float64
		output      string
		asJSON      bool
		withResults bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a batch of identical trials",
		Long: `Simulate a batch of identical two-arm trials and print the batch summary.

Unset flags fall back to SIM_* environment variables.

Example: ctsim run --trials 1000 --sample-size 50 --effect-size 0.5 --dropout-rate 0.1 --seed 42 --output results.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			sim := c.Config.Simulation
			req := app.BatchRequest{
				NumTrials:  sim.NumTrials,
				Config:     sim.TrialConfig(),
				Seed:       sim.SeedPtr(),
				Alpha:      sim.Alpha,
				OutputPath: c.Config.Output.File,
			}
			flags := cmd.Flags()
			if flags.Changed("trials") {
				req.NumTrials = numTrials
			}
			if flags.Changed("sample-size") {
				req.Config.SampleSize = sampleSize
			}
			if flags.Changed("effect-size") {
				req.Config.EffectSize = effectSize
			}
			if flags.Changed("dropout-rate") {
				req.Config.DropoutRate = dropoutRate
			}
			if flags.Changed("seed") {
				req.Seed = &seed
			}
			if flags.Changed("alpha") {
				req.Alpha = alpha
			}
			if flags.Changed("output") {
				req.OutputPath = output
			}

			report, err := c.SimulationService.RunBatch(cmd.Context(), req)
			if report != nil {
				if asJSON {
					if !withResults {
						trimmed := *report
						trimmed.Batch = nil
						report = &trimmed
					}
					if encErr := writeJSON(cmd.OutOrStdout(), report); encErr != nil {
						return encErr
					}
				} else {
					printReport(cmd.OutOrStdout(), report)
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&numTrials, "trials", 1000, "Number of trials in the batch")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 50, "Subjects enrolled per arm")
	cmd.Flags().Float64Var(&effectSize, "effect-size", 0.5, "Treatment mean shift in standard deviations")
	cmd.Flags().Float64Var(&dropoutRate, "dropout-rate", 0.1, "Per-subject dropout probability in [0, 1)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed; omitted draws a fresh one")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance threshold for power")
	cmd.Flags().StringVar(&output, "output", "", "Export results to .xlsx or .csv")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&withResults, "results", false, "Include per-trial rows in JSON output")

	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		numTrials   int
		sizes       string
		effectSize  float64
		dropoutRate float64
		seed        int64
		alpha       float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Estimate power across sample sizes",
		Long: `Estimate empirical power at each sample size. Point i replays from seed+i.

Example: ctsim sweep --sizes 10,20,50,100 --effect-size 0.4 --trials 2000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sampleSizes, err := parseSizes(sizes)
			if err != nil {
				return err
			}

			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			sim := c.Config.Simulation
			req := app.SweepRequest{
				NumTrials:   sim.NumTrials,
				SampleSizes: sampleSizes,
				EffectSize:  sim.EffectSize,
				DropoutRate: sim.DropoutRate,
				Seed:        sim.SeedPtr(),
				Alpha:       sim.Alpha,
			}
			flags := cmd.Flags()
			if flags.Changed("trials") {
				req.NumTrials = numTrials
			}
			if flags.Changed("effect-size") {
				req.EffectSize = effectSize
			}
			if flags.Changed("dropout-rate") {
				req.DropoutRate = dropoutRate
			}
			if flags.Changed("seed") {
				req.Seed = &seed
			}
			if flags.Changed("alpha") {
				req.Alpha = alpha
			}

			curve, err := c.SimulationService.PowerSweep(cmd.Context(), req)
			if curve != nil {
				if asJSON {
					if encErr := writeJSON(cmd.OutOrStdout(), curve); encErr != nil {
						return encErr
					}
				} else {
					printCurve(cmd.OutOrStdout(), curve)
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&numTrials, "trials", 1000, "Trials per sample size")
	cmd.Flags().StringVar(&sizes, "sizes", "10,20,50,100,200", "Comma-separated per-arm sample sizes")
	cmd.Flags().Float64Var(&effectSize, "effect-size", 0.5, "Treatment mean shift in standard deviations")
	cmd.Flags().Float64Var(&dropoutRate, "dropout-rate", 0.1, "Per-subject dropout probability in [0, 1)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed; omitted draws a fresh one")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance threshold for power")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the curve as JSON")

	return cmd
}

func newScenarioCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "Run the scenarios defined in a YAML file",
		Long: `Run every scenario in a YAML file, or just one with --name.

Example file:

  scenarios:
    - name: baseline
      num_trials: 1000
      sample_size: 50
      effect_size: 0.5
      dropout_rate: 0.1
      seed: 42
      output: baseline.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			scenarios := file.Scenarios
			if only != "" {
				s, ok := file.Find(only)
				if !ok {
					return fmt.Errorf("scenario %q not found in %s", only, args[0])
				}
				scenarios = []scenario.Scenario{s}
			}

			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			for _, s := range scenarios {
				fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n", s.ID())
				report, err := c.SimulationService.RunBatch(cmd.Context(), app.BatchRequest{
					NumTrials:  s.NumTrials,
					Config:     s.Config,
					Seed:       s.Seed,
					Alpha:      s.Alpha,
					OutputPath: s.Output,
				})
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				if err != nil {
					return fmt.Errorf("scenario %q: %w", s.Name, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "name", "", "Run only the named scenario")
	return cmd
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid sample size %q: %w", part, err)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("--sizes must list at least one sample size")
	}
	return sizes, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *app.BatchReport) {
	s := report.Summary
	m := report.Manifest
	fmt.Fprintf(w, "Run:                  %s\n", m.RunID)
	fmt.Fprintf(w, "Seed:                 %d\n", m.Seed)
	fmt.Fprintf(w, "Fingerprint:          %s\n", m.Fingerprint.Short())
	fmt.Fprintf(w, "Design:               n=%d effect=%g dropout=%g (%s, %s)\n",
		m.Config.SampleSize, m.Config.EffectSize, m.Config.DropoutRate, m.Test, m.Estimator)
	fmt.Fprintf(w, "Trials:               %d/%d in %v\n", s.Trials, m.NumTrials, report.Duration)
	fmt.Fprintf(w, "Empirical power:      %.4f (alpha=%g, %d rejections)\n", s.EmpiricalPower.Float(), s.Alpha, s.Rejections)
	fmt.Fprintf(w, "Undefined p-values:   %d\n", s.UndefinedPValues)
	fmt.Fprintf(w, "Effective sample:     mean %.2f [%d, %d]\n", s.MeanEffectiveSample.Float(), s.MinEffectiveSample, s.MaxEffectiveSample)
	fmt.Fprintf(w, "Median p-value:       %.4g\n", s.MedianPValue.Float())
	fmt.Fprintf(w, "Mean final survival:  %.4f\n", s.MeanFinalSurvival.Float())
	if report.ExportPath != "" {
		fmt.Fprintf(w, "Exported:             %s\n", report.ExportPath)
	}
}

func printCurve(w io.Writer, curve *app.PowerCurve) {
	fmt.Fprintf(w, "Power curve: effect=%g dropout=%g trials=%d alpha=%g seed=%d\n",
		curve.EffectSize, curve.DropoutRate, curve.NumTrials, curve.Alpha, curve.Seed)
	fmt.Fprintf(w, "%12s  %8s  %10s  %10s\n", "sample_size", "power", "undefined", "mean_n_eff")
	for _, p := range curve.Points {
		fmt.Fprintf(w, "%12d  %8.4f  %10d  %10.2f\n", p.SampleSize, p.EmpiricalPower.Float(), p.UndefinedPValues, p.MeanEffectiveSample.Float())
	}
}
