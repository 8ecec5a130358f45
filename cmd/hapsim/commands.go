package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hapsim/internal/analysis"
	"github.com/san-kum/hapsim/internal/automation"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/metrics"
	"github.com/san-kum/hapsim/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func newRunCmd() *cobra.Command {
	var (
		sampleEvery int
		noSave      bool
		exportPath  string
		realtime    bool
	)
	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store its trace",
		Long:  "Run a builtin scenario by name, or a scenario file (.yaml), in simulated time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd, sc.Name)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if realtime {
				return runRealtime(ctx, cfg, sc)
			}
			return runSimulated(ctx, cfg, sc, sampleEvery, noSave, exportPath)
		},
	}
	cmd.Flags().IntVar(&sampleEvery, "sample-every", 1, "physics steps between trace samples")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().StringVar(&exportPath, "export-json", "", "also write the run to this JSON file")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace both loops on the wall clock and report jitter")
	return cmd
}

func runSimulated(ctx context.Context, cfg *config.Config, sc *automation.Scenario, sampleEvery int, noSave bool, exportPath string) error {
	logger := newLogger()
	b, err := bridge.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer b.Shutdown()

	ms := []metrics.Metric{
		metrics.NewEnergy(b.Physics()),
		metrics.NewEnergyDrift(b.Physics()),
		metrics.NewStability(1e3),
		metrics.NewForceEffort(),
	}

	fmt.Printf("running %s...\n", sc.Name)
	start := time.Now()
	res, err := automation.Run(ctx, b, sc, automation.Options{
		SampleEvery: sampleEvery,
		Logger:      logger,
		OnSample:    func(s bridge.Snapshot) { metrics.Observe(ms, s) },
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Scenario:    sc.Name,
		Preset:      preset,
		PhysicsRate: cfg.Physics.RateHz,
		HapticRate:  cfg.Haptics.RateHz,
		Duration:    res.Duration,
		Steps:       res.Steps,
		Integrator:  cfg.Haptics.Integrator,
		Device:      cfg.Haptics.Device,
		Rejected:    res.Rejected,
		Metrics:     metrics.Values(ms),
	}
	if !noSave {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(meta, res.Samples)
		if err != nil {
			return err
		}
		meta.ID = id
	}
	if exportPath != "" {
		if err := storage.ExportJSONFile(exportPath, meta, res.Samples); err != nil {
			return err
		}
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(sc.Name)) + "\n")
	if meta.ID != "" {
		s.WriteString(row("run id", meta.ID))
	}
	s.WriteString(row("completed in", elapsed.Round(time.Millisecond).String()))
	s.WriteString(row("steps", fmt.Sprintf("%d (%.2fs)", res.Steps, res.Duration)))
	s.WriteString(row("rejected", fmt.Sprintf("%d", res.Rejected)))
	for _, m := range ms {
		s.WriteString(row(m.Name(), fmt.Sprintf("%.6f", m.Value())))
	}
	if sc.Track != "" && len(res.Samples) > 0 {
		if o, ok := res.Samples[len(res.Samples)-1].Find(sc.Track); ok {
			p := o.Position
			s.WriteString(row(sc.Track, fmt.Sprintf("%.3f %.3f %.3f", p.X(), p.Y(), p.Z())))
		}
	}
	fmt.Println(boxStyle.Render(strings.TrimRight(s.String(), "\n")))
	return nil
}

// runRealtime builds the scene and lets both loops run paced for the
// scenario duration. Timed events need simulated time and are not played.
func runRealtime(ctx context.Context, cfg *config.Config, sc *automation.Scenario) error {
	logger := newLogger()
	b, err := bridge.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer b.Shutdown()

	p := automation.NewPlayer(b, sc, logger)
	if err := p.Setup(); err != nil {
		return err
	}
	if len(sc.Events) > 0 {
		fmt.Printf("skipping %d timed events in real time\n", len(sc.Events))
	}

	pj, hj := metrics.NewJitter("physics"), metrics.NewJitter("haptics")
	b.Physics().Loop().SetObserver(pj)
	b.Haptics().Loop().SetObserver(hj)

	wall := time.Duration(p.Duration() * float64(time.Second))
	fmt.Printf("running %s in real time for %v...\n", sc.Name, wall)
	ctx, cancel := context.WithTimeout(ctx, wall)
	defer cancel()
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(sc.Name)+" (REAL TIME)") + "\n")
	s.WriteString(row("simulated", fmt.Sprintf("%.3fs", b.Time())))
	for _, j := range []*metrics.Jitter{pj, hj} {
		st := j.Stats()
		s.WriteString(row(j.Name()+" ticks", fmt.Sprintf("%d", st.Ticks)))
		s.WriteString(row(j.Name()+" overruns", fmt.Sprintf("%d (%.2f%%)", st.Overruns, 100*j.Value())))
		s.WriteString(row(j.Name()+" mean/worst", fmt.Sprintf("%v / %v", st.Mean, st.Worst)))
	}
	fmt.Println(boxStyle.Render(strings.TrimRight(s.String(), "\n")))
	return nil
}

func newSweepCmd() *cobra.Command {
	var sw automation.Sweep
	cmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "rerun a scenario across values of one parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd, sc.Name)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			results, err := automation.RunSweep(ctx, cfg, sc, sw, newLogger())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tFINAL %s\tMIN E\tMAX E\tPEAK F\tREJECTED\n", strings.ToUpper(sw.Param), strings.ToUpper(sc.Track))
			for _, r := range results {
				fmt.Fprintf(w, "%.4f\t%.3f %.3f %.3f\t%.4f\t%.4f\t%.4f\t%d\n",
					r.Value, r.Final.X(), r.Final.Y(), r.Final.Z(), r.MinEnergy, r.MaxEnergy, r.PeakForce, r.Rejected)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sw.Param, "param", "physics.bounce", "parameter to sweep: "+strings.Join(automation.SweepParams(), ", "))
	cmd.Flags().Float64Var(&sw.Min, "min", 0, "first value")
	cmd.Flags().Float64Var(&sw.Max, "max", 1, "last value")
	cmd.Flags().IntVar(&sw.Count, "count", 5, "number of values")
	return cmd
}

func store(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := resolveConfig(cmd, "")
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs and builtin scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(titleStyle.Render("SCENARIOS"))
			for _, name := range automation.BuiltinNames() {
				sc, err := automation.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Printf("  %-10s %s\n", name, sc.Description)
			}
			fmt.Println()

			st, err := store(cmd)
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("RUNS"))
			if len(runs) == 0 {
				fmt.Println("  no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tDURATION\tRATES\tINTEG\tREJECTED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.0f/%.0fHz\t%s\t%d\n",
					run.ID,
					run.Scenario,
					run.Preset,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.PhysicsRate,
					run.HapticRate,
					run.Integrator,
					run.Rejected,
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one trace column of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store(cmd)
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tr, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			if len(tr.Rows) == 0 {
				return fmt.Errorf("no data to plot")
			}
			values, ok := tr.Column(column)
			if !ok {
				return fmt.Errorf("no column %q (have %s)", column, strings.Join(tr.Columns, ", "))
			}
			values = analysis.Finite(values)
			if len(values) == 0 {
				return fmt.Errorf("column %q has no finite values", column)
			}

			fmt.Println(titleStyle.Render(meta.ID))
			fmt.Print(row("scenario", meta.Scenario))
			fmt.Println(asciigraph.Plot(values,
				asciigraph.Height(15),
				asciigraph.Width(70),
				asciigraph.Caption(column),
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "force.z", "trace column to plot")
	return cmd
}

func newSpectrumCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "frequency analysis of one trace column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store(cmd)
			if err != nil {
				return err
			}
			tr, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			if len(tr.Times) < 2 {
				return fmt.Errorf("no data to analyze")
			}
			values, ok := tr.Column(column)
			if !ok {
				return fmt.Errorf("no column %q (have %s)", column, strings.Join(tr.Columns, ", "))
			}
			values = analysis.Finite(values)
			dt := tr.Times[1] - tr.Times[0]
			f, err := analysis.DominantFrequency(values, dt)
			if err != nil {
				return err
			}

			fmt.Println(titleStyle.Render(args[0]))
			fmt.Print(row("column", column))
			fmt.Print(row("samples", fmt.Sprintf("%d every %.4fs", len(values), dt)))
			fmt.Print(row("dominant", fmt.Sprintf("%.4f Hz", f)))
			if f > 0 {
				fmt.Print(row("period", fmt.Sprintf("%.4f s", 1/f)))
			}
			if ps := analysis.PowerSpectrum(values); len(ps) > 1 {
				fmt.Println(asciigraph.Plot(ps[1:],
					asciigraph.Height(10),
					asciigraph.Width(70),
					asciigraph.Caption(fmt.Sprintf("|X(f)|, %.4f Hz per bin", 1/(float64(len(values))*dt))),
				))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "force.z", "trace column to analyze")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out, svg, object, plane string
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print the metadata of a run, or draw a trajectory as svg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store(cmd)
			if err != nil {
				return err
			}
			if svg != "" {
				tr, err := st.LoadTrace(args[0])
				if err != nil {
					return err
				}
				f, err := os.Create(svg)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := storage.TrajectorySVG(f, tr, object, plane, 800, 600, "#00ffcc"); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", svg)
				return nil
			}

			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return storage.ExportJSON(w, *meta, nil)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&svg, "svg", "", "draw the trajectory of --object to this svg file")
	cmd.Flags().StringVar(&object, "object", "cursor", "object whose trajectory to draw")
	cmd.Flags().StringVar(&plane, "plane", "xz", "projection plane: xz, xy or yz")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "show or write the effective configuration",
	}
	show := &cobra.Command{
		Use:   "show [scenario]",
		Short: "print the configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene := ""
			if len(args) > 0 {
				scene = args[0]
			}
			cfg, err := resolveConfig(cmd, scene)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	save := &cobra.Command{
		Use:   "save [path]",
		Short: "write the configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, scenarioFlag(cmd))
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	save.Flags().String("scenario", "", "scenario whose preset to save")
	cmd.AddCommand(show, save)
	return cmd
}

func scenarioFlag(cmd *cobra.Command) string {
	s, _ := cmd.Flags().GetString("scenario")
	return s
}
