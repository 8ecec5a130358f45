package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/hapsim/internal/automation"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	configFile  string
	preset      string
	physicsRate float64
	hapticRate  float64
	duration    float64
	integrator  string
	device      string
	maxForce    float64
	gravity     []float64
	verbose     bool
)

// main registers the commands and runs the root command. With no
// subcommand it opens the scenario picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "hapsim",
		Short:         "haptic rigid-body simulation bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPicker,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", "", "data directory (default from config)")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.Float64Var(&physicsRate, "physics-rate", config.DefaultPhysicsRate, "physics rate in Hz")
	pf.Float64Var(&hapticRate, "haptic-rate", config.DefaultHapticRate, "haptic rate in Hz")
	pf.Float64Var(&duration, "time", config.DefaultDuration, "duration for scenarios that set none")
	pf.StringVar(&integrator, "integrator", "rk4", "cursor integrator")
	pf.StringVar(&device, "device", "simulated", "haptic device")
	pf.Float64Var(&maxForce, "max-force", config.DefaultMaxForce, "device force limit in N")
	pf.Float64SliceVar(&gravity, "gravity", nil, "gravity vector x,y,z")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newSweepCmd(),
		newListCmd(),
		newPlotCmd(),
		newSpectrumCmd(),
		newExportCmd(),
		newPresetsCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// resolveConfig builds the configuration for a scenario: a preset or config
// file first, then any flag the user set.
func resolveConfig(cmd *cobra.Command, scene string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "" && configFile != "":
		return nil, fmt.Errorf("--preset and --config are exclusive")
	case preset != "":
		p := config.GetPreset(scene, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scene))
		}
		cfg = p.Clone()
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("physics-rate") {
		cfg.Physics.RateHz = physicsRate
	}
	if flags.Changed("haptic-rate") {
		cfg.Haptics.RateHz = hapticRate
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Haptics.Integrator = integrator
	}
	if flags.Changed("device") {
		cfg.Haptics.Device = device
	}
	if flags.Changed("max-force") {
		cfg.Haptics.MaxForce = maxForce
	}
	if flags.Changed("gravity") {
		cfg.Physics.Gravity = gravity
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadScenario reads a scenario file, or a builtin by name.
func loadScenario(arg string) (*automation.Scenario, error) {
	if ext := filepath.Ext(arg); ext == ".yaml" || ext == ".yml" {
		return automation.LoadScenario(arg)
	}
	sc, err := automation.Builtin(arg)
	if err != nil {
		return nil, fmt.Errorf("%w (builtins: %s)", err, strings.Join(automation.BuiltinNames(), ", "))
	}
	return sc, nil
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// tuiLogger writes to a file under the data directory, since the terminal
// belongs to the monitor.
func tuiLogger(dir string) (*log.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "hapsim.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }, nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [scenario]",
		Short: "play a scenario in the live monitor",
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
			logger, closeLog, err := tuiLogger(cfg.DataDir)
			if err != nil {
				return err
			}
			defer closeLog()

			b, player, err := launch(cfg, sc, logger)
			if err != nil {
				return err
			}
			defer b.Shutdown()

			title := sc.Name
			if preset != "" {
				title += "/" + preset
			}
			final, err := tea.NewProgram(viz.NewModel(b, player, title), tea.WithAltScreen()).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(viz.Model); ok && m.Err() != nil {
				return m.Err()
			}
			return nil
		},
	}
}

func launch(cfg *config.Config, sc *automation.Scenario, logger *log.Logger) (*bridge.Bridge, *automation.Player, error) {
	b, err := bridge.New(cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	p := automation.NewPlayer(b, sc, logger)
	if err := p.Setup(); err != nil {
		b.Shutdown()
		return nil, nil, err
	}
	return b, p, nil
}

func runPicker(cmd *cobra.Command, _ []string) error {
	if preset != "" {
		return fmt.Errorf("presets are per scenario: choose one in the menu or use watch")
	}
	base, err := resolveConfig(cmd, "")
	if err != nil {
		return err
	}
	logger, closeLog, err := tuiLogger(base.DataDir)
	if err != nil {
		return err
	}
	defer closeLog()

	pick := viz.NewPicker(func(scene, name string) (*bridge.Bridge, *automation.Player, error) {
		sc, err := automation.Builtin(scene)
		if err != nil {
			return nil, nil, err
		}
		cfg := base
		if name != "" {
			p := config.GetPreset(scene, name)
			if p == nil {
				return nil, nil, fmt.Errorf("unknown preset: %s", name)
			}
			cfg = p.Clone()
		}
		return launch(cfg, sc, logger)
	})
	final, err := tea.NewProgram(pick, tea.WithAltScreen()).Run()
	if p, ok := final.(viz.Picker); ok && p.Bridge() != nil {
		p.Bridge().Shutdown()
	}
	return err
}
