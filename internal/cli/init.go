package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/ui"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Service        string // Pre-specified service name
	Backend        string // Pre-specified bus backend
	RedisAddr      string // Pre-specified Redis address
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
	Dir            string // Directory to write into (default ".")
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .portctl.yaml config in the current directory",
	Long: `Create a .portctl.yaml config. By default you are asked for the service
name, bus backend and serial parameters.

Examples:
  portctl init
  portctl init --non-interactive --service gps --bus-backend redis --redis localhost:6379`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(initOpts)
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initOpts.Service, "service", "", "service name")
	f.StringVar(&initOpts.Backend, "bus-backend", "", "bus backend: memory or redis")
	f.StringVar(&initOpts.RedisAddr, "redis", "", "Redis address")
	f.BoolVar(&initOpts.Overwrite, "force", false, "overwrite an existing config")
	f.BoolVar(&initOpts.NonInteractive, "non-interactive", false, "skip prompts and use flags or defaults")
	rootCmd.AddCommand(initCmd)
}

// Init writes a new .portctl.yaml.
func Init(opts InitOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := initialConfig(opts)
	if !opts.NonInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("%s Wrote %s\n", ui.SymbolSuccess, configPath)
	return nil
}

// initialConfig seeds the config from defaults and flags.
func initialConfig(opts InitOptions) *config.Config {
	cfg := config.DefaultConfig()
	if opts.Service != "" {
		cfg.Service = opts.Service
	}
	if opts.Backend != "" {
		cfg.Bus.Backend = opts.Backend
	}
	if opts.RedisAddr != "" {
		cfg.Bus.Redis.Addr = opts.RedisAddr
		if opts.Backend == "" {
			cfg.Bus.Backend = config.BackendRedis
		}
	}
	return cfg
}

func promptConfig(cfg *config.Config) error {
	rate := strconv.Itoa(cfg.Serial.Rate)
	dataBits := strconv.Itoa(cfg.Serial.DataBits)
	stopBits := strconv.FormatFloat(cfg.Serial.StopBits, 'f', -1, 64)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service name").
				Description("The serial service the widget binds to").
				Placeholder("serial").
				Value(&cfg.Service).
				Validate(validateServiceName),
			huh.NewSelect[string]().
				Title("Bus backend").
				Options(
					huh.NewOption("memory (single process)", config.BackendMemory),
					huh.NewOption("redis", config.BackendRedis),
				).
				Value(&cfg.Bus.Backend),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Placeholder("localhost:6379").
				Value(&cfg.Bus.Redis.Addr),
		).WithHideFunc(func() bool { return cfg.Bus.Backend != config.BackendRedis }),
		huh.NewGroup(
			huh.NewInput().
				Title("Baud rate").
				Value(&rate).
				Validate(validatePositiveInt),
			huh.NewSelect[string]().
				Title("Data bits").
				Options(huh.NewOptions("8", "7", "6", "5")...).
				Value(&dataBits),
			huh.NewSelect[string]().
				Title("Stop bits").
				Options(huh.NewOptions("1", "1.5", "2")...).
				Value(&stopBits),
			huh.NewSelect[string]().
				Title("Parity").
				Options(huh.NewOptions("none", "odd", "even", "mark", "space")...).
				Value(&cfg.Serial.Parity),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}

	cfg.Service = strings.TrimSpace(cfg.Service)
	cfg.Serial.Rate, _ = strconv.Atoi(strings.TrimSpace(rate))
	cfg.Serial.DataBits, _ = strconv.Atoi(dataBits)
	cfg.Serial.StopBits, _ = strconv.ParseFloat(stopBits, 64)
	return nil
}

func validateServiceName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("service name is required")
	}
	if strings.ContainsAny(s, " \t\n:") {
		return fmt.Errorf("service name cannot contain whitespace or ':'")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}
