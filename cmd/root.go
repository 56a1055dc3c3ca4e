package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes of the process.
const (
	ExitOK           = 0
	ExitTableFailure = 1
	ExitPrecondition = 2
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	logger    = zap.NewNop()
)

var RootCmd = &cobra.Command{
	Use:   "db-transfer",
	Short: "Copy relational source tables into ClickHouse",
	Long: `
  ____  ____    _____ ____      _    _   _ ____  _____ _____ ____
 |  _ \| __ )  |_   _|  _ \    / \  | \ | / ___||  ___| ____|  _ \
 | | | |  _ \    | | | |_) |  / _ \ |  \| \___ \| |_  |  _| | |_) |
 | |_| | |_) |   | | |  _ <  / ___ \| |\  |___) |  _| | |___|  _ <
 |____/|____/    |_| |_| \_\/_/   \_\_| \_|____/|_|   |_____|_| \_\

DB TRANSFER 🦅 - SQL Server / MySQL / PostgreSQL / Oracle to ClickHouse
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: err}
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps a command error onto the process exit code. Errors that are
// not an *ExitError happened before any table was attempted.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitPrecondition
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-transfer.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	setDefaults(viper.GetViper())
}

// initConfig reads in the .env file, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: cannot read .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-transfer")
		viper.SetConfigType("yaml")
	}

	// DESTINATION_PASSWORD overrides destination.password
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file surfaces later as a validation error.
	_ = viper.ReadInConfig()
}

// loadConfig decodes the global viper state, failing with a pre-condition
// exit code.
func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		if path := viper.ConfigFileUsed(); path != "" {
			err = fmt.Errorf("%s: %w", path, err)
		}
		return nil, &ExitError{Code: ExitPrecondition, Err: err}
	}
	return cfg, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("invalid log format %q (console or json)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
