package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/config"
	"github.com/lucasnoah/hirepipe/internal/logging"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	logLevel   string

	// cfg is the resolved configuration for the running command.
	cfg *config.Config
	// flushLog restores the previous zap globals after the command.
	flushLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "hirepipe",
	Short: "A recruiting pipeline board",
	Long: `hirepipe moves candidates through an ordered hiring pipeline, one at a time
or in bulk, with drag-and-drop semantics shared by the CLI and the HTTP API.

Configuration is read from ./hirepipe.yaml or ~/.hirepipe/config.yaml and can be
overridden with HIREPIPE_* environment variables. Local state (SQLite database,
bulk run reports, operator lock) lives in ~/.hirepipe/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flushLog()
	},
}

// setup loads configuration and installs the global logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	_, undo, err := logging.Setup(level)
	if err != nil {
		return err
	}
	flushLog = undo
	return nil
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// requireValid fails when the loaded configuration has validation errors.
func requireValid() error {
	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s (run `hirepipe config validate`)", errs[0])
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to hirepipe config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(appCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(serveCmd)
}
