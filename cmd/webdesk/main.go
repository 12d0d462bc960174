package main

import (
	"fmt"
	"os"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// flags shared by every command
var (
	configPath string
	storageDir string
	logLevel   string
	devMode    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "webdesk",
	Short: "WebDesk desktop kernel host",
	Long: `webdesk boots a WebDesk kernel against a remote backend, serves the
inspector API for it, and offers maintenance commands for the local
persisted filesystem.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			out, _ := sonic.ConfigStd.MarshalIndent(map[string]string{
				"version":   Version,
				"commit":    Commit,
				"buildTime": BuildTime,
			}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "webdesk %s (commit %s, built %s)\n", Version, Commit, BuildTime)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "TOML configuration file")
	pf.StringVar(&storageDir, "storage-dir", "", "directory of the local persisted store (empty keeps it in memory)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&devMode, "dev", false, "development logging")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(fsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and config file, then applies the
// persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("storage-dir") {
		cfg.Storage.Dir = storageDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = devMode
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Logging.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	return logging.New(lc)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Dir == "" {
		return storage.NewMemory(), nil
	}
	store, err := storage.NewDir(cfg.Storage.Dir, storage.Options{Compress: cfg.Storage.Compress})
	if err != nil {
		return nil, err
	}
	return store, nil
}
