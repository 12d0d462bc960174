package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/kernel"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	remoteURL     string
	username      string
	launchApps    []string
	inspectorPort string
	noInspector   bool
	debugKernel   bool
	remoteFS      bool
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot a kernel and serve the inspector until interrupted",
	Long: `Boots a kernel against the remote backend. With --user the password is
read from WEBDESK_PASSWORD and the user is logged in; --launch starts
applications once the desktop is open. The inspector API serves the kernel
until SIGINT or SIGTERM, which shut it down gracefully.`,
	RunE: runBoot,
}

func init() {
	f := bootCmd.Flags()
	f.StringVar(&remoteURL, "remote", "", "remote backend base URL")
	f.StringVar(&username, "user", "", "log in as this user after boot")
	f.StringSliceVar(&launchApps, "launch", nil, "applications to launch after login")
	f.StringVar(&inspectorPort, "inspector-port", "", "inspector listen port")
	f.BoolVar(&noInspector, "no-inspector", false, "do not serve the inspector API")
	f.BoolVar(&debugKernel, "debug", false, "kernel debug mode")
	f.BoolVar(&remoteFS, "remote-fs", false, "use the remote filesystem service")
}

func runBoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("remote") {
		cfg.Remote.BaseURL = remoteURL
	}
	if flags.Changed("inspector-port") {
		cfg.Inspector.Port = inspectorPort
	}
	if noInspector {
		cfg.Inspector.Enabled = false
	}
	if flags.Changed("debug") {
		cfg.Kernel.Debug = debugKernel
	}
	if flags.Changed("remote-fs") {
		cfg.Kernel.UseRemoteFilesystem = remoteFS
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	k, err := kernel.New(kernel.Options{
		Config: cfg,
		Logger: logger.Logger,
		Store:  store,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := k.Boot(ctx); err != nil {
		return err
	}
	if err := openDesktop(ctx, k, logger.Logger); err != nil {
		logger.Error("Desktop session failed", zap.Error(err))
	}

	var serveErr error
	if cfg.Inspector.Enabled {
		srv := server.New(k, cfg.Inspector, cfg.Logging.Development, logger.Component("inspector"))
		serveErr = srv.Run(ctx)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reason := "signal"
	if serveErr != nil {
		reason = "inspector failed"
	}
	return errors.Join(serveErr, k.Shutdown(shutdownCtx, reason))
}

// openDesktop logs in and launches the requested applications. A restored
// session is kept as is.
func openDesktop(ctx context.Context, k *kernel.Kernel, logger *zap.Logger) error {
	if username != "" && !k.Security().Authenticated() {
		if _, err := k.Login(ctx, username, os.Getenv("WEBDESK_PASSWORD")); err != nil {
			return err
		}
	}
	for _, appID := range launchApps {
		proc, err := k.LaunchApplication(ctx, appID, nil)
		if err != nil {
			logger.Warn("Launch failed", zap.String("app_id", appID), zap.Error(err))
			continue
		}
		logger.Info("Launched", zap.String("app_id", appID), zap.Int("pid", proc.PID))
	}
	return nil
}
