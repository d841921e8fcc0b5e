package cmd

import (
	"clubctl/internal/app"
	"clubctl/internal/daemon"
	"clubctl/internal/db"
	"clubctl/internal/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local bulk job server for development and testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Init(cfg.DBPath); err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		manager := daemon.NewJobManager(cfg.ProcessDelay)

		resumed, err := manager.ResumeUnfinished()
		if err != nil {
			return err
		}

		srv, err := daemon.NewServer(manager, daemon.Options{
			Port:        cfg.ServerPort,
			Token:       cfg.ServerToken,
			Secret:      cfg.ServerSecret,
			UploadDir:   cfg.UploadDir,
			RecentLimit: cfg.RecentLimit,
		})
		if err != nil {
			return err
		}
		srv.Start()

		logger.Log.Info("clubctl server ready",
			zap.Int("port", cfg.ServerPort),
			zap.Int("resumed_jobs", resumed),
			zap.Bool("auth", cfg.ServerToken != "" || cfg.ServerSecret != ""))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("shutting down",
				zap.String("signal", sig.String()))
		case <-srv.StopCh():
			logger.Log.Info("stop requested via API")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	},
}

var stopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop a server started with 'clubctl serve'",
	Annotations: session(),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := state.Client.Shutdown(state.Context())
		if err != nil {
			return reportErr(err)
		}
		if app.ReportFailure(state.Notifier, res) {
			return failed()
		}

		fmt.Println("stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, stopCmd)
}
