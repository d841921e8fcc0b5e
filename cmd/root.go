package cmd

import (
	"clubctl/internal/app"
	"clubctl/internal/config"
	"clubctl/internal/logger"
	"clubctl/internal/present"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// needsSession marks commands that talk to the bulk job API.
const needsSession = "session"

// errReported ends a command whose failure the notifier already showed.
var errReported = errors.New("failure already reported")

var (
	cfg     *config.Config
	state   *app.State
	debug   bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "clubctl",
	Short:         "Submit and track bulk account-statement uploads",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		if cmd.Annotations[needsSession] != "" {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			cobra.OnFinalize(stop)

			state, err = app.Open(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if state != nil {
		if closeErr := state.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	logger.Sync()

	if err != nil {
		if !errors.Is(err, app.ErrSessionExpired) && !errors.Is(err, errReported) {
			_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func renderer() *present.Renderer {
	color := !noColor && os.Getenv("NO_COLOR") == "" &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	return present.NewRenderer(os.Stdout, color)
}

// dumpActivity prints what happened during a long-running command.
func dumpActivity() {
	if state == nil || state.Activity.Len() == 0 {
		return
	}

	fmt.Println()
	fmt.Println("activity:")
	renderer().Activity(state.Activity.Entries())
}

// failed is returned after a failed result has been reported.
func failed() error {
	if err := state.Err(); err != nil {
		return err
	}

	return errReported
}

// reportErr shows err through the notifier before ending the command.
func reportErr(err error) error {
	if err := state.Err(); err != nil {
		return err
	}

	app.ReportError(state.Notifier, err)
	return errReported
}

func session() map[string]string {
	return map[string]string{needsSession: "true"}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}
