package cmd

import (
	"clubctl/internal/app"
	"clubctl/internal/inbox"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDir      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Upload every ZIP archive dropped into the inbox folder",
	Annotations: session(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := state.Context()

		dir := cfg.InboxDir
		if watchDir != "" {
			dir = watchDir
		}

		w, err := inbox.NewWatcher(64)
		if err != nil {
			return err
		}
		if err := w.Watch(dir); err != nil {
			return err
		}
		defer w.Stop()

		recent := state.NewRecentPoller()
		recent.Start(ctx)

		filtered := inbox.Filter(w.Events(), cfg.IgnoreList)
		debounced := inbox.Debounce(filtered, clockwork.NewRealClock(), watchDebounce)
		events := inbox.NewChecksumFilter().Run(debounced)

		r := renderer()
		track := func(ctx context.Context, jobID string) model.JobView {
			return state.Follow(ctx, jobID, func(v model.JobView) { r.Job(v) })
		}

		state.Notifier.Notify(app.LevelInfo, fmt.Sprintf("watching %s for ZIP archives", dir))

		err = inbox.NewDispatcher(state.NewSubmitter(recent), recent, track, state.Notifier).Run(ctx, events)
		dumpActivity()

		if errors.Is(err, context.Canceled) {
			logger.Log.Info("inbox watcher stopped",
				zap.Error(context.Cause(ctx)))
			return state.Err()
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "inbox directory (default from config)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a new archive is submitted")
	rootCmd.AddCommand(watchCmd)
}
