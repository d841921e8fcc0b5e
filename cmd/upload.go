package cmd

import (
	"clubctl/internal/app"
	"clubctl/internal/model"
	"fmt"

	"github.com/spf13/cobra"
)

var uploadFollow bool

var uploadCmd = &cobra.Command{
	Use:         "upload [zip]",
	Short:       "Submit a ZIP of account statements for bulk processing",
	Args:        cobra.ExactArgs(1),
	Annotations: session(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := state.Context()

		recent := state.NewRecentPoller()
		recent.Start(ctx)

		select {
		case <-recent.Ready():
		case <-ctx.Done():
			return state.Err()
		}

		res, err := state.NewSubmitter(recent).Submit(ctx, args[0])
		if err != nil {
			return reportErr(err)
		}
		if app.ReportFailure(state.Notifier, res) {
			return failed()
		}

		jobID := res.Data.JobID
		state.Notifier.Notify(app.LevelSuccess, fmt.Sprintf("upload accepted as job %s", jobID))

		if !uploadFollow {
			fmt.Println(jobID)
			return nil
		}

		r := renderer()
		view := state.Follow(ctx, jobID, func(v model.JobView) { r.Job(v) })
		dumpActivity()

		if view.IsFailed {
			return fmt.Errorf("job %s failed", jobID)
		}
		return state.Err()
	},
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadFollow, "follow", "f", false, "poll the job until it finishes")
	rootCmd.AddCommand(uploadCmd)
}
