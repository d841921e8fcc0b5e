package cmd

import (
	"clubctl/internal/app"
	"clubctl/internal/model"
	"fmt"

	"github.com/spf13/cobra"
)

var jobFollow bool

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect a bulk upload job",
}

var jobStatusCmd = &cobra.Command{
	Use:         "status [id]",
	Short:       "Show the progress of a bulk upload job",
	Args:        cobra.ExactArgs(1),
	Annotations: session(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := state.Context()
		r := renderer()

		if jobFollow {
			view := state.Follow(ctx, args[0], func(v model.JobView) { r.Job(v) })
			dumpActivity()

			if view.IsFailed {
				return fmt.Errorf("job %s failed", args[0])
			}
			return state.Err()
		}

		res, err := state.Client.GetJob(ctx, args[0])
		if err != nil {
			return reportErr(err)
		}
		if app.ReportFailure(state.Notifier, res) {
			return failed()
		}

		r.Job(model.NewJobView(&res.Data))
		return nil
	},
}

var recentWatch bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List bulk upload jobs",
}

var jobsRecentCmd = &cobra.Command{
	Use:         "recent",
	Short:       "Show the most recent bulk upload jobs",
	Annotations: session(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := state.Context()
		r := renderer()

		if !recentWatch {
			res, err := state.Client.RecentJobs(ctx)
			if err != nil {
				return reportErr(err)
			}
			if app.ReportFailure(state.Notifier, res) {
				return failed()
			}

			r.Recent(res.Data)
			return nil
		}

		p := state.NewRecentPoller()
		p.Start(ctx)
		for jobs := range p.Updates() {
			fmt.Println()
			r.Recent(jobs)
		}

		dumpActivity()
		return state.Err()
	},
}

func init() {
	jobStatusCmd.Flags().BoolVarP(&jobFollow, "follow", "f", false, "poll the job until it finishes")
	jobsRecentCmd.Flags().BoolVarP(&recentWatch, "watch", "w", false, "keep refreshing the list")

	jobCmd.AddCommand(jobStatusCmd)
	jobsCmd.AddCommand(jobsRecentCmd)
	rootCmd.AddCommand(jobCmd, jobsCmd)
}
