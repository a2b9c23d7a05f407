package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/scribe/cmd/scribe/internal/format"
	"github.com/vulntor/scribe/pkg/transcribe"
)

// statusView is the printed form of a single status check.
type statusView struct {
	JobID      string               `json:"jobId" yaml:"jobId"`
	Status     transcribe.JobStatus `json:"status" yaml:"status"`
	Transcript string               `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Error      string               `json:"error,omitempty" yaml:"error,omitempty"`
}

func newStatusCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Check a transcription job, optionally waiting for it to finish",
		Example: `  scribe status 4b7c1e
  scribe status 4b7c1e --wait -o yaml`,
		GroupID: "transcribe",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := format.FromCommand(cmd)
			if wait {
				return report(f, runWatch(cmd, f, args[0]))
			}
			return report(f, runStatus(cmd, f, args[0]))
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Keep checking until the job completes or fails")

	return cmd
}

func runStatus(cmd *cobra.Command, f format.Formatter, jobID string) error {
	client, _, err := clientFromContext(cmd.Context())
	if err != nil {
		return err
	}

	result, err := client.CheckStatus(cmd.Context(), jobID)
	if err != nil {
		return err
	}

	view := statusView{JobID: jobID, Status: result.Status, Transcript: result.Transcript, Error: result.Reason}
	if f.IsStructured() {
		if err := f.PrintData(view); err != nil {
			return err
		}
	} else {
		rows := [][]string{{"job", jobID}, {"status", string(result.Status)}}
		if result.Reason != "" {
			rows = append(rows, []string{"error", result.Reason})
		}
		if err := f.PrintTable([]string{"Field", "Value"}, rows); err != nil {
			return err
		}
		switch result.Status {
		case transcribe.JobCompleted:
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", result.Transcript); err != nil {
				return err
			}
		case transcribe.JobInProgress:
			if err := f.PrintSummary(fmt.Sprintf("\nStill running. Use 'scribe status %s --wait' to follow it.", jobID)); err != nil {
				return err
			}
		}
	}
	return result.Err()
}

func runWatch(cmd *cobra.Command, f format.Formatter, jobID string) error {
	ctrl, cfg, err := newController(cmd.Context())
	if err != nil {
		return err
	}
	if !f.IsStructured() && !f.IsQuiet() {
		ctrl.Subscribe(newProgressPrinter(cmd.ErrOrStderr(), cfg.Poll.Interval, !noColor(cmd)))
	}
	defer ctrl.Reset()

	if err := ctrl.Watch(jobID); err != nil {
		return err
	}
	return waitAndPrint(cmd.Context(), cmd, f, ctrl)
}
