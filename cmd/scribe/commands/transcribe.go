package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulntor/scribe/cmd/scribe/internal/format"
	"github.com/vulntor/scribe/pkg/transcribe"
)

func newTranscribeCommand() *cobra.Command {
	var (
		language string
		noWait   bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Upload an audio file and wait for its transcript",
		Long: `Upload an audio file to the transcription service, then check the job
status on a fixed cadence until it completes or fails.`,
		Example: `  scribe transcribe meeting.m4a
  scribe transcribe memo.mp3 --language en
  scribe transcribe interview.mp3 --language auto
  scribe transcribe call.wav --no-wait -o json`,
		GroupID: "transcribe",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := format.FromCommand(cmd)
			return report(f, runTranscribe(cmd, f, args[0], language, noWait))
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", transcribe.DefaultLanguage,
		"Language hint: "+strings.Join(transcribe.SupportedLanguages, ", ")+" or auto to let the service detect it")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Submit and print the job id without waiting")

	return cmd
}

func runTranscribe(cmd *cobra.Command, f format.Formatter, path, language string, noWait bool) error {
	if err := transcribe.ValidateLanguage(language); err != nil {
		return err
	}
	req, err := transcribe.NewRequestFromFile(path, transcribe.ParseLanguage(language))
	if err != nil {
		return err
	}

	ctrl, cfg, err := newController(cmd.Context())
	if err != nil {
		return err
	}
	if !noWait && !f.IsStructured() && !f.IsQuiet() {
		ctrl.Subscribe(newProgressPrinter(cmd.ErrOrStderr(), cfg.Poll.Interval, !noColor(cmd)))
	}
	defer ctrl.Reset()

	jobID, err := ctrl.Start(cmd.Context(), req)
	if err != nil {
		return err
	}
	if noWait {
		job := transcribe.Job{ID: jobID, Status: transcribe.JobPending}
		if f.IsStructured() {
			return f.PrintData(job)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), jobID)
		return err
	}

	return waitAndPrint(cmd.Context(), cmd, f, ctrl)
}

// waitAndPrint blocks until the controller's session ends and prints its result.
func waitAndPrint(ctx context.Context, cmd *cobra.Command, f format.Formatter, ctrl *transcribe.Controller) error {
	state, err := ctrl.Wait(ctx)
	if err != nil {
		return err
	}

	if f.IsStructured() {
		return f.PrintData(state)
	}
	if !f.IsQuiet() {
		if err := f.PrintTable([]string{"Field", "Value"}, [][]string{
			{"job", state.JobID},
			{"phase", string(state.Phase)},
		}); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), state.Transcript)
	return err
}

func noColor(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("no-color")
	return err == nil && v
}
