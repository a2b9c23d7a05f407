package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/scribe/cmd/scribe/internal/format"
	v "github.com/vulntor/scribe/pkg/version"
)

func newVersionCommand(cliExecutable string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := v.GetVersion()
			out := cmd.OutOrStdout()

			if short {
				_, err := fmt.Fprintln(out, info.Version)
				return err
			}
			if f := format.FromCommand(cmd); f.IsStructured() {
				return f.PrintData(info)
			}

			fmt.Fprintf(out, "%s version: %s\n", cliExecutable, info.Version)
			if info.Tag != "" {
				fmt.Fprintf(out, "Tag: %s\n", info.Tag)
				if !info.Release {
					fmt.Fprintln(out, "Prerelease build")
				}
			}
			if info.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			}
			fmt.Fprintf(out, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "Compiler: %s\n", info.Compiler)
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
