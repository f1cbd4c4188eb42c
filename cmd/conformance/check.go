package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdavidwu/openapi-conformance/internal"
	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/metrics"
)

const okMessage = "Conformance OK: all examples validate against OpenAPI component schemas."

func (a *app) checkCmd() *cobra.Command {
	var (
		manifestPath string
		workers      int
		textfile     string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every example listed in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := conformance.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			runner := &conformance.Runner{
				Manifest: m,
				Workers:  workers,
				Log:      a.log.WithName("runner"),
			}
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if textfile != "" {
				if err := metrics.WriteTextfile(textfile, metrics.NewRegistry()); err != nil {
					a.log.Error(err, "cannot write metrics", "path", textfile)
				}
			}

			if !report.OK() {
				for _, line := range report.Lines() {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
				return errNonconforming
			}
			fmt.Fprintln(cmd.OutOrStdout(), okMessage)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", internal.DefaultManifest, "manifest mapping examples to schemas")
	cmd.Flags().IntVarP(&workers, "workers", "j", 1, "examples checked concurrently")
	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write metrics in the textfile collector format to this path")
	return cmd
}
