package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/xdavidwu/openapi-conformance/internal/log"
)

var (
	// set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// errNonconforming is returned once the failures have been printed.
var errNonconforming = errors.New("examples do not conform")

type app struct {
	zapOpts *zap.Options
	log     logr.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logr.Discard()}
	goflags := flag.NewFlagSet("conformance", flag.ContinueOnError)
	a.zapOpts = log.BuildZapOptions(goflags, false)

	rootCmd := &cobra.Command{
		Use:           "conformance",
		Short:         "Validate JSON examples against OpenAPI component schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = log.New(a.zapOpts)
		},
	}
	rootCmd.PersistentFlags().AddGoFlagSet(goflags)

	rootCmd.AddCommand(a.checkCmd())
	rootCmd.AddCommand(a.resolveCmd())
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNonconforming) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
