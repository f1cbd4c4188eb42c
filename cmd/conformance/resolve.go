package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
)

func (a *app) resolveCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "resolve <document> <schema>",
		Short: "Print a component schema with every reference expanded",
		Long: `Print a component schema with every reference expanded.

With --manifest, <document> is a key of the manifest's documents, otherwise
it is a path.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := args[0]
			var opts []document.Option
			if manifestPath != "" {
				m, err := conformance.LoadManifest(manifestPath)
				if err != nil {
					return err
				}
				if _, ok := m.Documents[location]; !ok {
					return fmt.Errorf("document %q not in manifest", location)
				}
				location = m.DocumentPath(location)
				opts = m.StoreOptions()
			}
			opts = append(opts, document.WithLogger(a.log.WithName("store")))

			session := deref.NewSession(document.NewStore(document.FileReader{}, opts...), a.log.WithName("deref"))
			resolved, err := session.ResolveNamedSchema(location, args[1])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(resolved, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "resolve <document> through this manifest")
	return cmd
}
