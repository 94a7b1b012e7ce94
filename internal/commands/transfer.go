package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subify/internal/transfer"
)

func newExportCommand(opts *options) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data as a JSON backup or CSV table",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			w := e.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			state := e.store.Snapshot()
			switch transfer.Format(format) {
			case transfer.FormatJSON:
				return transfer.ExportJSON(w, state, e.now())
			case transfer.FormatCSV:
				return transfer.ExportCSV(w, state.Subscriptions)
			default:
				return fmt.Errorf("unknown format %q: use json or csv", format)
			}
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(transfer.FormatJSON), "json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	return cmd
}

func newImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup (replaces data) or CSV table (appends)",
		Long:  "Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			res, err := transfer.Import(data, e.store.Today(), uuid.NewString)
			if err != nil {
				return err
			}
			if err := res.Apply(cmd.Context(), e.store); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Imported %d subscription(s) from %s\n", res.Count(), res.Format)
			return nil
		}),
	}
}
