package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/docgen/template"
)

func newFunctionsCommand(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List template functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fns := a.engine.Functions()
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(fns)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION\tEXAMPLE")
			for _, fn := range fns {
				example := ""
				if len(fn.Examples) > 0 {
					example = fn.Examples[0]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", fn.Name, fn.Description, example)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "schema {options|validation}",
		Short:     "Print the JSON Schema of processing options or validation results",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"options", "validation"},
		// Schemas need no config or engine.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   []byte
				err error
			)
			switch args[0] {
			case "options":
				b, err = template.OptionsSchema()
			case "validation":
				b, err = template.ValidationResultSchema()
			default:
				return fmt.Errorf("unknown schema %q (want options or validation)", args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
