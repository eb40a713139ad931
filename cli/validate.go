package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/docgen/template"
)

type validateFlags struct {
	expect     []string
	all        bool
	jsonOutput bool
}

// validateReport is one template's result in --json output.
type validateReport struct {
	Template string `json:"template"`
	template.ValidationResult
}

func newValidateCommand(a *app) *cobra.Command {
	f := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate [flags] [template]...",
		Short: "Statically check templates",
		Long: `Check block structure and delimiters, list referenced variables, and warn
about unknown functions and expected variables the template never uses.
Expected variables come from the template's front matter "required" list
and --expect.`,
		Example: `  docgen validate letters/welcome.tmpl
  docgen validate -t templates --all --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args, f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.expect, "expect", "e", nil, "expected variable (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&f.all, "all", false, "validate every template in the include directory")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "output results as JSON")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, args []string, f *validateFlags) error {
	if f.all {
		if a.dir == nil {
			return fmt.Errorf("--all requires a template directory")
		}
		args = append(args, a.dir.Names()...)
	}
	if len(args) == 0 {
		return fmt.Errorf("no templates given")
	}

	reports := make([]validateReport, 0, len(args))
	invalid := 0
	for _, arg := range args {
		j, err := a.resolveTemplate(arg, cmd.InOrStdin())
		if err != nil {
			return err
		}
		expected := append(append([]string{}, j.doc.Required...), f.expect...)
		result := a.engine.Validate(j.doc.Body, expected)
		if !result.Valid {
			invalid++
		}
		reports = append(reports, validateReport{Template: j.name, ValidationResult: result})
	}

	out := cmd.OutOrStdout()
	if f.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		printReports(out, reports)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d templates failed validation", invalid, len(reports))
	}
	return nil
}

func printReports(w io.Writer, reports []validateReport) {
	for _, r := range reports {
		status := "ok"
		if !r.Valid {
			status = "invalid"
		}
		fmt.Fprintf(w, "%s: %s\n", r.Template, status)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		if len(r.Variables) > 0 {
			fmt.Fprintf(w, "  variables: %v\n", r.Variables)
		}
	}
}
