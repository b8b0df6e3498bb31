package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ilramdhan/farmcalc/pkg/calculation"
	"github.com/ilramdhan/farmcalc/pkg/formula"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "formulactl",
		Short: "Check and evaluate farm calculator formulas offline",
		Long: `formulactl parses, validates and evaluates calculator formulas without a
running API. Calculation definitions can be loaded from YAML files using the
same shape the API stores.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("output", "o", "table", "Output format: table, json")

	root.AddCommand(
		newEvalCmd(),
		newPreviewCmd(),
		newCheckCmd(),
		newFunctionsCmd(),
		newRunCmd(),
	)
	return root
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}

// parseAssignments turns repeated name=value flags into a map
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEvalCmd() *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:     "eval <expression>",
		Short:   "Evaluate an expression",
		Example: `  formulactl eval "area * dose / 1000" --var area=12.5 --var dose=300`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignments(vars)
			if err != nil {
				return err
			}
			env := make(formula.Env, len(raw))
			for name, value := range raw {
				v, err := calculation.ParseNumber(value)
				if err != nil {
					return fmt.Errorf("variable %s: %w", name, err)
				}
				env[name] = v
			}

			value, err := formula.Evaluate(args[0], env)
			if err != nil {
				return fmt.Errorf("%s: %w", formula.Kind(err), err)
			}
			if outputFormat(cmd) == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"value": formula.FormatNumber(value)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formula.FormatNumber(value))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable binding name=value (repeatable)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:     "preview <expression>",
		Short:   "Render an expression with values substituted",
		Example: `  formulactl preview "(v2 - v1) * ctc / prnt" --var v2=70 --var v1=40`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(vars)
			if err != nil {
				return err
			}
			expr, err := formula.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", formula.Kind(err), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.Preview(values))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Substitution name=value (repeatable)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "check <expression>",
		Short: "Validate an expression and list the variables it reads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := formula.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", formula.Kind(err), err)
			}

			declared := make(map[string]bool, len(params))
			for _, p := range params {
				declared[p] = true
			}
			variables := expr.Variables()
			var undeclared []string
			if len(params) > 0 {
				for _, v := range variables {
					if !declared[v] {
						undeclared = append(undeclared, v)
					}
				}
			}

			out := cmd.OutOrStdout()
			if outputFormat(cmd) == "json" {
				return writeJSON(out, map[string]interface{}{
					"valid":      true,
					"variables":  variables,
					"undeclared": undeclared,
				})
			}
			fmt.Fprintln(out, "OK")
			if len(variables) > 0 {
				fmt.Fprintf(out, "Variables: %s\n", strings.Join(variables, ", "))
			}
			if len(undeclared) > 0 {
				fmt.Fprintf(out, "Undeclared: %s\n", strings.Join(undeclared, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&params, "param", nil, "Declared parameter names; others are reported as undeclared")
	return cmd
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List built-in functions and constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if outputFormat(cmd) == "json" {
				type fn struct {
					Name        string `json:"name"`
					Signature   string `json:"signature"`
					Description string `json:"description"`
				}
				var fns []fn
				for _, f := range formula.Functions() {
					fns = append(fns, fn{f.Name, f.Signature(), f.Description})
				}
				return writeJSON(out, map[string]interface{}{"functions": fns, "constants": formula.Constants()})
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Function", "Signature", "Description"})
			for _, f := range formula.Functions() {
				t.AppendRow(table.Row{f.Name, f.Signature(), f.Description})
			}
			t.Render()

			var constants []string
			for _, name := range formula.Constants() {
				v, _ := formula.Constant(name)
				constants = append(constants, name+" = "+formula.FormatNumber(v))
			}
			fmt.Fprintf(out, "Constants: %s\n", strings.Join(constants, ", "))
			return nil
		},
	}
}

// loadDefinition reads a calculation file. Both the stored shape and a
// document wrapping it under "definition" are accepted.
func loadDefinition(path string) (string, calculation.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", calculation.Definition{}, err
	}

	var doc struct {
		Name       string                  `yaml:"name"`
		Definition *calculation.Definition `yaml:"definition"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", calculation.Definition{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Definition != nil {
		return doc.Name, *doc.Definition, nil
	}

	var def calculation.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return "", calculation.Definition{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Name, def, nil
}

type runResult struct {
	Name    string `json:"name"`
	Unit    string `json:"unit,omitempty"`
	Value   string `json:"value,omitempty"`
	Preview string `json:"preview"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		file   string
		inputs []string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every result of a calculation file",
		Example: `  formulactl run -f calagem.yaml --input v1=40 --input ctc=8
  formulactl run -f calagem.yaml --input v1=40 --strict -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, def, err := loadDefinition(file)
			if err != nil {
				return err
			}
			values, err := parseAssignments(inputs)
			if err != nil {
				return err
			}

			def, renamed := calculation.MigrateNames(def)
			parser := formula.NewParser()
			report, err := calculation.Validate(def, parser)
			if err != nil {
				return err
			}
			env, err := calculation.BuildEnvironment(def.Parameters, values, calculation.EnvOptions{Strict: strict})
			if err != nil {
				return err
			}

			previews := calculation.PreviewAll(report.Results, calculation.RawValues(def.Parameters, values))
			outcomes := calculation.Evaluate(report.Results, env)
			rows := make([]runResult, len(outcomes))
			for i, o := range outcomes {
				rows[i] = runResult{Name: o.Name, Unit: o.Unit, Preview: previews[i].Text}
				if o.OK() {
					rows[i].Value = formula.FormatNumber(o.Value)
				} else {
					rows[i].Error = o.Err.Error()
					rows[i].Kind = formula.Kind(o.Err)
				}
			}

			out := cmd.OutOrStdout()
			if outputFormat(cmd) == "json" {
				return writeJSON(out, map[string]interface{}{"name": name, "results": rows})
			}

			if len(renamed) > 0 {
				olds := make([]string, 0, len(renamed))
				for old := range renamed {
					olds = append(olds, old)
				}
				sort.Strings(olds)
				for _, old := range olds {
					fmt.Fprintf(cmd.ErrOrStderr(), "note: parameter %q is read as %q\n", old, renamed[old])
				}
			}
			for _, v := range report.UndeclaredVariables {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not a declared parameter\n", v)
			}

			if name != "" {
				fmt.Fprintln(out, name)
			}
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Result", "Value", "Unit", "Formula"})
			for _, r := range rows {
				value := r.Value
				if r.Error != "" {
					value = "error: " + r.Kind
				}
				t.AppendRow(table.Row{r.Name, value, r.Unit, r.Preview})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Calculation definition (YAML or JSON)")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Parameter value name=value (repeatable)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject missing, non-numeric and out-of-option inputs")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
