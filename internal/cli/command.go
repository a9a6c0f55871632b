package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gimg/internal/batch"
	"gimg/internal/imgio"
	"gimg/internal/ops"
)

// buildCommand turns one operation spec into a cobra command. Flags come
// straight from the parameter schema; only flags the user actually set are
// forwarded, so schema defaults stay in one place.
func buildCommand(app *App, spec *ops.Spec) *cobra.Command {
	use := spec.Name + " <input>"
	if spec.RawSource {
		use = spec.Name + " <url-or-html-file>"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: spec.Summary,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := collectValues(cmd, spec)
			if err != nil {
				return err
			}
			if spec.RawSource {
				return runRawSource(cmd, app, spec, args[0], values)
			}
			return runImages(cmd, app, spec, args[0], values)
		},
	}

	for _, p := range spec.Params {
		registerFlag(cmd.Flags(), p)
	}
	cmd.Flags().StringP("output", "o", "", "output file or directory (default: alongside input)")
	if !spec.InspectOnly {
		cmd.Flags().Bool("overwrite", false, "allow overwriting the input file")
	}
	return cmd
}

func registerFlag(flags *pflag.FlagSet, p ops.ParamDef) {
	name := flagName(p.Name)
	switch p.Kind {
	case ops.KindInt:
		def := 0
		if v, ok := p.Default.(int); ok {
			def = v
		}
		flags.Int(name, def, p.Usage)
	case ops.KindFloat:
		def := 0.0
		if v, ok := p.Default.(float64); ok {
			def = v
		}
		flags.Float64(name, def, p.Usage)
	case ops.KindBool:
		def := false
		if v, ok := p.Default.(bool); ok {
			def = v
		}
		flags.Bool(name, def, p.Usage)
	default:
		def := ""
		if v, ok := p.Default.(string); ok {
			def = v
		}
		flags.String(name, def, p.Usage)
	}
}

func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

// collectValues picks up only the flags the user set on the command line.
func collectValues(cmd *cobra.Command, spec *ops.Spec) (ops.Values, error) {
	values := ops.Values{}
	var visitErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if visitErr != nil || f.Name == "output" || f.Name == "overwrite" {
			return
		}
		param := strings.ReplaceAll(f.Name, "-", "_")
		def, ok := spec.Param(param)
		if !ok {
			return
		}
		switch def.Kind {
		case ops.KindInt:
			v, err := cmd.Flags().GetInt(f.Name)
			if err != nil {
				visitErr = err
				return
			}
			values[param] = v
		case ops.KindFloat:
			v, err := cmd.Flags().GetFloat64(f.Name)
			if err != nil {
				visitErr = err
				return
			}
			values[param] = v
		case ops.KindBool:
			v, err := cmd.Flags().GetBool(f.Name)
			if err != nil {
				visitErr = err
				return
			}
			values[param] = v
		default:
			v, err := cmd.Flags().GetString(f.Name)
			if err != nil {
				visitErr = err
				return
			}
			values[param] = v
		}
	})
	return values, visitErr
}

// runImages is the shared flow for image operations: expand inputs, run the
// batch, report, and signal partial failure through the exit code.
func runImages(cmd *cobra.Command, app *App, spec *ops.Spec, inputArg string, values ops.Values) error {
	inputs, err := imgio.ResolveInputs(inputArg)
	if err != nil {
		return err
	}

	outputArg, _ := cmd.Flags().GetString("output")
	overwrite := false
	if cmd.Flags().Lookup("overwrite") != nil {
		overwrite, _ = cmd.Flags().GetBool("overwrite")
	}

	skipOutput := spec.InspectOnly ||
		(spec.Name == "metadata" && !values.Bool("strip"))

	multi := len(inputs) > 1
	opts := batch.Options{
		Operation:  spec.Name,
		OutputArg:  outputArg,
		Overwrite:  overwrite,
		MaxBytes:   app.Cfg.Limits.MaxFileBytes,
		Values:     values,
		SkipOutput: skipOutput,
	}
	if multi {
		opts.Progress = func(index, total int, item batch.Item) {
			switch {
			case item.Err != nil:
				fmt.Fprintf(app.Stderr, "[%d/%d] %s: %v\n", index, total, item.Input, item.Err)
			case item.Info != nil:
				fmt.Fprintf(app.Stdout, "[%d/%d] %s\n", index, total, item.Input)
				printInfo(app, item.Info)
			case item.OutputPath != "":
				fmt.Fprintf(app.Stdout, "[%d/%d] %s -> %s\n", index, total, item.Input, item.OutputPath)
			default:
				fmt.Fprintf(app.Stdout, "[%d/%d] %s\n", index, total, item.Input)
			}
		}
	}

	summary, err := app.Runner.Run(cmd.Context(), inputs, opts)
	if err != nil {
		return err
	}

	if !multi {
		item := summary.Items[0]
		if item.Err != nil {
			return item.Err
		}
		if item.Info != nil {
			printInfo(app, item.Info)
		}
		if item.Warning != "" {
			fmt.Fprintln(app.Stderr, "warning: "+item.Warning)
		}
		if item.OutputPath != "" {
			fmt.Fprintln(app.Stdout, "Saved: "+item.OutputPath)
		}
		return nil
	}

	fmt.Fprintf(app.Stdout, "%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	switch {
	case summary.Partial():
		return &ExitError{Code: 2, Msg: fmt.Sprintf("%d of %d files failed", summary.Failed, len(inputs))}
	case summary.Failed > 0:
		return &ExitError{Code: 1, Msg: "all files failed"}
	}
	return nil
}

// runRawSource handles html-to-img, whose input may be a URL instead of a
// local image file.
func runRawSource(cmd *cobra.Command, app *App, spec *ops.Spec, source string, values ops.Values) error {
	format := "png"
	if v, ok := values["format"].(string); ok && v != "" {
		format = v
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = ops.ScreenshotOutputName(source, format)
	}
	if err := imgio.EnsureParent(output); err != nil {
		return err
	}

	res, err := app.Registry.Run(cmd.Context(), spec.Name, &ops.Request{
		InputPath:  source,
		OutputPath: output,
		Values:     values,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Stdout, "Saved: "+res.OutputPath)
	return nil
}

// printInfo renders an inspection payload as aligned key: value lines in a
// stable order.
func printInfo(app *App, info map[string]any) {
	if len(info) == 0 {
		fmt.Fprintln(app.Stdout, "no metadata found")
		return
	}

	keys := make([]string, 0, len(info))
	width := 0
	for k := range info {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(app.Stdout, "%-*s  %v\n", width, k, info[k])
	}
}
