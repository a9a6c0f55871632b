// Package cli builds the cobra command tree from the operation registry, so
// the flag surface always matches the parameter schemas.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"gimg/internal/batch"
	"gimg/internal/config"
	"gimg/internal/ops"
)

// App bundles everything the commands need.
type App struct {
	Registry *ops.Registry
	Runner   *batch.Runner
	Cfg      config.Config
	Logger   *log.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// ExitError carries a process exit code through cobra's error path.
// Code 2 means some files in a batch failed while others succeeded.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// Execute runs the CLI and returns the process exit code: 0 on success,
// 1 on fatal errors, 2 on partial batch failure.
func Execute(ctx context.Context, app *App) int {
	root := NewRootCommand(app)
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Msg != "" {
				fmt.Fprintln(app.Stderr, exitErr.Msg)
			}
			return exitErr.Code
		}
		return 1
	}
	return 0
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "gimg",
		Short:         "gimg - local image editing toolkit",
		Long:          "gimg edits images locally: compress, resize, crop, convert, watermark, and more. Nothing ever leaves the machine.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	for _, name := range app.Registry.Names() {
		spec, _ := app.Registry.Get(name)
		root.AddCommand(buildCommand(app, spec))
	}
	return root
}
