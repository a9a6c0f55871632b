// Package batch runs one operation over many inputs sequentially, isolating
// per-item failures so a bad file in the middle of a directory never stops
// the rest.
package batch

import (
	"context"
	"fmt"
	"log"

	"gimg/internal/imgio"
	"gimg/internal/ops"
)

// Item is the outcome for one input file, in submission order.
type Item struct {
	Input      string
	OutputPath string
	Info       map[string]any
	Warning    string
	Err        error
}

// Summary aggregates a finished run.
type Summary struct {
	Items     []Item
	Succeeded int
	Failed    int
}

// Partial reports whether some items failed while others succeeded.
func (s *Summary) Partial() bool {
	return s.Failed > 0 && s.Succeeded > 0
}

// Options control how each item is prepared before it reaches the registry.
type Options struct {
	Operation  string
	OutputArg  string // file path (single input only), directory, or empty
	Overwrite  bool
	MaxBytes   int64
	Values     ops.Values
	RawSource  bool // skip file validation: source may be a URL
	SkipOutput bool // inspection operations resolve no output path
	Progress   func(index, total int, item Item)
}

// Runner executes batches against one registry.
type Runner struct {
	registry *ops.Registry
	logger   *log.Logger
}

func NewRunner(registry *ops.Registry, logger *log.Logger) *Runner {
	return &Runner{registry: registry, logger: logger}
}

// Run processes inputs in order. Per-item errors are recorded on the item;
// only a nil registry spec is fatal.
func (r *Runner) Run(ctx context.Context, inputs []string, opts Options) (*Summary, error) {
	spec, ok := r.registry.Get(opts.Operation)
	if !ok {
		return nil, fmt.Errorf("unknown operation: %s", opts.Operation)
	}

	summary := &Summary{Items: make([]Item, 0, len(inputs))}
	total := len(inputs)

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := r.runOne(ctx, spec, input, opts)
		if item.Err != nil {
			summary.Failed++
			r.logger.Printf("%s failed for %s: %v", opts.Operation, input, item.Err)
		} else {
			summary.Succeeded++
		}
		summary.Items = append(summary.Items, item)

		if opts.Progress != nil {
			opts.Progress(i+1, total, item)
		}
	}
	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, spec *ops.Spec, input string, opts Options) Item {
	item := Item{Input: input}

	if !opts.RawSource {
		if err := imgio.Validate(input, opts.MaxBytes); err != nil {
			item.Err = err
			return item
		}
	}

	values := make(ops.Values, len(opts.Values))
	for k, v := range opts.Values {
		values[k] = v
	}

	if !opts.SkipOutput {
		// With several inputs an explicit output only makes sense as a
		// directory; ResolveOutput joins the synthesized name onto it.
		out, err := imgio.ResolveOutput(input, opts.OutputArg, spec.Suffix, spec.OutputExt(values), opts.Overwrite)
		if err != nil {
			item.Err = err
			return item
		}
		if err := imgio.EnsureParent(out); err != nil {
			item.Err = err
			return item
		}
		item.OutputPath = out
	}

	res, err := r.registry.Run(ctx, spec.Name, &ops.Request{
		InputPath:  input,
		OutputPath: item.OutputPath,
		Values:     values,
	})
	if err != nil {
		item.Err = err
		return item
	}

	item.OutputPath = res.OutputPath
	item.Info = res.Info
	item.Warning = res.Warning
	return item
}
