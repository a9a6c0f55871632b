// Package ops holds the operation dispatch table: one Spec per operation,
// each carrying the parameter schema, the default output suffix, and the
// processing entry point. The schema is the single source of truth for both
// the CLI and the HTTP adapter.
package ops

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/imgerr"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// ParamDef describes one named parameter: type, default, and valid domain.
type ParamDef struct {
	Name     string
	Kind     Kind
	Usage    string
	Required bool
	Default  any // nil means the parameter is simply absent when not given
	HasRange bool
	Min, Max float64
	Enum     []string
}

// Parse coerces a raw form/flag string into the parameter's typed value.
func (d ParamDef) Parse(raw string) (any, error) {
	switch d.Kind {
	case KindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be an integer, got %q", d.Name, raw)}
		}
		return v, nil
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be a number, got %q", d.Name, raw)}
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be a boolean, got %q", d.Name, raw)}
		}
		return v, nil
	default:
		return raw, nil
	}
}

// Values is the named-parameter set for one invocation.
type Values map[string]any

func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

func (v Values) Str(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int {
	switch n := v[name].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (v Values) Float(name string) float64 {
	switch n := v[name].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Request is one validated invocation: input, resolved output, parameters.
type Request struct {
	InputPath  string
	OutputPath string
	Values     Values
}

// Result is what a processor hands back: a written file for image
// operations, a structured payload for inspection-only ones.
type Result struct {
	OutputPath string
	Info       map[string]any
	Warning    string
}

// Env is the explicit processor environment: probed capabilities, loaded
// fonts, external-tool settings. Passed in at construction so tests can
// substitute fakes.
type Env struct {
	Caps   *capability.Set
	Fonts  *FontSet
	Cfg    config.CapabilityConfig
	Logger *log.Logger
}

type RunFunc func(ctx context.Context, env *Env, req *Request) (*Result, error)

// Spec is one dispatch-table entry.
type Spec struct {
	Name        string
	Summary     string
	Suffix      string              // default output suffix, e.g. "resized"
	OutExt      string              // forced output extension, e.g. ".png" for remove-bg
	OutExtFn    func(Values) string // parameter-dependent extension (convert)
	InspectOnly bool                // info / metadata view produce no output file
	RawSource   bool                // html-to-img takes a URL or HTML file, not an image
	Params      []ParamDef
	Run         RunFunc
}

// OutputExt resolves the forced output extension for one invocation. Empty
// means the input's extension is kept.
func (s *Spec) OutputExt(v Values) string {
	if s.OutExtFn != nil {
		return s.OutExtFn(v)
	}
	return s.OutExt
}

// Param looks up a parameter definition by name.
func (s *Spec) Param(name string) (ParamDef, bool) {
	for _, d := range s.Params {
		if d.Name == name {
			return d, true
		}
	}
	return ParamDef{}, false
}

// ValidateValues applies defaults and checks every supplied value against
// its schema: type, range, enumeration, requiredness. Range violations fail
// with ParameterRangeError before any pixel work happens.
func (s *Spec) ValidateValues(v Values) error {
	for _, d := range s.Params {
		raw, ok := v[d.Name]
		if !ok {
			if d.Required {
				return &imgerr.ValidationError{Msg: s.Name + " requires parameter " + d.Name}
			}
			if d.Default != nil {
				v[d.Name] = d.Default
			}
			continue
		}

		switch d.Kind {
		case KindInt:
			n, ok := raw.(int)
			if !ok {
				return &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be an integer", d.Name)}
			}
			if d.HasRange && (float64(n) < d.Min || float64(n) > d.Max) {
				return &imgerr.ParameterRangeError{Param: d.Name, Min: d.Min, Max: d.Max, Value: float64(n)}
			}
		case KindFloat:
			f, ok := raw.(float64)
			if !ok {
				if n, isInt := raw.(int); isInt {
					f = float64(n)
					v[d.Name] = f
				} else {
					return &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be a number", d.Name)}
				}
			}
			if d.HasRange && (f < d.Min || f > d.Max) {
				return &imgerr.ParameterRangeError{Param: d.Name, Min: d.Min, Max: d.Max, Value: f}
			}
		case KindBool:
			if _, ok := raw.(bool); !ok {
				return &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be a boolean", d.Name)}
			}
		case KindString:
			str, ok := raw.(string)
			if !ok {
				return &imgerr.ValidationError{Msg: fmt.Sprintf("%s must be a string", d.Name)}
			}
			if len(d.Enum) > 0 {
				found := false
				for _, e := range d.Enum {
					if str == e {
						found = true
						break
					}
				}
				if !found {
					return &imgerr.ValidationError{
						Msg: fmt.Sprintf("%s must be one of %v, got %q", d.Name, d.Enum, str),
					}
				}
			}
		}
	}
	return nil
}

// Registry is the fixed operation dispatch table.
type Registry struct {
	env   *Env
	specs map[string]*Spec
	order []string
}

// NewRegistry builds the table with all fourteen operations.
func NewRegistry(env *Env) *Registry {
	r := &Registry{env: env, specs: map[string]*Spec{}}
	for _, s := range []*Spec{
		compressSpec(), resizeSpec(), cropSpec(), rotateSpec(), convertSpec(),
		infoSpec(), metadataSpec(), watermarkSpec(), blurFaceSpec(),
		removeBGSpec(), upscaleSpec(), memeSpec(), editSpec(), screenshotSpec(),
	} {
		r.specs[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	return r
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns operation names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Env exposes the shared processor environment.
func (r *Registry) Env() *Env { return r.env }

// Run validates the request's parameters against the operation schema and
// then invokes the processor. Validation always runs first so out-of-range
// values never reach a library call.
func (r *Registry) Run(ctx context.Context, name string, req *Request) (*Result, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, &imgerr.ValidationError{Msg: "unknown operation: " + name}
	}
	if req.Values == nil {
		req.Values = Values{}
	}
	if err := spec.ValidateValues(req.Values); err != nil {
		return nil, err
	}
	return spec.Run(ctx, r.env, req)
}
