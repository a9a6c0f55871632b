// Package imgerr defines the error taxonomy shared by the validator, the
// output resolver, the operation processors, and both front ends.
package imgerr

import "fmt"

// NotFoundError reports a missing input path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// WrongTypeError reports an input path that exists but is not a regular file.
type WrongTypeError struct {
	Path string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("not a file: %s", e.Path)
}

// SizeLimitError reports an input larger than the configured ceiling.
type SizeLimitError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file too large: %.1fMB (max %dMB): %s",
		float64(e.Size)/1024/1024, e.Limit/1024/1024, e.Path)
}

// UnsupportedFormatError reports an input whose leading bytes match no known
// image signature.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported or unrecognized image format: %s", e.Path)
}

// ParameterRangeError reports a numeric parameter outside its valid domain.
type ParameterRangeError struct {
	Param string
	Min   float64
	Max   float64
	Value float64
}

func (e *ParameterRangeError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g, got %g", e.Param, e.Min, e.Max, e.Value)
}

// OverwriteError reports a synthesized output path that would clobber the
// input without explicit permission.
type OverwriteError struct {
	Path string
}

func (e *OverwriteError) Error() string {
	return fmt.Sprintf("output would overwrite input %s (pass --overwrite or name an output)", e.Path)
}

// CapabilityUnavailableError reports a missing optional dependency: a build
// without the relevant tag, or an external binary absent from the host.
type CapabilityUnavailableError struct {
	Capability string
	Reason     string
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("%s is unavailable: %s", e.Capability, e.Reason)
}

// ExternalToolError wraps a failure inside a wrapped library or external
// process (browser navigation, rembg inference, cascade load).
type ExternalToolError struct {
	Tool string
	Err  error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// ValidationError reports a missing or inconsistent parameter combination.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
