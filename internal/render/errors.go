package render

import "fmt"

// ShaderIOError reports a shader source file that could not be read.
type ShaderIOError struct {
	Path string
	Err  error
}

func (e *ShaderIOError) Error() string {
	return fmt.Sprintf("unable to read shader file at %q: %v", e.Path, e.Err)
}

func (e *ShaderIOError) Unwrap() error { return e.Err }

// CompileError carries the driver diagnostic for a rejected shader stage.
type CompileError struct {
	Stage StageKind
	Path  string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("error compiling %s shader %q:\n%s", e.Stage, e.Path, e.Log)
}

// LinkError carries the driver diagnostic for a program that failed to link.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("error linking shader program:\n%s", e.Log)
}
