package errors

import "errors"

var (
	ErrRecipeNotFound    = errors.New("recipe file not found")
	ErrRecipeParseFailed = errors.New("recipe parsing failed")
	ErrSourceFailed      = errors.New("source materialization failed")
	ErrBuildFailed       = errors.New("image build failed")
	ErrDeployFailed      = errors.New("container deploy failed")
	ErrRuntimeFailed     = errors.New("runtime operation failed")
	ErrProbeFailed       = errors.New("health probe failed")
	ErrNotifyFailed      = errors.New("notification failed")
	ErrConfigInvalid     = errors.New("configuration invalid")
	ErrFileSystemFailed  = errors.New("filesystem operation failed")
)

type DockhandError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *DockhandError) Error() string {
	return e.OriginalErr.Error()
}

func (e *DockhandError) Unwrap() error {
	return e.OriginalErr
}

func NewDockhandError(errorType error, context, cause, suggestion string, originalErr error) *DockhandError {
	return &DockhandError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewRecipeError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrRecipeNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrRecipeParseFailed, context, cause, suggestion, originalErr)
}

func NewSourceError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrSourceFailed, context, cause, suggestion, originalErr)
}

func NewBuildError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrBuildFailed, context, cause, suggestion, originalErr)
}

func NewDeployError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrDeployFailed, context, cause, suggestion, originalErr)
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrRuntimeFailed, context, cause, suggestion, originalErr)
}

func NewProbeError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrProbeFailed, context, cause, suggestion, originalErr)
}

func NewNotifyError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrNotifyFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
