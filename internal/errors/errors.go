package errors

import "sync"

var loadHandler = sync.OnceValues(NewErrorHandler)

// GetDefaultHandler returns the process-wide handler, creating it on first
// use.
func GetDefaultHandler() (*ErrorHandler, error) {
	return loadHandler()
}

// HandleError reports err through the default handler. Errors constructing
// the handler itself are swallowed; there is nowhere left to report them.
func HandleError(err error) {
	if handler, handlerErr := loadHandler(); handlerErr == nil {
		handler.Handle(err)
	}
}

// resetDefaultHandler discards the handler so tests can rebuild it against a
// fresh log directory.
func resetDefaultHandler() {
	loadHandler = sync.OnceValues(NewErrorHandler)
}
