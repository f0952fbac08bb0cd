package studio

import "fmt"

// Result is the status code returned by every engine call.
type Result int

const (
	OK Result = iota
	ErrInvalidHandle
	ErrInvalidParam
	ErrFileNotFound
	ErrFileBad
	ErrEventNotFound
	ErrMemory
	ErrNotReady
	ErrAlreadyLoaded
	ErrInternal
	ErrUninitialized
	ErrInitialized
)

var resultNames = map[Result]string{
	OK:               "OK",
	ErrInvalidHandle: "ERR_INVALID_HANDLE",
	ErrInvalidParam:  "ERR_INVALID_PARAM",
	ErrFileNotFound:  "ERR_FILE_NOTFOUND",
	ErrFileBad:       "ERR_FILE_BAD",
	ErrEventNotFound: "ERR_EVENT_NOTFOUND",
	ErrMemory:        "ERR_MEMORY",
	ErrNotReady:      "ERR_NOTREADY",
	ErrAlreadyLoaded: "ERR_EVENT_ALREADY_LOADED",
	ErrInternal:      "ERR_INTERNAL",
	ErrUninitialized: "ERR_UNINITIALIZED",
	ErrInitialized:   "ERR_INITIALIZED",
}

// String returns the engine's name for the result.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RESULT(%d)", int(r))
}

// ParseResult looks up a result by its engine name.
func ParseResult(name string) (Result, bool) {
	for r, n := range resultNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}
