package studio

// DebugFlags classify an engine debug message.
type DebugFlags uint32

const (
	DebugError   DebugFlags = 1 << 0
	DebugWarning DebugFlags = 1 << 1
	DebugLog     DebugFlags = 1 << 2
	DebugMemory  DebugFlags = 1 << 8
	DebugFile    DebugFlags = 1 << 9
	DebugCodec   DebugFlags = 1 << 10
)

// Has reports whether all bits of f are set.
func (d DebugFlags) Has(f DebugFlags) bool {
	return d&f == f
}

// DebugFunc receives engine debug output. fn is the engine function that
// produced the message.
type DebugFunc func(flags DebugFlags, fn, message string)

// DebugSink is implemented by engines that can forward debug output.
type DebugSink interface {
	SetDebugFunc(fn DebugFunc)
}
