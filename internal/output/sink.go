// Package output renders user-facing messages and diagnostic logs.
package output

// Sink receives user-facing messages. The orchestrator and waiter report progress only
// through a Sink so they never write to the process streams directly.
type Sink interface {
	Info(format string, args ...any)
	FYI(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Success(format string, args ...any)
}

type nopSink struct{}

// Nop returns a Sink that discards everything.
func Nop() Sink { return nopSink{} }

func (nopSink) Info(string, ...any)    {}
func (nopSink) FYI(string, ...any)     {}
func (nopSink) Warn(string, ...any)    {}
func (nopSink) Error(string, ...any)   {}
func (nopSink) Success(string, ...any) {}
