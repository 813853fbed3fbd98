package session

// Notifier receives user-facing messages from the controller. The host
// application owns presentation; the controller only reports. A nil notifier
// is replaced with NopNotifier.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// NopNotifier discards every message.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Warning(string) {}
func (NopNotifier) Error(string)   {}

// Logger receives swallowed internal failures (storage writes, editor
// hiccups). The stdlib *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
