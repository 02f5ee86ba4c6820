package channels

import "context"

// Channel delivers job batches to a downstream audience surface
// (Telegram, Blogger, HTTP, SQS, etc).
type Channel interface {
	ID() string
	Type() string
	Publish(ctx context.Context, batch Batch) error
	// Notify delivers a free-form status message outside the batch flow.
	Notify(ctx context.Context, text string) error
}

// Logger defines the logging surface channels rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
