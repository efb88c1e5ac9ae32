package logger

import (
	"sync"
)

// named holds component loggers registered by applications that want a
// specific backend or interceptor to log somewhere other than the global logger.
var named sync.Map

// Register stores a logger for a component name.
func Register(component string, l *Logger) {
	named.Store(component, l)
}

// Unregister removes a previously registered component logger.
func Unregister(component string) {
	named.Delete(component)
}

// Get returns the logger registered for component, falling back to the
// global logger tagged with the component name.
func Get(component string) *Logger {
	if l, ok := named.Load(component); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(component)
}
