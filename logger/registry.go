package logger

import (
	"slices"
	"sync"
)

// named holds loggers registered for a component name. Components that
// were never registered fall back to the global logger.
var named sync.Map // map[string]*Logger

// Register stores l under name, replacing any earlier registration.
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Unregister removes the logger stored under name.
func Unregister(name string) {
	named.Delete(name)
}

// Get returns the logger registered under name. Unregistered names get the
// current global logger tagged with component=name, so a later
// SetGlobalLogger is picked up.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers a component logger derived from the global
// logger for each name. Call it after Init or SetGlobalLogger.
func RegisterDefaults(names ...string) {
	base := GetGlobalLogger()
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}

// Names returns the registered names in sorted order.
func Names() []string {
	var names []string
	named.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}
