package policy

import (
	"context"
	"fmt"
	"sync"
)

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingLogger) add(level, component, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s [%s] %s", level, component, msg))
}

func (r *recordingLogger) has(level, component, msg string) bool {
	want := fmt.Sprintf("%s [%s] %s", level, component, msg)
	for _, e := range r.lines() {
		if e == want {
			return true
		}
	}
	return false
}

func (r *recordingLogger) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (r *recordingLogger) Debug(component, msg string, _ ...any) { r.add("DEBUG", component, msg) }
func (r *recordingLogger) Info(component, msg string, _ ...any)  { r.add("INFO", component, msg) }
func (r *recordingLogger) Warn(component, msg string, _ ...any)  { r.add("WARN", component, msg) }
func (r *recordingLogger) Error(component, msg string, _ ...any) { r.add("ERROR", component, msg) }

func (r *recordingLogger) Event(_ context.Context, event string, _ map[string]any) {
	r.add("EVENT", "", event)
}

func (r *recordingLogger) Close() error { return nil }
