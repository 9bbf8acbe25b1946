package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/runnerguard/runnerguard/internal/observability"
	"github.com/runnerguard/runnerguard/internal/version"
)

const SchemaVersion = "1.0"

// EventPrefix namespaces event names for log pipelines
const EventPrefix = "runnerguard."

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	opID     string // bound by WithOpID for the simple log methods
	clock    func() time.Time
	mu       sync.Mutex
}

func (j *jsonlLogger) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

type logEntry struct {
	Timestamp          string         `json:"ts"`
	Level              string         `json:"level"`
	Event              string         `json:"event,omitempty"`
	Component          string         `json:"component"`
	OpID               string         `json:"op_id"`
	SchemaVersion      string         `json:"schema_version"`
	RunnerguardVersion string         `json:"runnerguard_version,omitempty"`
	GoVersion          string         `json:"go_version,omitempty"`
	Message            string         `json:"msg,omitempty"`
	Fields             map[string]any `json:"fields,omitempty"`
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}

	entry := logEntry{
		Timestamp:          j.now().Format(time.RFC3339Nano),
		Level:              level,
		Component:          component,
		OpID:               j.opID,
		SchemaVersion:      SchemaVersion,
		RunnerguardVersion: version.BuildVersion(),
		GoVersion:          runtime.Version(),
		Message:            msg,
		Fields:             pairs(fields),
	}

	j.writeEntry(entry)
}

func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	entry := logEntry{
		Timestamp:          j.now().Format(time.RFC3339Nano),
		Level:              LevelInfo,
		Event:              EventPrefix + event,
		Component:          "cli",
		OpID:               observability.OpID(ctx),
		SchemaVersion:      SchemaVersion,
		RunnerguardVersion: version.BuildVersion(),
		GoVersion:          runtime.Version(),
		Fields:             fields,
	}
	if entry.OpID == "" {
		entry.OpID = j.opID
	}
	j.writeEntry(entry)
}

func (j *jsonlLogger) writeEntry(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.writer.Write(data); err != nil {
		return // best effort
	}
	_, _ = j.writer.Write([]byte("\n")) // best effort, ignore second write error if first succeeded or checked
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

// pairs turns key, value, key, value... into a map. Non-string keys are skipped.
func pairs(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	out := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out[key] = fields[i+1]
		}
	}
	return out
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
