package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
	"time"

	"github.com/runnerguard/runnerguard/internal/observability"
)

// MaxErrorLength caps error strings in receipts
const MaxErrorLength = 2048

// Session collects details for one command's receipt
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
	now     func() time.Time

	mu   sync.Mutex
	opts []Option
}

// Start opens a session and binds it to the returned context so the command body can Record details
func Start(ctx context.Context, command string, args []string) (context.Context, *Session) {
	s := &Session{ctx: ctx, start: time.Now(), command: command, args: args, now: time.Now}
	return context.WithValue(ctx, sessionKey{}, s), s
}

// Option fills receipt sections
type Option func(*Receipt)

// Record attaches options to the context's session. No-op without one.
func Record(ctx context.Context, opts ...Option) {
	s := sessionFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.opts = append(s.opts, opts...)
	s.mu.Unlock()
}

// WithManifest references the evaluated manifest file
func WithManifest(path string) Option {
	return func(r *Receipt) { r.Manifest = fileRef(path) }
}

// WithConfig references the policy configuration file
func WithConfig(path string) Option {
	return func(r *Receipt) { r.Config = fileRef(path) }
}

// WithEvaluation option
func WithEvaluation(e EvaluationSummary) Option {
	return func(r *Receipt) { r.Evaluation = &e }
}

// WithAutoFix option
func WithAutoFix(a AutoFixSummary) Option {
	return func(r *Receipt) { r.AutoFix = &a }
}

// WithStatus overrides the status derived from the error
func WithStatus(status string) Option {
	return func(r *Receipt) {
		if status != "" {
			r.Result.Status = status
		}
	}
}

// Finish writes the receipt. Recorded options apply before opts.
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	args, redacted := RedactArgs(s.args)
	r := Receipt{
		SchemaVersion: SchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.UTC().Format(time.RFC3339Nano),
		TsEnd:         s.now().UTC().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          args,
		ArgsRedacted:  redacted,
		Result:        Result{Status: "success"},
	}
	if err != nil {
		r.Result = Result{Status: "fail", Error: truncateError(err.Error())}
	}

	s.mu.Lock()
	recorded := append([]Option(nil), s.opts...)
	s.mu.Unlock()
	for _, opt := range append(recorded, opts...) {
		opt(&r)
	}

	return w.Write(r)
}

func fileRef(path string) *FileRef {
	if path == "" {
		return nil
	}
	ref := &FileRef{Path: path}
	if path != "-" {
		if sum, err := computeSHA256(path); err == nil {
			ref.SHA256 = sum
		}
	}
	return ref
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
