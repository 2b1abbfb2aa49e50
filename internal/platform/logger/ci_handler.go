package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// CIHandler is a slog.Handler that stamps every record with metadata
// about the CI run it was produced in.
type CIHandler struct {
	handler  slog.Handler
	metadata []slog.Attr
}

// NewCIHandler wraps a JSON handler writing to out.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	var handlerOpts slog.HandlerOptions
	if opts != nil {
		handlerOpts = *opts
	}

	return &CIHandler{
		handler:  slog.NewJSONHandler(out, &handlerOpts),
		metadata: ciMetadata(),
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{handler: h.handler.WithAttrs(attrs), metadata: h.metadata}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{handler: h.handler.WithGroup(name), metadata: h.metadata}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()
	enhanced.AddAttrs(h.metadata...)
	return h.handler.Handle(ctx, enhanced)
}

// ciMetadata collects identifying variables of the common CI providers.
func ciMetadata() []slog.Attr {
	keys := []struct{ env, attr string }{
		{"GITHUB_RUN_ID", "ci_run_id"},
		{"GITHUB_WORKFLOW", "ci_workflow"},
		{"GITHUB_SHA", "ci_commit"},
		{"CI_PIPELINE_ID", "ci_run_id"},
		{"CI_COMMIT_SHA", "ci_commit"},
	}

	attrs := []slog.Attr{slog.Bool("ci", true)}
	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k.attr] {
			continue
		}
		if v := os.Getenv(k.env); v != "" {
			attrs = append(attrs, slog.String(k.attr, v))
			seen[k.attr] = true
		}
	}
	return attrs
}
