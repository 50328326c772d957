package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes sampled when a record is handled.
type ContextProvider func() []slog.Attr

// FrameProvider reports the current render frame as a "frame" attribute.
// Frame zero means no frame has been rendered yet and adds nothing.
func FrameProvider(frame func() uint64) ContextProvider {
	return func() []slog.Attr {
		n := frame()
		if n == 0 {
			return nil
		}
		return []slog.Attr{slog.Uint64("frame", n)}
	}
}

type actorKey struct{}

// WithActor tags ctx with the actor a record is about. Records logged with
// the returned context carry an "actorId" attribute.
func WithActor(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the actor set by WithActor.
func ActorFrom(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(actorKey{}).(int)
	return id, ok
}

// ContextHandler adds the sampled frame attributes and the context's actor to
// every record before passing it on.
type ContextHandler struct {
	next   slog.Handler
	sample ContextProvider
}

// NewContextHandler wraps next. A nil sample adds only the context's actor.
func NewContextHandler(next slog.Handler, sample ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, sample: sample}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.sample != nil {
		r.AddAttrs(h.sample()...)
	}
	if ctx != nil {
		if id, ok := ActorFrom(ctx); ok {
			r.AddAttrs(slog.Int("actorId", id))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs), sample: h.sample}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{next: h.next.WithGroup(name), sample: h.sample}
}
