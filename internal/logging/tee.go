package logging

import (
	"context"
	"log/slog"
)

// teeHandler duplicates records to the console handler and the journal
// handler. Records go to whichever side is enabled for their level; the
// journal write error is dropped because the console copy already went out.
type teeHandler struct {
	console slog.Handler
	journal slog.Handler
}

func newTeeHandler(console, journal slog.Handler) *teeHandler {
	return &teeHandler{console: console, journal: journal}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.journal.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if t.console.Enabled(ctx, r.Level) {
		err = t.console.Handle(ctx, r.Clone())
	}
	if t.journal.Enabled(ctx, r.Level) {
		_ = t.journal.Handle(ctx, r.Clone())
	}
	return err
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		console: t.console.WithAttrs(attrs),
		journal: t.journal.WithAttrs(attrs),
	}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		console: t.console.WithGroup(name),
		journal: t.journal.WithGroup(name),
	}
}
