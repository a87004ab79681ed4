package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

// PrettyHandlerOptions wraps the standard slog.HandlerOptions so callers can
// still configure level/AddSource/ReplaceAttr the normal way.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler renders records as a single colorized line:
// "[HH:MM:SS.mmm] LEVEL: message {"attr":"value", ...}". It delegates
// Enabled/WithAttrs/WithGroups to an embedded text handler and only
// overrides Handle for the custom rendering.
type PrettyHandler struct {
	slog.Handler
	l *log.Logger
}

// NewPrettyHandler constructs a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewTextHandler(w, &opts.SlogOpts),
		l:       log.New(w, "", 0),
	}
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	attrs := map[string]any{}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return NewError("marshal attrs", err)
	}

	timestamp := r.Time.Format("15:04:05.000")
	h.l.Println(fmt.Sprintf("[%s] %s %s %s", timestamp, level, r.Message, string(attrsJSON)))

	return nil
}
