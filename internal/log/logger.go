package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component. Every record it writes
// carries the component attribute.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer    // stdout when nil
	Handler   slog.Handler // overrides Level and Output
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp, Output: os.Stdout}
}

func New(config Config) *Logger {
	h := config.Handler
	if h == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: config.Level})
	}
	return bind(slog.New(h), config.Component)
}

func bind(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

func (l *Logger) With(args ...any) *Logger {
	return bind(l.base.With(args...), l.component)
}

// WithComponent rebinds the logger; attributes added by With are kept.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// unbound is the logger without the component attribute, for records that
// name their own component.
func (l *Logger) unbound() *slog.Logger {
	return l.base
}

// SetDefault installs the logger, without its component, as slog's default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.base)
}
