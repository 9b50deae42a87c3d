package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const FormatPretty = "pretty"

// Logger is a zerolog logger tagged with the service name. Derived loggers
// share its output.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// Init builds the process logger from cfg and makes it the global one.
func Init(cfg Config, serviceName string) *Logger {
	cfg.ApplyDefaults()
	l := New(&cfg, serviceName)
	SetGlobalLogger(l)
	return l
}

// New creates a logger writing to cfg.Output.
func New(cfg *Config, serviceName string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, serviceName, out)
}

// NewWithWriter creates a logger writing to w. An unknown level means info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zc zerolog.Context
	switch strings.ToLower(cfg.Format) {
	case "console", FormatPretty:
		zc = zerolog.New(consoleWriter(cfg.NoColor, serviceName, w)).With()
	default:
		zc = zerolog.New(w).With().Str(FieldService, serviceName)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.CallerWithSkipFrameCount(4)
	}
	return &Logger{zl: zc.Logger().Level(level), service: serviceName}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithContext adds the trace, span, request and user ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	if id := RequestIDFromContext(ctx); id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	if id := UserIDFromContext(ctx); id != "" {
		zc = zc.Str(FieldUserID, id)
	}
	return l.derive(zc)
}

// WithComponent tags entries with the subsystem that wrote them.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.zl.With().Str(FieldComponent, name))
}

// ForJob is WithContext with requestID as the request id. Background work
// such as inline transcription logs through it.
func (l *Logger) ForJob(ctx context.Context, requestID string) *Logger {
	return l.WithContext(ContextWithRequestID(ctx, requestID))
}

func (l *Logger) write(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			ev = ev.Interface(k, v)
		}
	}
	ev.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.write(l.zl.Error(), msg, fields)
}

var global atomic.Pointer[Logger]

// SetGlobalLogger replaces the logger used by constructors given a nil logger.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger. Before Init it is a console
// logger on stderr.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	fallback := NewWithWriter(&Config{Level: "info", Format: "console", Timestamp: true}, "", os.Stderr)
	global.CompareAndSwap(nil, fallback)
	return global.Load()
}

// WithComponent derives a component logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

var levelTags = map[string]struct{ tag, color string }{
	"debug": {"DBG", "36"},
	"info":  {"INF", "32"},
	"warn":  {"WRN", "33"},
	"error": {"ERR", "31"},
	"fatal": {"FTL", "35"},
}

// consoleWriter prints "[SCR][INF] message key:value", with the first
// three letters of the service as a prefix.
func consoleWriter(noColor bool, serviceName string, w io.Writer) zerolog.ConsoleWriter {
	paint := func(code, s string) string {
		if noColor {
			return s
		}
		return "\033[" + code + "m" + s + "\033[0m"
	}
	prefix := ""
	if len(serviceName) >= 3 {
		prefix = paint("34", "["+strings.ToUpper(serviceName[:3])+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			name := fmt.Sprint(i)
			lt, ok := levelTags[name]
			if !ok {
				return prefix + "[" + strings.ToUpper(name) + "]"
			}
			return prefix + paint(lt.color, "["+lt.tag+"]")
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprint(i) + ":"
		},
	}
}
