// Package telemetry provides the logging and metrics layer shared by every
// other package in the coordination runtime. It follows the layered,
// rate-limited, environment-aware pattern the rest of this codebase expects:
// text output for local development, JSON under Kubernetes, and a
// component-scoped wrapper so log lines can be attributed to the package
// that emitted them.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is the structured logging interface used throughout the runtime.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithComponent(component string) Logger
}

// runtimeLogger is the concrete Logger implementation.
type runtimeLogger struct {
	level     string
	debug     bool
	service   string
	component string
	format    string
	output    io.Writer
	mu        *sync.RWMutex

	errorLimiter *RateLimiter
	metrics      MetricsSink
}

// MetricsSink receives low-cardinality counters about logging activity.
// Implemented by internal/telemetry's own metrics registry; kept as an
// interface here so this file has no import-cycle on metrics.go's
// prometheus wiring.
type MetricsSink interface {
	IncLogEvents(level, component string)
}

// New creates the root logger for a service. Configuration priority:
// explicit parameter, then environment (ARACHNID_LOG_LEVEL,
// ARACHNID_LOG_FORMAT, ARACHNID_DEBUG), then Kubernetes auto-detection,
// then defaults.
func New(service string) Logger {
	level := os.Getenv("ARACHNID_LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}
	debug := os.Getenv("ARACHNID_DEBUG") == "true" || strings.ToUpper(level) == "DEBUG"

	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	if envFormat := os.Getenv("ARACHNID_LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}

	return &runtimeLogger{
		level:        strings.ToUpper(level),
		debug:        debug,
		service:      service,
		format:       format,
		output:       os.Stdout,
		mu:           &sync.RWMutex{},
		errorLimiter: NewRateLimiter(time.Second),
	}
}

// WithComponent returns a child logger tagged with a component name,
// sharing the parent's output, level, and rate limiter.
func (l *runtimeLogger) WithComponent(component string) Logger {
	child := *l
	child.component = component
	return &child
}

// WithMetrics attaches a metrics sink so logging activity becomes observable.
func (l *runtimeLogger) WithMetrics(sink MetricsSink) Logger {
	child := *l
	child.metrics = sink
	return &child
}

func (l *runtimeLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

func (l *runtimeLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *runtimeLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *runtimeLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func (l *runtimeLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}
	timestamp := time.Now().Format(time.RFC3339)

	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}

	if l.metrics != nil {
		l.metrics.IncLogEvents(level, l.component)
	}
}

func (l *runtimeLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.service,
		"component": l.component,
		"message":   msg,
	}
	for k, v := range fields {
		if k == "timestamp" || k == "level" || k == "service" || k == "component" || k == "message" {
			continue
		}
		entry[k] = v
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *runtimeLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	if len(fields) > 0 {
		b.WriteString(" ")
		for k, v := range fields {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
	}
	fmt.Fprintf(l.output, "%s [%s] [%s:%s] %s%s\n", timestamp, level, l.service, l.component, msg, b.String())
}

func (l *runtimeLogger) shouldLog(level string) bool {
	levels := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	cur, ok1 := levels[l.level]
	msg, ok2 := levels[level]
	if !ok1 || !ok2 {
		return true
	}
	return msg >= cur
}

// SetOutput redirects log output, used by tests.
func (l *runtimeLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// NoOp returns a logger that discards everything, used as a safe zero value.
func NoOp() Logger { return noOpLogger{} }

type noOpLogger struct{}

func (noOpLogger) Debug(string, map[string]interface{}) {}
func (noOpLogger) Info(string, map[string]interface{})  {}
func (noOpLogger) Warn(string, map[string]interface{})  {}
func (noOpLogger) Error(string, map[string]interface{}) {}
func (n noOpLogger) WithComponent(string) Logger        { return n }
