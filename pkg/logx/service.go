package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

const defaultLogFile = "./cronalarmd.log"

// zerolog globals; written only here, before any logger exists.
func init() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

// Config selects level and sinks. With no sink enabled, output goes to the
// console anyway.
type Config struct {
	Level   string
	Console bool
	// Format is "console" (human readable, default) or "json" for stdout.
	Format string
	File   FileConfig
}

// FileConfig appends JSON lines to Path.
type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the active sinks and swaps them on Apply.
type Service struct {
	mu   sync.Mutex
	file *os.File

	active atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the Service with a live root Logger.
func New(cfg Config) (*Service, Logger) {
	s := &Service{}
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	if zl := s.active.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

// Apply rebuilds the sinks from cfg. Loggers handed out earlier pick up the
// change on their next event. Safe for concurrent use.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	var writers []io.Writer
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultLogFile
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Console || len(writers) == 0 {
		writers = append(writers, stdoutWriter(cfg.Format))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Logger()
	s.active.Store(&zl)
}

// Close releases the file sink. Later events still reach the console.
func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func stdoutWriter(format string) io.Writer {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return os.Stdout
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
	cw.FormatCaller = func(i any) string {
		s, _ := i.(string)
		return s
	}
	return cw
}

// parseLevel maps a config level to zerolog, defaulting to info.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
