package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Tomlord1122/join/internal/config"
)

// Formatter writes one line per entry with the event source, level, a fresh
// event ID, the message and any structured fields.
type Formatter struct {
	SystemName string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "time=%s source=%s level=%s event_id=%s msg=%q",
		entry.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		f.SystemName,
		strings.ToUpper(entry.Level.String()),
		uuid.NewString(),
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, " location=%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New builds the application logger. With cfg.File set, output goes to both
// stdout and a rotated log file.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&Formatter{SystemName: "join"})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger.SetOutput(out)

	logger.WithField("file", cfg.File).Debug("logger initialized")
	return logger, nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
