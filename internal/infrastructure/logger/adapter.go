package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"recovery-agent/internal/application/port/output"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

// LoggerAdapter writes structured JSON lines to a per-session file under
// log/, backed by zap. WithField/WithFields return children sharing the
// same sink.
type LoggerAdapter struct {
	zl   *zap.SugaredLogger
	file *os.File
}

func NewLoggerAdapter(sessionName string) (*LoggerAdapter, error) {
	safeName := sanitizeName(sessionName)
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), safeName)

	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.Create(filepath.Join("log", filename))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(file),
		zapcore.DebugLevel,
	)

	return &LoggerAdapter{
		zl:   zap.New(core).Sugar(),
		file: file,
	}, nil
}

func (l *LoggerAdapter) Debug(msg string, args ...any) { l.zl.Debugw(msg, args...) }
func (l *LoggerAdapter) Info(msg string, args ...any)  { l.zl.Infow(msg, args...) }
func (l *LoggerAdapter) Warn(msg string, args ...any)  { l.zl.Warnw(msg, args...) }
func (l *LoggerAdapter) Error(msg string, args ...any) { l.zl.Errorw(msg, args...) }

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{zl: l.zl.With(key, value), file: l.file}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &LoggerAdapter{zl: l.zl.With(args...), file: l.file}
}

func (l *LoggerAdapter) Close() error {
	l.zl.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func sanitizeName(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	s = string(result)
	if s == "" {
		return "session"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
