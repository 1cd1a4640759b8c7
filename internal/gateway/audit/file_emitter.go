package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fetchguard/engine/internal/common/configtypes"
)

const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxAge     = 30  // days
	DefaultMaxBackups = 10  // files
)

// FileEmitter writes one JSON line per event with rotation support.
type FileEmitter struct {
	writer *lumberjack.Logger
	logger *zap.Logger
}

// NewFileEmitter creates a file-based audit emitter.
func NewFileEmitter(config configtypes.AuditFileConfig, logger *zap.Logger) (*FileEmitter, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory %s: %w", dir, err)
	}

	maxSize := config.Rotation.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	maxAge := config.Rotation.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	maxBackups := config.Rotation.MaxBackups
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}

	writer := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		Compress:   config.Rotation.Compress,
	}

	return &FileEmitter{writer: writer, logger: logger}, nil
}

// Emit serializes the event and writes it to the log file.
// Fire-and-forget: errors are logged but not returned.
func (f *FileEmitter) Emit(event *FetchEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to serialize audit event",
			zap.Error(err),
			zap.String("request_id", event.RequestID))
		return
	}
	if _, err := f.writer.Write(append(line, '\n')); err != nil {
		f.logger.Warn("failed to write audit event",
			zap.Error(err),
			zap.String("request_id", event.RequestID))
	}
}

// Close closes the underlying file handle.
func (f *FileEmitter) Close() error {
	return f.writer.Close()
}
