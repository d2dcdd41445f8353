package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	zerologLevels = map[LogLevel]zerolog.Level{
		DEBUG: zerolog.DebugLevel,
		INFO:  zerolog.InfoLevel,
		WARN:  zerolog.WarnLevel,
		ERROR: zerolog.ErrorLevel,
		FATAL: zerolog.FatalLevel,
	}

	currentLevel = INFO
	sink         = &rotatingFile{}
	console      io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	base         zerolog.Logger
	mu           sync.RWMutex
	exit         = os.Exit
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	rebuild()
}

// rebuild must be called with mu held (or during init).
func rebuild() {
	writers := []io.Writer{console}
	if sink.active() {
		writers = append(writers, sink)
	}
	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerologLevels[currentLevel]).
		With().
		Timestamp().
		Logger()
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	rebuild()
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// SetConsoleOutput replaces the human-readable console writer. Passing nil
// silences console output; file logging is unaffected.
func SetConsoleOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	console = w
	rebuild()
}

func EnableFileLogging(filePath string) error {
	return EnableFileLoggingWithRotation(filePath, 20, 3)
}

func EnableFileLoggingWithRotation(filePath string, maxSizeMB, maxAgeDays int) error {
	mu.Lock()
	defer mu.Unlock()

	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 3
	}

	if err := sink.open(filePath, int64(maxSizeMB)*1024*1024, maxAgeDays); err != nil {
		return err
	}
	rebuild()
	log.Println("File logging enabled:", filePath)
	return nil
}

func DisableFileLogging() {
	mu.Lock()
	defer mu.Unlock()

	if sink.active() {
		sink.close()
		rebuild()
		log.Println("File logging disabled")
	}
}

func logMessage(level LogLevel, component string, message string, fields map[string]interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ev := l.WithLevel(zerologLevels[level])
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Caller(2).Msg(message)

	if level == FATAL {
		exit(1)
	}
}

// rotatingFile is the JSON-lines file sink. It rotates by size and prunes
// rotated files older than maxAgeDays.
type rotatingFile struct {
	mu           sync.Mutex
	file         *os.File
	filePath     string
	maxSizeBytes int64
	maxAgeDays   int
}

func (r *rotatingFile) open(filePath string, maxSizeBytes int64, maxAgeDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if r.file != nil {
		r.file.Close()
	}
	r.file = file
	r.filePath = filePath
	r.maxSizeBytes = maxSizeBytes
	r.maxAgeDays = maxAgeDays

	if err := r.cleanupOldLogFiles(); err != nil {
		log.Println("Failed to clean up old log files:", err)
	}
	return nil
}

func (r *rotatingFile) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file != nil
}

func (r *rotatingFile) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		r.file.Close()
	}
	r.file = nil
	r.filePath = ""
	r.maxSizeBytes = 0
	r.maxAgeDays = 0
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return len(p), nil
	}

	if r.maxSizeBytes > 0 {
		if err := r.rotateIfNeeded(int64(len(p))); err != nil {
			return 0, err
		}
	}

	return r.file.Write(p)
}

func (r *rotatingFile) rotateIfNeeded(nextWrite int64) error {
	info, err := r.file.Stat()
	if err != nil {
		return err
	}

	if info.Size() == 0 || info.Size()+nextWrite <= r.maxSizeBytes {
		return nil
	}

	if err := r.file.Close(); err != nil {
		r.file = nil
		return r.reopen(err)
	}

	backupPath := fmt.Sprintf("%s.%s", r.filePath, time.Now().UTC().Format("20060102-150405.000000000"))
	renameErr := os.Rename(r.filePath, backupPath)
	if err := r.reopen(nil); err != nil {
		return err
	}
	if renameErr != nil {
		return renameErr
	}

	return r.cleanupOldLogFiles()
}

// reopen points r.file at filePath again after the old handle was closed.
// On failure r.file is left nil so later writes are dropped instead of
// failing on a closed file.
func (r *rotatingFile) reopen(cause error) error {
	file, err := os.OpenFile(r.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.file = nil
		if cause != nil {
			return cause
		}
		return err
	}
	r.file = file
	return cause
}

func (r *rotatingFile) cleanupOldLogFiles() error {
	if r.maxAgeDays <= 0 || r.filePath == "" {
		return nil
	}

	dir := filepath.Dir(r.filePath)
	prefix := filepath.Base(r.filePath) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -r.maxAgeDays)
	for _, entry := range entries {
		// Only rotated files like cardbot.log.20260213-120000.000000000
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}

	return nil
}

func Debug(message string) {
	logMessage(DEBUG, "", message, nil)
}

func DebugC(component string, message string) {
	logMessage(DEBUG, component, message, nil)
}

func DebugCF(component string, message string, fields map[string]interface{}) {
	logMessage(DEBUG, component, message, fields)
}

func Info(message string) {
	logMessage(INFO, "", message, nil)
}

func InfoC(component string, message string) {
	logMessage(INFO, component, message, nil)
}

func InfoCF(component string, message string, fields map[string]interface{}) {
	logMessage(INFO, component, message, fields)
}

func Warn(message string) {
	logMessage(WARN, "", message, nil)
}

func WarnC(component string, message string) {
	logMessage(WARN, component, message, nil)
}

func WarnCF(component string, message string, fields map[string]interface{}) {
	logMessage(WARN, component, message, fields)
}

func Error(message string) {
	logMessage(ERROR, "", message, nil)
}

func ErrorC(component string, message string) {
	logMessage(ERROR, component, message, nil)
}

func ErrorCF(component string, message string, fields map[string]interface{}) {
	logMessage(ERROR, component, message, fields)
}

func FatalC(component string, message string) {
	logMessage(FATAL, component, message, nil)
}

func FatalCF(component string, message string, fields map[string]interface{}) {
	logMessage(FATAL, component, message, fields)
}
