// Package debug writes the structured debug log under the cache dir.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileName is the log file inside the log directory.
const FileName = "hunklock.log"

// Open returns a logger appending JSON lines to logDir/hunklock.log and a
// func closing the file. A log that cannot be opened is discarded rather
// than failing the command.
func Open(logDir, level string) (*logrus.Logger, func()) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05"})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	_ = os.MkdirAll(logDir, 0o755)
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger, func() {}
	}
	logger.SetOutput(f)
	return logger, func() { f.Close() }
}

// Discard returns a logger that writes nothing.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Tail returns the last n lines of the log, oldest first.
func Tail(logDir string, n int) ([]string, error) {
	f, err := os.Open(filepath.Join(logDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return ring, nil
}
