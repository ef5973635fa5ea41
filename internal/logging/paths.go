package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.og/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".og", "logs")
	}
	return filepath.Join(home, ".og", "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}

// FindLogFile resolves an explicit log file path, falling back to
// DefaultLogPath when path is empty. Returns an error if the resolved path
// does not exist.
func FindLogFile(path string) (string, error) {
	if path == "" {
		path = DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
