package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFileName is written next to the panel log when startup fails.
const StartupErrorFileName = "agentpanel-startup-error.log"

// WriteStartupError records err in logDir so that a failure before the logger
// exists still leaves a trace. Only the most recent error is kept. It returns
// the file path.
func WriteStartupError(logDir string, err error) (string, error) {
	if mkErr := os.MkdirAll(logDir, 0755); mkErr != nil {
		return "", mkErr
	}

	path := filepath.Join(logDir, StartupErrorFileName)
	f, ferr := os.Create(path)
	if ferr != nil {
		return "", ferr
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	if _, werr := fmt.Fprintf(f, "[%s] STARTUP ERROR\n%v\n", ts, err); werr != nil {
		return path, werr
	}
	return path, nil
}
