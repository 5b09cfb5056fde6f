package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// sessionStamp names every file a run writes, so a log and its round
// backup sort next to each other.
const sessionStamp = "20060102_150405"

// SessionFile returns dir/<app>.<session start>.<suffix>.
func SessionFile(dir, app, suffix string, sessionStart time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", app, sessionStart.Format(sessionStamp), suffix))
}

// LogFilePath is the text log of the session started at sessionStart.
func LogFilePath(logsDir, app string, sessionStart time.Time) string {
	return SessionFile(logsDir, app, "log", sessionStart)
}
