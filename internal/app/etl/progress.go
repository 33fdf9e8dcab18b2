package etl

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// progressTimeLayout renders as e.g. 2023-Sep-08-09:16:35.
const progressTimeLayout = "2006-Jan-02-15:04:05"

const (
	msgPreliminaries   = "Preliminaries complete. Initiating ETL process"
	msgExtracted       = "Data extraction complete. Initiating Transformation process"
	msgTransformed     = "Data transformation complete. Initiating Loading process"
	msgSavedCSV        = "Data saved to CSV file"
	msgConnected       = "SQL Connection initiated"
	msgLoadedDB        = "Data loaded to Database as a table, Executing queries"
	msgComplete        = "Process Complete"
	msgConnectionClose = "Server Connection closed"
)

// ProgressLog appends one timestamped line per pipeline stage to a file.
// The file is opened and closed on every call, so lines already written
// survive a later crash.
type ProgressLog struct {
	path   string
	now    func() time.Time
	logger *zap.Logger
}

func NewProgressLog(path string, logger *zap.Logger) *ProgressLog {
	return &ProgressLog{path: path, now: time.Now, logger: logger}
}

func (p *ProgressLog) Log(message string) error {
	line := p.now().Format(progressTimeLayout) + " : " + message + "\n"

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open progress log '%s': %w", p.path, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write progress log '%s': %w", p.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close progress log '%s': %w", p.path, err)
	}

	p.logger.Info(message)
	return nil
}
