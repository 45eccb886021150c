package fetch

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	successReport = ".lastrun.success.json"
	failedReport  = ".lastrun.failed.json"
)

// WriteRunReport writes the loaded symbols and the failures of res as JSON
// files in dir. A stale failure report is removed when nothing failed.
func WriteRunReport(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if symbols := res.Symbols(); len(symbols) > 0 {
		p := filepath.Join(dir, successReport)
		if err := writeJSON(p, symbols); err != nil {
			return err
		}
		slog.Debug("report wrote success", "path", p, "symbols", len(symbols))
	}

	p := filepath.Join(dir, failedReport)
	if len(res.Diagnostics) == 0 {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := writeJSON(p, res.Diagnostics); err != nil {
		return err
	}
	slog.Debug("report wrote failed", "path", p, "count", len(res.Diagnostics))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
