package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResolveReportPath turns a configured report path into a workbook path.
// A directory (trailing separator) gets a dated file name and a missing
// .xlsx extension is added. Empty stays empty.
func ResolveReportPath(path string, now time.Time) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return filepath.Join(path, fmt.Sprintf("orchestrator_%s.xlsx", now.Format("2006-01-02_150405")))
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	return path
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
