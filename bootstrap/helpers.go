package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"obsquery/config"
	"obsquery/storage"

	"go.uber.org/zap"
)

// DataPaths returns the on-disk locations the configured embedded backends
// write to. Remote backends contribute nothing.
func DataPaths(cfg *config.Config) []string {
	var paths []string
	if cfg.Search.Backend == storage.BackendBleve && cfg.Search.Bleve.Path != "" {
		paths = append(paths, cfg.Search.Bleve.Path)
	}
	if cfg.Documents.Backend == storage.BackendSQLite && cfg.Documents.SQLite.Path != "" {
		paths = append(paths, cfg.Documents.SQLite.Path)
	}
	return paths
}

// EnsureDataDirectories creates the parent directories of the embedded
// backends' files and verifies they are writable.
func EnsureDataDirectories(cfg *config.Config, sugar *zap.SugaredLogger) error {
	for _, path := range DataPaths(cfg) {
		absPath, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
		}

		if err := os.MkdirAll(absPath, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w\n"+
				"  Remediation: Ensure the parent directory exists and is writable\n"+
				"  For Docker: Check volume mount permissions", absPath, err)
		}

		testFile, err := os.CreateTemp(absPath, ".obsquery_write_test")
		if err != nil {
			return fmt.Errorf("directory %s is not writable: %w\n"+
				"  Remediation: Check file system permissions\n"+
				"  For Docker: Ensure volume is mounted with write access", absPath, err)
		}
		testFile.Close()
		os.Remove(testFile.Name())

		sugar.Infow("Data directory ready", "path", absPath)
	}
	return nil
}

// writeFatalBanner prints a boxed startup failure to w.
func writeFatalBanner(w io.Writer, title, body string) {
	fmt.Fprintf(w, "\n========================================\n")
	fmt.Fprintf(w, "FATAL: %s\n", title)
	fmt.Fprintf(w, "========================================\n")
	fmt.Fprintf(w, "%s\n", body)
	fmt.Fprintf(w, "========================================\n\n")
}

// ClassifyConnectionError explains a failure to reach service at addr.
func ClassifyConnectionError(err error, service, addr string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || containsIgnoreCase(errStr, "timed out") || containsIgnoreCase(errStr, "deadline exceeded") {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - %s is starting up (wait and retry)\n"+
			"  - Network latency or firewall blocking the connection\n"+
			"  Remediation:\n"+
			"  - Verify network connectivity to %s", service, addr, service, addr)
	}

	var opErr *net.OpError
	if (errors.As(err, &opErr) && opErr.Op == "dial" && errors.Is(opErr.Err, syscall.ECONNREFUSED)) ||
		containsIgnoreCase(errStr, "connection refused") || containsIgnoreCase(errStr, "actively refused") {
		return fmt.Sprintf("Connection refused by %s at %s.\n"+
			"  This usually means %s is not running.\n"+
			"  Remediation:\n"+
			"  - Start %s and retry\n"+
			"  - Verify the address is correct in config.yaml", service, addr, service, service)
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Check DNS configuration", service, addr)
	}

	if containsIgnoreCase(errStr, "authentication") || containsIgnoreCase(errStr, "unauthorized") || containsIgnoreCase(errStr, "401") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify the credentials in config.yaml or the OBSQUERY_* environment", service, addr)
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure %s is running and accessible\n"+
		"  - Verify network connectivity", service, addr, err, service)
}

// ClassifySQLiteError explains a failure to open the SQLite database at dbPath.
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	absPath, _ := filepath.Abs(dbPath)
	parentDir := filepath.Dir(absPath)

	switch {
	case containsIgnoreCase(errStr, "permission denied") || containsIgnoreCase(errStr, "access denied"):
		return fmt.Sprintf("Permission denied accessing SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check file permissions: ls -la %s\n"+
			"  - For Docker: Ensure volume is mounted with proper user permissions", absPath, parentDir)
	case containsIgnoreCase(errStr, "database is locked") || containsIgnoreCase(errStr, "SQLITE_BUSY"):
		return fmt.Sprintf("SQLite database at %s is locked by another process.\n"+
			"  Remediation:\n"+
			"  - Check for another running obsquery load or server\n"+
			"  - Check for lock files: ls -la %s*", absPath, absPath)
	case containsIgnoreCase(errStr, "disk full") || containsIgnoreCase(errStr, "no space") || containsIgnoreCase(errStr, "SQLITE_FULL"):
		return fmt.Sprintf("Disk full - cannot write to SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check available disk space: df -h %s", absPath, parentDir)
	case containsIgnoreCase(errStr, "corrupt") || containsIgnoreCase(errStr, "malformed") || containsIgnoreCase(errStr, "SQLITE_CORRUPT"):
		return fmt.Sprintf("SQLite database at %s appears to be corrupted.\n"+
			"  Remediation:\n"+
			"  - Check integrity: sqlite3 %s \"PRAGMA integrity_check;\"\n"+
			"  - Reload events from their source files into a fresh database", absPath, absPath)
	case containsIgnoreCase(errStr, "read-only"):
		return fmt.Sprintf("SQLite database location is on a read-only file system: %s.\n"+
			"  Remediation:\n"+
			"  - Move the database to a writable location via documents.sqlite.path", absPath)
	case containsIgnoreCase(errStr, "invalid database path"):
		return fmt.Sprintf("SQLite database path %q is not allowed: %v", dbPath, err)
	}

	return fmt.Sprintf("Failed to initialize SQLite database at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the directory %s exists and is writable", absPath, err, parentDir)
}

// containsIgnoreCase checks if a string contains a substring (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
