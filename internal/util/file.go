package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName reduces a name to a safe filename component: every character
// outside [A-Za-z0-9_-] becomes an underscore.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Extension returns the trailing extension of filename including the dot, or
// "" when there is none.
func Extension(filename string) string {
	index := strings.LastIndex(filename, ".")
	if index >= 0 && index < len(filename)-1 {
		return filename[index:]
	}
	return ""
}

// CopyFile copies src to dst, creating dst's parent directories and
// overwriting any existing file. Both files are closed on every path.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish writing %s: %w", dst, err)
	}
	return nil
}
