// Package util holds small filesystem and formatting helpers shared by the
// domain services.
package util

import "fmt"

// FormatFileSize renders a byte count compactly for listings: a bare number
// below 1K, otherwise one decimal place with a K, M or G suffix.
func FormatFileSize(size int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case size < kb:
		return fmt.Sprintf("%d", size)
	case size < mb:
		return fmt.Sprintf("%.1fK", float64(size)/kb)
	case size < gb:
		return fmt.Sprintf("%.1fM", float64(size)/mb)
	default:
		return fmt.Sprintf("%.1fG", float64(size)/gb)
	}
}
