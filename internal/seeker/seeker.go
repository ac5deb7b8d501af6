// Package seeker provides the read-mostly search surface over the scroll
// registry: multi-field filtering, binary previews and download
// materialization.
package seeker

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stlalpha/scrollkeep/internal/artifact"
	"github.com/stlalpha/scrollkeep/internal/util"
)

// previewBytes is how much of the managed file a preview samples.
const previewBytes = 256

// Preview pairs an artifact's metadata summary with a hex dump of its
// leading bytes.
type Preview struct {
	Summary   string
	HexSample string
}

// Service answers search, preview and download requests.
type Service struct {
	artifacts *artifact.Service
}

// NewService creates the seeker service on top of the artifact service.
func NewService(artifacts *artifact.Service) *Service {
	return &Service{artifacts: artifacts}
}

// Filter returns the artifacts matching every supplied filter. Owner, ID and
// name filters are case-insensitive substring matches; a blank filter matches
// everything. A non-zero date matches on calendar date equality of the
// upload timestamp.
func (s *Service) Filter(ownerFilter, idFilter, nameFilter string, dateFilter time.Time) []artifact.Artifact {
	var matched []artifact.Artifact
	for _, a := range s.artifacts.ListAll() {
		if !matches(a, ownerFilter, idFilter, nameFilter, dateFilter) {
			continue
		}
		matched = append(matched, a)
	}
	return matched
}

// Find returns the artifact with the given ID.
func (s *Service) Find(id string) (artifact.Artifact, bool) {
	return s.artifacts.Get(id)
}

// BuildPreview returns a metadata summary and a hex sample of the managed
// file's leading bytes. File problems are reported inside the sample text
// rather than as errors.
func (s *Service) BuildPreview(a artifact.Artifact) Preview {
	summary := fmt.Sprintf("ID: %s\nName: %s\nOwner: %s\nUploaded: %s\nFile: %s\nSize: %d bytes",
		a.ID, a.Name, a.Owner, a.UploadedAt.Format(artifact.TimeLayout), a.FilePath, fileSize(a.FilePath))
	return Preview{Summary: summary, HexSample: readHexSample(a.FilePath, previewBytes)}
}

// Download copies the managed file to targetPath (creating parent
// directories) and records the download against the artifact.
func (s *Service) Download(a *artifact.Artifact, targetPath string) error {
	if err := util.CopyFile(a.FilePath, targetPath); err != nil {
		return fmt.Errorf("failed to download scroll %s: %w", a.ID, err)
	}
	return s.artifacts.RecordDownload(a)
}

func matches(a artifact.Artifact, ownerFilter, idFilter, nameFilter string, dateFilter time.Time) bool {
	if ownerFilter != "" && !containsFold(a.Owner, ownerFilter) {
		return false
	}
	if idFilter != "" && !containsFold(a.ID, idFilter) {
		return false
	}
	if nameFilter != "" && !containsFold(a.Name, nameFilter) {
		return false
	}
	if !dateFilter.IsZero() {
		y1, m1, d1 := a.UploadedAt.Date()
		y2, m2, d2 := dateFilter.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

func containsFold(value, substring string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substring))
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// readHexSample dumps up to maxBytes of the file as uppercase hex pairs, 16
// per line. Missing, empty and unreadable files each get a distinct
// placeholder string.
func readHexSample(path string, maxBytes int) string {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "(file not found)"
		}
		return "(failed to read file)"
	}
	defer f.Close()

	buffer := make([]byte, maxBytes)
	n, err := io.ReadFull(f, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "(failed to read file)"
	}
	if n <= 0 {
		return "(file is empty)"
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%16 == 0 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		fmt.Fprintf(&b, "%02X", buffer[i])
	}
	return b.String()
}
