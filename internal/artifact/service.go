package artifact

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stlalpha/scrollkeep/internal/logging"
	"github.com/stlalpha/scrollkeep/internal/util"
	"github.com/stlalpha/scrollkeep/internal/validate"
)

// Predefined errors for artifact management.
var (
	ErrNotFound  = errors.New("scroll not found")
	ErrNameTaken = errors.New("scroll name must be unique")
	// ErrNotOwner is returned for any non-owner mutation attempt. The message
	// does not reveal whether the scroll exists under another owner.
	ErrNotOwner  = errors.New("you can only modify your own scrolls")
	ErrBadSource = errors.New("source file does not exist")
)

// Service owns the artifact business rules: metadata mutations and the
// managed-file operations that accompany them.
type Service struct {
	repo      *Repository
	uploadDir string
}

// NewService creates the artifact service. The upload directory is created
// up front so the first upload cannot fail on a missing root.
func NewService(repo *Repository, uploadDir string) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", uploadDir, err)
	}
	return &Service{repo: repo, uploadDir: uploadDir}, nil
}

// ListAll returns every artifact in insertion order.
func (s *Service) ListAll() []Artifact {
	return s.repo.All()
}

// ListByOwner returns the artifacts owned by ownerUsername.
func (s *Service) ListByOwner(ownerUsername string) []Artifact {
	var owned []Artifact
	for _, a := range s.repo.All() {
		if a.Owner == ownerUsername {
			owned = append(owned, a)
		}
	}
	return owned
}

// Get returns the artifact with the given ID, trimming the input first.
func (s *Service) Get(id string) (Artifact, bool) {
	return s.repo.Find(strings.TrimSpace(id))
}

// Upload copies the file at sourcePath into managed storage and persists a
// new artifact record owned by ownerUsername. The managed copy is named
// {id}_{sanitizedName}{ext}; uploads start with uploadCount 1.
func (s *Service) Upload(ownerUsername, name, sourcePath string) (Artifact, error) {
	safeName, err := validate.Require("scroll name", name)
	if err != nil {
		return Artifact{}, err
	}
	if err := s.ensureUniqueName(safeName, ""); err != nil {
		return Artifact{}, err
	}
	source, err := checkReadableFile(sourcePath)
	if err != nil {
		return Artifact{}, err
	}

	id := s.repo.GenerateID()
	target := filepath.Join(s.uploadDir, id+"_"+util.SanitizeName(safeName)+util.Extension(filepath.Base(source)))
	if err := util.CopyFile(source, target); err != nil {
		return Artifact{}, err
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}

	a := Artifact{
		ID:          id,
		Name:        safeName,
		Owner:       ownerUsername,
		FilePath:    abs,
		UploadedAt:  time.Now().Truncate(time.Second),
		UploadCount: 1,
	}
	if err := s.repo.Save(a); err != nil {
		return Artifact{}, err
	}
	logging.Debug("uploaded scroll %s (%s) for %s", a.ID, a.Name, a.Owner)
	return a, nil
}

// Update renames and/or replaces the content of an owned artifact. A blank
// newName keeps the current name; a blank newSourcePath keeps the current
// content. A successful content replacement increments the upload count.
func (s *Service) Update(ownerUsername, id, newName, newSourcePath string) (Artifact, error) {
	a, err := s.requireOwned(ownerUsername, id)
	if err != nil {
		return Artifact{}, err
	}

	if trimmed := strings.TrimSpace(newName); trimmed != "" {
		safeName, err := validate.Require("scroll name", trimmed)
		if err != nil {
			return Artifact{}, err
		}
		if err := s.ensureUniqueName(safeName, a.ID); err != nil {
			return Artifact{}, err
		}
		a.Name = safeName
	}
	if trimmed := strings.TrimSpace(newSourcePath); trimmed != "" {
		source, err := checkReadableFile(trimmed)
		if err != nil {
			return Artifact{}, err
		}
		if err := util.CopyFile(source, a.FilePath); err != nil {
			return Artifact{}, err
		}
		a.UploadCount++
	}
	if err := s.repo.Save(a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Remove deletes an owned artifact's managed file and metadata. The metadata
// deletion is authoritative: a missing or undeletable managed file is logged
// and otherwise ignored.
func (s *Service) Remove(ownerUsername, id string) error {
	a, err := s.requireOwned(ownerUsername, id)
	if err != nil {
		return err
	}
	if err := os.Remove(a.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Failed to delete managed file %s for scroll %s: %v", a.FilePath, a.ID, err)
	}
	return s.repo.Delete(a.ID)
}

// RecordDownload increments the artifact's download counter and persists it.
// The caller's copy is updated in place.
func (s *Service) RecordDownload(a *Artifact) error {
	a.DownloadCount++
	return s.repo.Save(*a)
}

// Statistics returns one summary line per artifact.
func (s *Service) Statistics() []string {
	all := s.repo.All()
	stats := make([]string, 0, len(all))
	for _, a := range all {
		stats = append(stats, fmt.Sprintf("id=%s name=%s uploads=%d downloads=%d",
			a.ID, a.Name, a.UploadCount, a.DownloadCount))
	}
	return stats
}

// requireOwned fetches the artifact and enforces ownership.
func (s *Service) requireOwned(ownerUsername, id string) (Artifact, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Artifact{}, validate.Errorf("scroll ID", "cannot be empty")
	}
	a, exists := s.repo.Find(trimmed)
	if !exists {
		return Artifact{}, ErrNotFound
	}
	if a.Owner != ownerUsername {
		return Artifact{}, ErrNotOwner
	}
	return a, nil
}

// ensureUniqueName enforces case-insensitive name uniqueness, ignoring the
// artifact identified by ignoreID (the one being renamed).
func (s *Service) ensureUniqueName(name, ignoreID string) error {
	for _, existing := range s.repo.All() {
		if strings.EqualFold(existing.Name, name) && existing.ID != ignoreID {
			return ErrNameTaken
		}
	}
	return nil
}

// checkReadableFile verifies sourcePath names an existing regular file and
// returns the trimmed path.
func checkReadableFile(sourcePath string) (string, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return "", validate.Errorf("file path", "cannot be empty")
	}
	info, err := os.Stat(trimmed)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrBadSource
	}
	return trimmed, nil
}
