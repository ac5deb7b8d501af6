package account

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stlalpha/scrollkeep/internal/logging"
	"github.com/stlalpha/scrollkeep/internal/util"
	"github.com/stlalpha/scrollkeep/internal/validate"
)

// Predefined errors for account management.
var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already exists")
	ErrCustomIDTaken  = errors.New("custom ID must be unique")
	ErrAdminProtected = errors.New("cannot delete admin accounts")
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"

	// bcrypt refuses anything longer; reject it as bad input instead of
	// surfacing a hashing failure.
	maxPasswordBytes = 72
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
	phonePattern = regexp.MustCompile(`^0461\d{6,11}$`)
)

// Service owns the account business rules on top of the repository.
type Service struct {
	repo        *Repository
	hasher      Hasher
	picturesDir string
}

// NewService creates the account service. picturesDir is where profile
// pictures are copied when a user sets one.
func NewService(repo *Repository, hasher Hasher, picturesDir string) *Service {
	return &Service{repo: repo, hasher: hasher, picturesDir: picturesDir}
}

// EnsureDefaultAdmin creates the well-known admin account when no ADMIN
// account exists yet. Idempotent. The seed record is written directly against
// the repository, so it is exempt from the registration field rules.
func (s *Service) EnsureDefaultAdmin() error {
	if s.repo.HasAdmin() {
		return nil
	}
	digest, err := s.hasher.Hash(defaultAdminPassword)
	if err != nil {
		return err
	}
	customID := defaultAdminUsername
	if _, taken := s.repo.FindByCustomID(customID); taken {
		customID = fmt.Sprintf("%s-%d", defaultAdminUsername, time.Now().UnixMilli())
	}
	admin := Account{
		Username:       defaultAdminUsername,
		PasswordDigest: digest,
		Email:          "admin@example.com",
		Phone:          "0000000000",
		FullName:       "System Administrator",
		CustomID:       customID,
		Role:           RoleAdmin,
	}
	if err := s.repo.Save(admin); err != nil {
		return err
	}
	log.Printf("INFO: Created default admin account %q", defaultAdminUsername)
	return nil
}

// Register creates a GENERAL account.
func (s *Service) Register(username, password, email, phone, fullName, customID string) (Account, error) {
	return s.CreateAccount(username, password, email, phone, fullName, customID, RoleGeneral)
}

// CreateAccount validates every field, enforces username and custom-ID
// uniqueness, hashes the password and persists the new account.
func (s *Service) CreateAccount(username, password, email, phone, fullName, customID string, role Role) (Account, error) {
	safeUsername, err := validate.Require("username", username)
	if err != nil {
		return Account{}, err
	}
	safePassword, err := validate.Require("password", password)
	if err != nil {
		return Account{}, err
	}
	if len(safePassword) > maxPasswordBytes {
		return Account{}, validate.Errorf("password", "cannot exceed %d bytes", maxPasswordBytes)
	}
	safeEmail, err := validate.Require("email", email)
	if err != nil {
		return Account{}, err
	}
	if !emailPattern.MatchString(safeEmail) {
		return Account{}, validate.Errorf("email", "has an invalid format")
	}
	safePhone, err := validate.Require("phone", phone)
	if err != nil {
		return Account{}, err
	}
	if !phonePattern.MatchString(safePhone) {
		return Account{}, validate.Errorf("phone", "has an invalid format")
	}
	safeFullName, err := validate.Require("full name", fullName)
	if err != nil {
		return Account{}, err
	}
	safeCustomID, err := validate.Require("custom ID", customID)
	if err != nil {
		return Account{}, err
	}

	if _, exists := s.repo.FindByUsername(safeUsername); exists {
		return Account{}, ErrUsernameTaken
	}
	if _, exists := s.repo.FindByCustomID(safeCustomID); exists {
		return Account{}, ErrCustomIDTaken
	}

	digest, err := s.hasher.Hash(safePassword)
	if err != nil {
		return Account{}, err
	}
	a := Account{
		Username:       safeUsername,
		PasswordDigest: digest,
		Email:          safeEmail,
		Phone:          safePhone,
		FullName:       safeFullName,
		CustomID:       safeCustomID,
		Role:           role,
	}
	if err := s.repo.Save(a); err != nil {
		return Account{}, err
	}
	logging.Debug("created account %s (role %s)", a.Username, a.Role)
	return a, nil
}

// Authenticate returns the account only when the supplied password's digest
// matches the stored one. An unknown username and a wrong password are
// deliberately indistinguishable to the caller.
func (s *Service) Authenticate(username, password string) (Account, bool) {
	a, exists := s.repo.FindByUsername(strings.TrimSpace(username))
	if !exists {
		return Account{}, false
	}
	if !s.hasher.Verify(password, a.PasswordDigest) {
		return Account{}, false
	}
	return a, true
}

// UpdateEmail re-validates and persists a new email address.
func (s *Service) UpdateEmail(a *Account, email string) error {
	safe, err := validate.Require("email", email)
	if err != nil {
		return err
	}
	if !emailPattern.MatchString(safe) {
		return validate.Errorf("email", "has an invalid format")
	}
	a.Email = safe
	return s.repo.Save(*a)
}

// UpdateFullName re-validates and persists a new full name.
func (s *Service) UpdateFullName(a *Account, fullName string) error {
	safe, err := validate.Require("full name", fullName)
	if err != nil {
		return err
	}
	a.FullName = safe
	return s.repo.Save(*a)
}

// UpdatePhone re-validates and persists a new phone number.
func (s *Service) UpdatePhone(a *Account, phone string) error {
	safe, err := validate.Require("phone", phone)
	if err != nil {
		return err
	}
	if !phonePattern.MatchString(safe) {
		return validate.Errorf("phone", "has an invalid format")
	}
	a.Phone = safe
	return s.repo.Save(*a)
}

// UpdateCustomID persists a new custom ID after re-checking uniqueness
// against everyone except the account itself.
func (s *Service) UpdateCustomID(a *Account, customID string) error {
	safe, err := validate.Require("custom ID", customID)
	if err != nil {
		return err
	}
	if existing, exists := s.repo.FindByCustomID(safe); exists && existing.Username != a.Username {
		return ErrCustomIDTaken
	}
	a.CustomID = safe
	return s.repo.Save(*a)
}

// ChangePassword hashes and persists a new password.
func (s *Service) ChangePassword(a *Account, newPassword string) error {
	safe, err := validate.Require("password", newPassword)
	if err != nil {
		return err
	}
	if len(safe) > maxPasswordBytes {
		return validate.Errorf("password", "cannot exceed %d bytes", maxPasswordBytes)
	}
	digest, err := s.hasher.Hash(safe)
	if err != nil {
		return err
	}
	a.PasswordDigest = digest
	return s.repo.Save(*a)
}

// SetProfilePicture copies the image at sourcePath into the pictures
// directory as {sanitizedUsername}{ext} and stores the managed copy's
// absolute path. A blank sourcePath clears the field without touching disk.
func (s *Service) SetProfilePicture(a *Account, sourcePath string) error {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		a.ProfilePicturePath = ""
		return s.repo.Save(*a)
	}
	safe, err := validate.Require("profile picture path", trimmed)
	if err != nil {
		return err
	}
	info, err := os.Stat(safe)
	if err != nil || info.IsDir() {
		return validate.Errorf("profile picture path", "is not an existing file")
	}

	base := util.SanitizeName(a.Username)
	if base == "" {
		base = "user"
	}
	target := filepath.Join(s.picturesDir, base+util.Extension(filepath.Base(safe)))
	if err := util.CopyFile(safe, target); err != nil {
		return fmt.Errorf("failed to save profile picture: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	a.ProfilePicturePath = abs
	return s.repo.Save(*a)
}

// Delete removes an account. Admin accounts cannot be deleted through this
// path.
func (s *Service) Delete(username string) error {
	target, exists := s.repo.FindByUsername(strings.TrimSpace(username))
	if !exists {
		return ErrNotFound
	}
	if target.Role == RoleAdmin {
		return ErrAdminProtected
	}
	return s.repo.Delete(target.Username)
}

// All returns every persisted account in insertion order.
func (s *Service) All() []Account {
	return s.repo.All()
}

// CreateGuest returns an in-memory-only guest account. It is never persisted
// and its credentials are disabled (an empty digest can never verify).
func (s *Service) CreateGuest() Account {
	return Account{
		Username: "guest",
		FullName: "Guest User",
		CustomID: "guest-" + uuid.NewString()[:8],
		Role:     RoleGuest,
	}
}
