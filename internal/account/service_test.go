package account

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stlalpha/scrollkeep/internal/validate"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := OpenRepository(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}
	svc := NewService(repo, BcryptHasher{Cost: bcrypt.MinCost}, filepath.Join(dir, "pictures"))
	return svc, repo
}

func registerTestAccount(t *testing.T, svc *Service, username, customID string) Account {
	t.Helper()
	a, err := svc.Register(username, "secret99", username+"@example.com", "0461123456", "Test Person", customID)
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	return a
}

// TestRegister_PersistsAccountWithHashedPassword verifies that registration
// stores a digest (never the raw password) and survives a reload.
func TestRegister_PersistsAccountWithHashedPassword(t *testing.T) {
	svc, repo := newTestService(t)

	created := registerTestAccount(t, svc, "mage", "MG-1")

	if created.PasswordDigest == "secret99" || created.PasswordDigest == "" {
		t.Errorf("Expected a password digest, got %q", created.PasswordDigest)
	}

	reloaded, err := OpenRepository(repo.Path())
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, exists := reloaded.FindByUsername("mage")
	if !exists {
		t.Fatal("Expected account to survive a reload")
	}
	if got != created {
		t.Errorf("Round trip mismatch: got %+v, want %+v", got, created)
	}
}

// TestRegister_RejectsDuplicateUsername verifies username uniqueness.
func TestRegister_RejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestAccount(t, svc, "mage", "MG-1")

	_, err := svc.Register("mage", "other", "other@example.com", "0461123457", "Other", "MG-2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

// TestRegister_RejectsDuplicateCustomIDCaseInsensitive verifies that custom
// IDs are unique ignoring case.
func TestRegister_RejectsDuplicateCustomIDCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestAccount(t, svc, "mage", "MG-1")

	_, err := svc.Register("sage", "other", "sage@example.com", "0461123457", "Sage", "mg-1")
	if !errors.Is(err, ErrCustomIDTaken) {
		t.Errorf("Expected ErrCustomIDTaken, got %v", err)
	}
}

// TestRegister_FieldValidation verifies blank, delimiter-bearing and
// malformed inputs are rejected with a field-naming validation error.
func TestRegister_FieldValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		label    string
		username string
		password string
		email    string
		phone    string
		fullName string
		customID string
		field    string
	}{
		{"blank username", "  ", "pw", "a@example.com", "0461123456", "Name", "C1", "username"},
		{"delimiter in username", "bad|name", "pw", "a@example.com", "0461123456", "Name", "C1", "username"},
		{"blank password", "user", "", "a@example.com", "0461123456", "Name", "C1", "password"},
		{"bad email", "user", "pw", "not-an-email", "0461123456", "Name", "C1", "email"},
		{"bad phone prefix", "user", "pw", "a@example.com", "9991234567", "Name", "C1", "phone"},
		{"short phone", "user", "pw", "a@example.com", "046112", "Name", "C1", "phone"},
		{"blank full name", "user", "pw", "a@example.com", "0461123456", "   ", "C1", "full name"},
		{"blank custom id", "user", "pw", "a@example.com", "0461123456", "Name", "", "custom ID"},
	}
	for _, tc := range cases {
		_, err := svc.Register(tc.username, tc.password, tc.email, tc.phone, tc.fullName, tc.customID)
		var vErr *validate.Error
		if !errors.As(err, &vErr) {
			t.Errorf("%s: expected a validation error, got %v", tc.label, err)
			continue
		}
		if vErr.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.label, tc.field, vErr.Field)
		}
	}
}

// TestRegister_RejectsOverlongPassword verifies a password past the bcrypt
// input limit fails as bad input naming the field, not as a hashing error.
func TestRegister_RejectsOverlongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	long := strings.Repeat("x", 73)
	_, err := svc.Register("mage", long, "mage@example.com", "0461123456", "Test Person", "MG-1")
	var vErr *validate.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected a validation error, got %v", err)
	}
	if vErr.Field != "password" {
		t.Errorf("Expected field password, got %q", vErr.Field)
	}

	if _, err := svc.Register("mage", strings.Repeat("x", 72), "mage@example.com", "0461123456", "Test Person", "MG-1"); err != nil {
		t.Errorf("Expected a 72-byte password to be accepted, got %v", err)
	}
}

// TestAuthenticate_Success verifies login with the right password, including
// surrounding whitespace on the username.
func TestAuthenticate_Success(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestAccount(t, svc, "mage", "MG-1")

	a, ok := svc.Authenticate("  mage  ", "secret99")
	if !ok {
		t.Fatal("Expected authentication to succeed")
	}
	if a.Username != "mage" {
		t.Errorf("Expected username mage, got %q", a.Username)
	}
}

// TestAuthenticate_FailureIsUniform verifies that an unknown username and a
// wrong password produce identical results, so callers cannot enumerate
// usernames.
func TestAuthenticate_FailureIsUniform(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestAccount(t, svc, "mage", "MG-1")

	unknownAccount, unknownOK := svc.Authenticate("nobody", "secret99")
	wrongAccount, wrongOK := svc.Authenticate("mage", "wrong")

	if unknownOK || wrongOK {
		t.Fatal("Expected both authentication attempts to fail")
	}
	if unknownAccount != wrongAccount {
		t.Error("Expected indistinguishable failure results")
	}
}

// TestEnsureDefaultAdmin_CreatesOnceAndIsIdempotent verifies the self-healing
// admin bootstrap.
func TestEnsureDefaultAdmin_CreatesOnceAndIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)

	if err := svc.EnsureDefaultAdmin(); err != nil {
		t.Fatalf("EnsureDefaultAdmin failed: %v", err)
	}
	admin, exists := repo.FindByUsername("admin")
	if !exists {
		t.Fatal("Expected default admin to be created")
	}
	if admin.Role != RoleAdmin {
		t.Errorf("Expected ADMIN role, got %q", admin.Role)
	}
	if _, ok := svc.Authenticate("admin", "admin123"); !ok {
		t.Error("Expected default admin credentials to authenticate")
	}

	if err := svc.EnsureDefaultAdmin(); err != nil {
		t.Fatalf("Second EnsureDefaultAdmin failed: %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("Expected exactly 1 account after repeated bootstrap, got %d", repo.Len())
	}
}

// TestEnsureDefaultAdmin_CustomIDCollisionGetsSuffix verifies the bootstrap
// does not fail when an unrelated account already holds the "admin" custom
// ID.
func TestEnsureDefaultAdmin_CustomIDCollisionGetsSuffix(t *testing.T) {
	svc, repo := newTestService(t)
	registerTestAccount(t, svc, "squatter", "admin")

	if err := svc.EnsureDefaultAdmin(); err != nil {
		t.Fatalf("EnsureDefaultAdmin failed: %v", err)
	}

	admin, exists := repo.FindByUsername("admin")
	if !exists {
		t.Fatal("Expected default admin to be created")
	}
	if !strings.HasPrefix(admin.CustomID, "admin-") {
		t.Errorf("Expected a suffixed custom ID, got %q", admin.CustomID)
	}
}

// TestDelete_AdminProtected verifies admin accounts cannot be deleted and
// remain retrievable after the attempt.
func TestDelete_AdminProtected(t *testing.T) {
	svc, repo := newTestService(t)
	if err := svc.EnsureDefaultAdmin(); err != nil {
		t.Fatalf("EnsureDefaultAdmin failed: %v", err)
	}

	if err := svc.Delete("admin"); !errors.Is(err, ErrAdminProtected) {
		t.Errorf("Expected ErrAdminProtected, got %v", err)
	}
	if _, exists := repo.FindByUsername("admin"); !exists {
		t.Error("Expected admin account to remain after failed delete")
	}
}

// TestDelete_UnknownAndGeneral verifies delete semantics for missing and
// ordinary accounts.
func TestDelete_UnknownAndGeneral(t *testing.T) {
	svc, repo := newTestService(t)
	registerTestAccount(t, svc, "mage", "MG-1")

	if err := svc.Delete("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(" mage "); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists := repo.FindByUsername("mage"); exists {
		t.Error("Expected mage to be deleted")
	}
}

// TestUpdateCustomID_UniquenessExcludesSelf verifies an account may keep its
// own custom ID but cannot take another account's.
func TestUpdateCustomID_UniquenessExcludesSelf(t *testing.T) {
	svc, _ := newTestService(t)
	mage := registerTestAccount(t, svc, "mage", "MG-1")
	registerTestAccount(t, svc, "sage", "SG-1")

	if err := svc.UpdateCustomID(&mage, "mg-1"); err != nil {
		t.Errorf("Expected keeping own custom ID (case changed) to succeed, got %v", err)
	}
	if err := svc.UpdateCustomID(&mage, "SG-1"); !errors.Is(err, ErrCustomIDTaken) {
		t.Errorf("Expected ErrCustomIDTaken, got %v", err)
	}
}

// TestUpdateFields verifies the simple field updates re-validate and persist.
func TestUpdateFields(t *testing.T) {
	svc, repo := newTestService(t)
	mage := registerTestAccount(t, svc, "mage", "MG-1")

	if err := svc.UpdateEmail(&mage, "new@example.com"); err != nil {
		t.Fatalf("UpdateEmail failed: %v", err)
	}
	if err := svc.UpdateEmail(&mage, "nope"); err == nil {
		t.Error("Expected invalid email to be rejected")
	}
	if err := svc.UpdateFullName(&mage, "Grand Mage"); err != nil {
		t.Fatalf("UpdateFullName failed: %v", err)
	}
	if err := svc.UpdatePhone(&mage, "04619876543"); err != nil {
		t.Fatalf("UpdatePhone failed: %v", err)
	}

	stored, _ := repo.FindByUsername("mage")
	if stored.Email != "new@example.com" || stored.FullName != "Grand Mage" || stored.Phone != "04619876543" {
		t.Errorf("Expected persisted updates, got %+v", stored)
	}
}

// TestChangePassword verifies the new password authenticates and the old one
// stops working.
func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	mage := registerTestAccount(t, svc, "mage", "MG-1")

	if err := svc.ChangePassword(&mage, "newsecret"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, ok := svc.Authenticate("mage", "newsecret"); !ok {
		t.Error("Expected new password to authenticate")
	}
	if _, ok := svc.Authenticate("mage", "secret99"); ok {
		t.Error("Expected old password to be rejected")
	}

	err := svc.ChangePassword(&mage, strings.Repeat("x", 73))
	var vErr *validate.Error
	if !errors.As(err, &vErr) || vErr.Field != "password" {
		t.Errorf("Expected a password validation error for an overlong password, got %v", err)
	}
}

// TestCreateGuest verifies guest accounts are in-memory only with disabled
// credentials and a randomized custom ID.
func TestCreateGuest(t *testing.T) {
	svc, repo := newTestService(t)

	guest := svc.CreateGuest()

	if guest.Role != RoleGuest {
		t.Errorf("Expected GUEST role, got %q", guest.Role)
	}
	if !strings.HasPrefix(guest.CustomID, "guest-") || len(guest.CustomID) != len("guest-")+8 {
		t.Errorf("Expected guest-XXXXXXXX custom ID, got %q", guest.CustomID)
	}
	if repo.Len() != 0 {
		t.Error("Expected guest account not to be persisted")
	}
	if _, ok := svc.Authenticate("guest", ""); ok {
		t.Error("Expected guest credentials to be disabled")
	}

	other := svc.CreateGuest()
	if other.CustomID == guest.CustomID {
		t.Error("Expected distinct custom IDs across guests")
	}
}

// TestSetProfilePicture verifies the picture is copied into the managed
// pictures directory under the sanitized username, and that a blank path
// clears the field.
func TestSetProfilePicture(t *testing.T) {
	svc, repo := newTestService(t)
	mage := registerTestAccount(t, svc, "mage", "MG-1")

	source := filepath.Join(t.TempDir(), "avatar.png")
	if err := os.WriteFile(source, []byte{0x89, 'P', 'N', 'G'}, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := svc.SetProfilePicture(&mage, source); err != nil {
		t.Fatalf("SetProfilePicture failed: %v", err)
	}
	if mage.ProfilePicturePath == "" {
		t.Fatal("Expected a stored picture path")
	}
	if filepath.Base(mage.ProfilePicturePath) != "mage.png" {
		t.Errorf("Expected managed name mage.png, got %q", filepath.Base(mage.ProfilePicturePath))
	}
	if _, err := os.Stat(mage.ProfilePicturePath); err != nil {
		t.Errorf("Expected managed picture to exist: %v", err)
	}

	if err := svc.SetProfilePicture(&mage, ""); err != nil {
		t.Fatalf("Clearing profile picture failed: %v", err)
	}
	stored, _ := repo.FindByUsername("mage")
	if stored.ProfilePicturePath != "" {
		t.Errorf("Expected cleared picture path, got %q", stored.ProfilePicturePath)
	}
}

// TestSetProfilePicture_RejectsMissingFile verifies a nonexistent source is
// rejected.
func TestSetProfilePicture_RejectsMissingFile(t *testing.T) {
	svc, _ := newTestService(t)
	mage := registerTestAccount(t, svc, "mage", "MG-1")

	err := svc.SetProfilePicture(&mage, filepath.Join(t.TempDir(), "missing.png"))
	var vErr *validate.Error
	if !errors.As(err, &vErr) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}
