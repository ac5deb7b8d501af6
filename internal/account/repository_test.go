package account

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAccountsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// TestOpenRepository_LegacySixFieldLine verifies that the old line shape
// without a full-name field loads with the full name defaulted to the
// username and no profile picture.
func TestOpenRepository_LegacySixFieldLine(t *testing.T) {
	path := writeAccountsFile(t, "mage|digest123|mage@example.com|0461123456|MG-1|GENERAL\n")

	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	a, exists := repo.FindByUsername("mage")
	if !exists {
		t.Fatal("Expected legacy account to load")
	}
	if a.FullName != "mage" {
		t.Errorf("Expected full name to default to username, got %q", a.FullName)
	}
	if a.CustomID != "MG-1" {
		t.Errorf("Expected custom ID MG-1, got %q", a.CustomID)
	}
	if a.Role != RoleGeneral {
		t.Errorf("Expected GENERAL role, got %q", a.Role)
	}
	if a.ProfilePicturePath != "" {
		t.Errorf("Expected no profile picture, got %q", a.ProfilePicturePath)
	}
}

// TestOpenRepository_CurrentEightFieldLine verifies the full current shape
// including the profile picture path.
func TestOpenRepository_CurrentEightFieldLine(t *testing.T) {
	path := writeAccountsFile(t, "sage|d|sage@example.com|0461999999|Sage Person|SG-1|ADMIN|/pics/sage.png\n")

	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	a, exists := repo.FindByUsername("sage")
	if !exists {
		t.Fatal("Expected account to load")
	}
	if a.FullName != "Sage Person" {
		t.Errorf("Expected full name 'Sage Person', got %q", a.FullName)
	}
	if a.Role != RoleAdmin {
		t.Errorf("Expected ADMIN role, got %q", a.Role)
	}
	if a.ProfilePicturePath != "/pics/sage.png" {
		t.Errorf("Expected profile picture path, got %q", a.ProfilePicturePath)
	}
}

// TestOpenRepository_UnknownRoleDefaultsToGeneral verifies that an
// unrecognized role token does not fail the load.
func TestOpenRepository_UnknownRoleDefaultsToGeneral(t *testing.T) {
	path := writeAccountsFile(t, "odd|d|odd@example.com|0461123456|Odd One|OD-1|WIZARD|\n")

	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	a, exists := repo.FindByUsername("odd")
	if !exists {
		t.Fatal("Expected account to load")
	}
	if a.Role != RoleGeneral {
		t.Errorf("Expected unknown role to default to GENERAL, got %q", a.Role)
	}
}

// TestFindByCustomID_CaseInsensitive verifies the custom-ID lookup ignores
// case.
func TestFindByCustomID_CaseInsensitive(t *testing.T) {
	path := writeAccountsFile(t, "mage|d|mage@example.com|0461123456|Mage|Mg-One|GENERAL|\n")

	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	if _, exists := repo.FindByCustomID("MG-ONE"); !exists {
		t.Error("Expected case-insensitive custom-ID match")
	}
	if _, exists := repo.FindByCustomID("mg-one"); !exists {
		t.Error("Expected lowercase custom-ID match")
	}
	if _, exists := repo.FindByCustomID("unrelated"); exists {
		t.Error("Did not expect a match for an unknown custom ID")
	}
}

// TestHasAdmin verifies admin detection across the collection.
func TestHasAdmin(t *testing.T) {
	path := writeAccountsFile(t, "a|d|a@example.com|0461123456|A|A1|GENERAL|\nb|d|b@example.com|0461123457|B|B1|ADMIN|\n")

	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}
	if !repo.HasAdmin() {
		t.Error("Expected HasAdmin to be true")
	}

	emptyRepo, err := OpenRepository(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}
	if emptyRepo.HasAdmin() {
		t.Error("Expected HasAdmin to be false for an empty store")
	}
}
