// Package account implements the user registry: flat-file persistence of
// accounts plus the service rules for registration, login and profile
// maintenance.
package account

// Role controls what an account may do.
type Role string

const (
	RoleGeneral Role = "GENERAL"
	RoleAdmin   Role = "ADMIN"
	// RoleGuest accounts are constructed in memory only and never persisted.
	RoleGuest Role = "GUEST"
)

// ParseRole maps a stored role token to a Role. Unknown tokens fall back to
// GENERAL so old or hand-edited files still load.
func ParseRole(token string) Role {
	switch Role(token) {
	case RoleAdmin:
		return RoleAdmin
	case RoleGuest:
		return RoleGuest
	default:
		return RoleGeneral
	}
}

// Account is a registered user. Username is the stable identity key and never
// changes after creation.
type Account struct {
	Username           string
	PasswordDigest     string
	Email              string
	Phone              string
	FullName           string
	CustomID           string
	Role               Role
	ProfilePicturePath string
}

// codec maps accounts onto delimited lines:
//
//	username|digest|email|phone|fullName|customId|role|profilePicturePath
//
// Two legacy shapes are accepted on read: 6 fields (no full name, no
// picture; full name defaults to the username) and 7 fields (no picture).
type codec struct{}

func (codec) Key(a Account) string {
	return a.Username
}

func (codec) Encode(a Account) []string {
	return []string{
		a.Username,
		a.PasswordDigest,
		a.Email,
		a.Phone,
		a.FullName,
		a.CustomID,
		string(a.Role),
		a.ProfilePicturePath,
	}
}

func (codec) Decode(fields []string) (Account, bool) {
	if len(fields) < 6 {
		return Account{}, false
	}
	a := Account{
		Username:       fields[0],
		PasswordDigest: fields[1],
		Email:          fields[2],
		Phone:          fields[3],
	}
	if len(fields) == 6 {
		// Old shape: username|digest|email|phone|customId|role
		a.FullName = a.Username
		a.CustomID = fields[4]
		a.Role = ParseRole(fields[5])
		return a, true
	}
	a.FullName = fields[4]
	a.CustomID = fields[5]
	a.Role = ParseRole(fields[6])
	if len(fields) >= 8 {
		a.ProfilePicturePath = fields[7]
	}
	return a, true
}
