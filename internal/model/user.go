package model

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles.  The ordinal is stored in
// users.role and is used for display ordering only; what a role may do is
// decided by the permission table in permission.go.
type Role uint8

const (
	RoleAnonymous Role = iota
	RoleCustomer
	RoleCashier
	RoleOperator
	RoleProcessor
	RoleManager
)

var roleNames = [...]string{"Anonymous", "Customer", "Cashier", "Operator", "Processor", "Manager"}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// IsStaff reports whether r is one of the in-store roles.
func (r Role) IsStaff() bool { return r >= RoleCashier && r <= RoleManager }

func (r Role) MarshalText() ([]byte, error) {
	if int(r) >= len(roleNames) {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRole converts a role name to its value.
func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// UserStatus gates whether an account may sign in.
type UserStatus uint8

const (
	UserActive UserStatus = iota
	UserNotActivatedYet
	UserDisabled
)

var userStatusNames = [...]string{"Active", "NotActivatedYet", "Disabled"}

func (s UserStatus) String() string {
	if int(s) < len(userStatusNames) {
		return userStatusNames[s]
	}
	return fmt.Sprintf("UserStatus(%d)", uint8(s))
}

func (s UserStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(userStatusNames) {
		return nil, fmt.Errorf("invalid user status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *UserStatus) UnmarshalText(b []byte) error {
	for i, n := range userStatusNames {
		if n == string(b) {
			*s = UserStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown user status %q", string(b))
}

// User represents an application user record as stored in the `users`
// table.  PasswordHash and OTPSecret are both optional because an account
// may sign in with either a password or a mailed one-time code.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – full name shown to staff.
//	Email        – unique email address, stored lower case.
//	Phone        – optional unique phone number.
//	PasswordHash – bcrypt hash, nil for code-only accounts.
//	OTPSecret    – base32 TOTP secret used for login codes.
//	Role         – role ordinal.
//	Status       – account status ordinal.
type User struct {
	ID           uint64     `json:"id"`         // users.id
	Name         string     `json:"name"`       // users.name
	Email        string     `json:"email"`      // users.email
	Phone        *string    `json:"phone"`      // users.phone
	PasswordHash *string    `json:"-"`          // users.password_hash
	OTPSecret    *string    `json:"-"`          // users.otp_secret
	Role         Role       `json:"role"`       // users.role
	Status       UserStatus `json:"status"`     // users.status
	CreatedAt    time.Time  `json:"created_at"` // users.created_at
	UpdatedAt    time.Time  `json:"updated_at"` // users.updated_at
}

// Anonymous is the identity used when no user is signed in.
func Anonymous() User { return User{Role: RoleAnonymous} }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
