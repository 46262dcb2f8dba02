package domain

import "strings"

// Role identifies one of the two fixed participants of the ledger.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// Roles lists both participant roles in display order.
var Roles = []Role{RoleA, RoleB}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleA || r == RoleB
}

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

// ParseRole accepts "a", "B", "role_a" style spellings.
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "role_")) {
	case "A":
		return RoleA, true
	case "B":
		return RoleB, true
	}
	return "", false
}

// Participant is one of the two people sharing expenses.
type Participant struct {
	Role           Role   `json:"role"`
	TelegramUserID int64  `json:"telegramUserID"`
	DisplayName    string `json:"displayName"`
	AuditFields
}

// Name returns the display name, falling back to the role.
func (p Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "Participant " + string(p.Role)
}
