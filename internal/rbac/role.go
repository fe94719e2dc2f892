// Package rbac holds the closed role and page-category enumerations and the
// capability matrix that maps one onto the other.
package rbac

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "educonnect/internal/errors"
)

// Role is the single role a principal holds. The zero value is not a valid role.
type Role int

const (
	roleInvalid Role = iota
	ClientUser
	Admin
	SuperAdmin
)

// Roles lists every valid role in privilege-neutral order.
var Roles = []Role{ClientUser, Admin, SuperAdmin}

// Stored role labels as they appear on profile documents.
const (
	labelClientUser = "Client User"
	labelAdmin      = "Admin"
	labelSuperAdmin = "Super Admin"
)

func (r Role) String() string {
	switch r {
	case ClientUser:
		return labelClientUser
	case Admin:
		return labelAdmin
	case SuperAdmin:
		return labelSuperAdmin
	default:
		return "invalid"
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == ClientUser || r == Admin || r == SuperAdmin
}

// IsAdministrator reports whether r is Admin or SuperAdmin.
func (r Role) IsAdministrator() bool {
	return r == Admin || r == SuperAdmin
}

// ParseRole maps a stored role label onto a Role. Matching ignores case, spaces,
// dashes and underscores so "SuperAdmin", "super_admin" and "Super Admin" agree.
// An empty label returns ClientUser with ok=false so callers can log the fallback.
func ParseRole(label string) (role Role, ok bool, err error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(label))
	switch norm {
	case "":
		return ClientUser, false, nil
	case "clientuser", "client", "student":
		return ClientUser, true, nil
	case "admin", "administrator":
		return Admin, true, nil
	case "superadmin":
		return SuperAdmin, true, nil
	default:
		return roleInvalid, false, fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, label)
	}
}

// MarshalJSON encodes the stored label.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts any label ParseRole accepts, except the empty string.
func (r *Role) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, ok, err := ParseRole(label)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: empty", apperrors.ErrInvalidRole)
	}
	*r = parsed
	return nil
}
