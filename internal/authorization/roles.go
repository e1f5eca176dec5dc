package authorization

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

var validRoles = map[UserRole]struct{}{
	RoleAdmin:   {},
	RoleTeacher: {},
	RoleStudent: {},
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

func (r UserRole) Value() (driver.Value, error) {
	if r == "" {
		return string(RoleStudent), nil
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid user role: %q", r)
	}
	return string(r), nil
}

func (r *UserRole) Scan(value interface{}) error {
	if value == nil {
		*r = RoleStudent
		return nil
	}

	role, ok := ParseUserRole(value)
	if !ok {
		return fmt.Errorf("invalid user role: %v", value)
	}
	*r = role
	return nil
}

type Permission string

const (
	PermissionManageCatalog  Permission = "manage_catalog"
	PermissionManageQuizzes  Permission = "manage_quizzes"
	PermissionConfirmPayment Permission = "confirm_payment"
	PermissionIssueCodes     Permission = "issue_codes"
	PermissionManageWallet   Permission = "manage_wallet"
)

var rolePermissions = map[UserRole]map[Permission]struct{}{
	RoleAdmin: {
		PermissionManageCatalog:  {},
		PermissionManageQuizzes:  {},
		PermissionConfirmPayment: {},
		PermissionIssueCodes:     {},
		PermissionManageWallet:   {},
	},
	RoleTeacher: {
		PermissionManageCatalog: {},
		PermissionManageQuizzes: {},
	},
	RoleStudent: {},
}

func RoleHasPermission(role UserRole, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

func ParseUserRole(value interface{}) (UserRole, bool) {
	var raw string
	switch v := value.(type) {
	case UserRole:
		raw = string(v)
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return "", false
	}
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", false
	}
	return role, true
}
