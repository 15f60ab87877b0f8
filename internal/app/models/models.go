package models

import (
	"fmt"
	"strings"
)

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin      RoleType = "ADMIN"
	RoleRegistrar  RoleType = "REGISTRAR"
	RoleInstructor RoleType = "INSTRUCTOR"
	RoleStudent    RoleType = "STUDENT"
)

// ParseRoleType parses a role name case-insensitively.
func ParseRoleType(s string) (RoleType, error) {
	switch r := RoleType(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleRegistrar, RoleInstructor, RoleStudent:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaff reports whether the role may administer academic records.
func (r RoleType) IsStaff() bool {
	return r == RoleAdmin || r == RoleRegistrar
}

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID int64
	Role   RoleType
}

// SystemActor is used for seeding and background work.
var SystemActor = Actor{Role: RoleAdmin}

// UserIDPtr returns the user ID for audit records, nil for the system actor.
func (a Actor) UserIDPtr() *int64 {
	if a.UserID <= 0 {
		return nil
	}
	id := a.UserID
	return &id
}
