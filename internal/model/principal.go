package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleRequester  UserRole = "REQUESTER"
	UserRoleTechnician UserRole = "TECHNICIAN"
	UserRoleAdmin      UserRole = "ADMIN"
)

type Principal struct {
	UserID       uuid.UUID
	Role         UserRole
	TechnicianID *uuid.UUID
}

func (p Principal) IsRequester() bool {
	return p.Role == UserRoleRequester
}

func (p Principal) IsTechnician() bool {
	return p.Role == UserRoleTechnician && p.TechnicianID != nil
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}
