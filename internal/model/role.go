package model

// Role is the caller's role inside a branch, carried in the JWT.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// ConcessionRoles may read and author concessions.
var ConcessionRoles = []Role{RoleAdmin, RoleParent, RoleTeacher}
