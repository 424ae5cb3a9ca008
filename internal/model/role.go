package model

import "time"

// Well-known role IDs seeded at migration time.
const (
	RoleAdmin   uint = 1
	RoleDoctor  uint = 2
	RolePatient uint = 3
)

// Role is a named permission group. The set is fixed and seeded.
type Role struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;size:50;not null"`
	Description string `json:"description,omitempty" gorm:"size:255"`

	UserRoles []UserRole `json:"-" gorm:"foreignKey:RoleID"`
}

// UserRole links a user to a role. A (user, role) pair exists at most once.
type UserRole struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_role"`
	RoleID     uint      `json:"role_id" gorm:"not null;uniqueIndex:idx_user_role"`
	AssignedAt time.Time `json:"assigned_at"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
	Role *Role `json:"-" gorm:"foreignKey:RoleID"`
}

// SeedRoles returns the fixed role set the system ships with.
func SeedRoles() []Role {
	return []Role{
		{ID: RoleAdmin, Name: "Admin", Description: "System administrator"},
		{ID: RoleDoctor, Name: "Doctor", Description: "Medical practitioner"},
		{ID: RolePatient, Name: "Patient", Description: "Registered patient"},
	}
}
