package model

import "time"

// User represents an account in the appointment system. A user may hold any
// combination of roles (patient, doctor, admin); doctor-specific fields stay
// empty for everyone else.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;size:255;not null"`

	// Credential material. Never exposed in JSON.
	PasswordHash string `json:"-" gorm:"size:255;not null"`
	PasswordSalt string `json:"-" gorm:"size:255;not null"`

	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt *time.Time `json:"-"`

	IsActive            bool `json:"is_active" gorm:"default:true;index"`
	IsLocked            bool `json:"is_locked" gorm:"default:false"`
	FailedLoginAttempts int  `json:"-" gorm:"default:0"`

	// Personal information.
	FirstName   string     `json:"first_name,omitempty" gorm:"size:100"`
	LastName    string     `json:"last_name,omitempty" gorm:"size:100"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	IDNumber    string     `json:"id_number,omitempty" gorm:"size:20"`
	Address     string     `json:"address,omitempty" gorm:"size:200"`
	PhoneNumber string     `json:"phone_number,omitempty" gorm:"size:20"`

	// Doctor-specific fields.
	PracticeNumber string `json:"practice_number,omitempty" gorm:"size:50"`
	Qualification  string `json:"qualification,omitempty" gorm:"size:200"`
	Specialization string `json:"specialization,omitempty" gorm:"size:100"`

	// Relations
	UserRoles []UserRole `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// RoleNames flattens the loaded role assignments into role names.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.UserRoles))
	for _, ur := range u.UserRoles {
		if ur.Role != nil {
			names = append(names, ur.Role.Name)
		}
	}
	return names
}

// HasRole reports whether the user holds the given role ID.
func (u *User) HasRole(roleID uint) bool {
	for _, ur := range u.UserRoles {
		if ur.RoleID == roleID {
			return true
		}
	}
	return false
}
