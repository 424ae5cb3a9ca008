package model

import "time"

// UserView is the caller-facing projection of a user: credential material is
// stripped and role assignments are flattened to names. It is also the blob
// the session store keeps for the lifetime of a client session.
type UserView struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsLocked    bool       `json:"is_locked"`
	Roles       []string   `json:"roles"`

	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	IDNumber       string     `json:"id_number,omitempty"`
	Address        string     `json:"address,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	PracticeNumber string     `json:"practice_number,omitempty"`
	Qualification  string     `json:"qualification,omitempty"`
	Specialization string     `json:"specialization,omitempty"`
}

// View projects a user (with loaded roles) into its caller-facing form.
func (u *User) View() *UserView {
	return &UserView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
		IsActive:       u.IsActive,
		IsLocked:       u.IsLocked,
		Roles:          u.RoleNames(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DateOfBirth:    u.DateOfBirth,
		IDNumber:       u.IDNumber,
		Address:        u.Address,
		PhoneNumber:    u.PhoneNumber,
		PracticeNumber: u.PracticeNumber,
		Qualification:  u.Qualification,
		Specialization: u.Specialization,
	}
}
