package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chessbick/doctor-appointment/internal/model"
)

// UserRepository defines user persistence operations, including the role
// links owned by the user.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	ListByRoleID(ctx context.Context, roleID uint) ([]model.User, error)

	// IncrementFailedLogins atomically bumps the failed-login counter and
	// flips the locked flag once the counter reaches lockThreshold. A single
	// conditional UPDATE keeps concurrent failures from racing the counter.
	IncrementFailedLogins(ctx context.Context, id uint, lockThreshold int) error
	// RecordLogin resets the failed-login counter and stamps the login time.
	RecordLogin(ctx context.Context, id uint, at time.Time) error
	// SetLocked sets the locked flag; unlocking also resets the counter.
	SetLocked(ctx context.Context, id uint, locked bool) error

	AssignRole(ctx context.Context, link *model.UserRole) error
	RemoveRole(ctx context.Context, userID, roleID uint) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete removes the user and its role assignments in one transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("UserRoles.Role").
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("UserRoles.Role").
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Preload("UserRoles.Role").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListByRoleID(ctx context.Context, roleID uint) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Preload("UserRoles.Role").
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IncrementFailedLogins relies on the database evaluating the locked flag
// against the pre-increment counter, so the check-and-lock is atomic even
// under concurrent failed attempts.
func (r *userRepository) IncrementFailedLogins(ctx context.Context, id uint, lockThreshold int) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE users SET is_locked = is_locked OR failed_login_attempts + 1 >= ?, "+
			"failed_login_attempts = failed_login_attempts + 1 WHERE id = ?",
		lockThreshold, id,
	).Error
}

func (r *userRepository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"last_login_at":         at,
		}).Error
}

func (r *userRepository) SetLocked(ctx context.Context, id uint, locked bool) error {
	updates := map[string]interface{}{"is_locked": locked}
	if !locked {
		updates["failed_login_attempts"] = 0
	}
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRepository) AssignRole(ctx context.Context, link *model.UserRole) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *userRepository) RemoveRole(ctx context.Context, userID, roleID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
