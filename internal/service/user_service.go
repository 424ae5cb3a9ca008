package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chessbick/doctor-appointment/internal/auth"
	"github.com/chessbick/doctor-appointment/internal/cache"
	domainerrors "github.com/chessbick/doctor-appointment/internal/errors"
	"github.com/chessbick/doctor-appointment/internal/metrics"
	"github.com/chessbick/doctor-appointment/internal/model"
	"github.com/chessbick/doctor-appointment/internal/repository"
)

const (
	// maxFailedLogins is the failed-attempt threshold that locks an account.
	maxFailedLogins = 5

	userCacheTTL = 5 * time.Minute
)

// RegisterInput carries everything needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	RoleIDs  []uint

	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	IDNumber       string
	Address        string
	PhoneNumber    string
	PracticeNumber string
	Qualification  string
	Specialization string
}

// UpdateInput carries a partial user update. Nil/empty fields are left untouched.
type UpdateInput struct {
	ID       uint
	Username string
	Email    string
	IsActive *bool
	IsLocked *bool
	RoleIDs  []uint

	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	IDNumber       string
	Address        string
	PhoneNumber    string
	PracticeNumber string
	Qualification  string
	Specialization string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User      *model.UserView `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// UserService orchestrates account lifecycle: registration, login with
// lockout, password changes, role assignment and user CRUD.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*model.UserView, error)
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	UpdateUser(ctx context.Context, in UpdateInput) (*model.UserView, error)
	DeleteUser(ctx context.Context, id uint) error
	GetUser(ctx context.Context, id uint) (*model.UserView, error)
	ListUsers(ctx context.Context) ([]*model.UserView, error)
	ListUsersByRole(ctx context.Context, roleName string) ([]*model.UserView, error)
	AssignRole(ctx context.Context, userID, roleID uint) error
	RemoveRole(ctx context.Context, userID, roleID uint) error
	Lock(ctx context.Context, userID uint) error
	Unlock(ctx context.Context, userID uint) error
}

type userService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	hasher   *auth.PasswordHasher
	jwt      *auth.JWTService
	sessions auth.SessionStore
	cache    *cache.Client
	log      zerolog.Logger
}

// NewUserService wires the account service with its collaborators.
func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	hasher *auth.PasswordHasher,
	jwt *auth.JWTService,
	sessions auth.SessionStore,
	cacheClient *cache.Client,
	log zerolog.Logger,
) UserService {
	return &userService{
		users:    users,
		roles:    roles,
		hasher:   hasher,
		jwt:      jwt,
		sessions: sessions,
		cache:    cacheClient,
		log:      log,
	}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// Register creates a user with hashed credentials and assigns the requested roles.
func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.UserView, error) {
	taken, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, domainerrors.ErrUsernameTaken
	}

	taken, err = s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, domainerrors.ErrEmailTaken
	}

	// Resolve the requested roles before creating the user row: an unknown
	// role ID must not leave a role-less account behind. De-duplicating here
	// keeps a repeated ID from violating the unique (user, role) constraint.
	roleIDs := make([]uint, 0, len(in.RoleIDs))
	seen := make(map[uint]bool, len(in.RoleIDs))
	for _, roleID := range in.RoleIDs {
		if seen[roleID] {
			continue
		}
		seen[roleID] = true
		if _, err := s.roles.FindByID(ctx, roleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domainerrors.ErrRoleNotFound
			}
			return nil, fmt.Errorf("find role: %w", err)
		}
		roleIDs = append(roleIDs, roleID)
	}

	hash, salt, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		PasswordSalt:   salt,
		IsActive:       true,
		IsLocked:       false,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		DateOfBirth:    in.DateOfBirth,
		IDNumber:       in.IDNumber,
		Address:        in.Address,
		PhoneNumber:    in.PhoneNumber,
		PracticeNumber: in.PracticeNumber,
		Qualification:  in.Qualification,
		Specialization: in.Specialization,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	for _, roleID := range roleIDs {
		link := &model.UserRole{UserID: user.ID, RoleID: roleID, AssignedAt: time.Now()}
		if err := s.users.AssignRole(ctx, link); err != nil {
			return nil, fmt.Errorf("assign role %d: %w", roleID, err)
		}
	}

	created, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load created user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	s.log.Info().Uint("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created.View(), nil
}

// Login authenticates an identifier (username or email) and password.
// Unknown users and wrong passwords share one error so accounts cannot be
// enumerated; locked and inactive accounts are reported as such.
func (s *userService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domainerrors.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.IsLocked {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return nil, domainerrors.ErrAccountLocked
	}
	if !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		return nil, domainerrors.ErrAccountInactive
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if err := s.users.IncrementFailedLogins(ctx, user.ID, maxFailedLogins); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("record failed login")
		}
		if user.FailedLoginAttempts+1 >= maxFailedLogins {
			metrics.LockoutsTotal.Inc()
			s.log.Warn().Uint("user_id", user.ID).Msg("account locked after repeated failed logins")
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		// The response stays generic even on the attempt that locks the account.
		return nil, domainerrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now

	view := user.View()
	token, expiresAt, err := s.jwt.GenerateSessionToken(user.ID, user.Username, view.Roles)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	if err := s.sessions.Put(ctx, user.ID, view, auth.SessionTokenExpiry); err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("store session")
	}

	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Uint("user_id", user.ID).Msg("login succeeded")

	return &LoginResult{User: view, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout discards the user's session.
func (s *userService) Logout(ctx context.Context, userID uint) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	return s.sessions.Clear(ctx, userID)
}

// ChangePassword verifies the current password and stores a new hash.
func (s *userService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domainerrors.ErrIncorrectPassword
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user.PasswordHash = hash
	user.PasswordSalt = salt
	user.PasswordChangedAt = &now

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	s.log.Info().Uint("user_id", userID).Msg("password changed")
	return nil
}

// UpdateUser applies a partial update, re-checking uniqueness on username and
// email changes and reconciling the role set against the requested IDs.
func (s *userService) UpdateUser(ctx context.Context, in UpdateInput) (*model.UserView, error) {
	user, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if in.Username != "" && in.Username != user.Username {
		taken, err := s.users.UsernameExists(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return nil, domainerrors.ErrUsernameTaken
		}
		user.Username = in.Username
	}

	if in.Email != "" && in.Email != user.Email {
		taken, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, domainerrors.ErrEmailTaken
		}
		user.Email = in.Email
	}

	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}
	if in.DateOfBirth != nil {
		user.DateOfBirth = in.DateOfBirth
	}
	if in.IDNumber != "" {
		user.IDNumber = in.IDNumber
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.PhoneNumber != "" {
		user.PhoneNumber = in.PhoneNumber
	}
	if in.PracticeNumber != "" {
		user.PracticeNumber = in.PracticeNumber
	}
	if in.Qualification != "" {
		user.Qualification = in.Qualification
	}
	if in.Specialization != "" {
		user.Specialization = in.Specialization
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsLocked != nil {
		user.IsLocked = *in.IsLocked
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// An empty role list is ignored rather than treated as "strip every
	// role"; roles change only when at least one ID is requested.
	if len(in.RoleIDs) > 0 {
		if err := s.reconcileRoles(ctx, user, in.RoleIDs); err != nil {
			return nil, err
		}
	}

	updated, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load updated user: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return updated.View(), nil
}

// reconcileRoles diffs current assignments against the requested set, adding
// missing links and removing stale ones instead of clearing and re-inserting.
func (s *userService) reconcileRoles(ctx context.Context, user *model.User, requested []uint) error {
	want := make(map[uint]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}

	for _, ur := range user.UserRoles {
		if !want[ur.RoleID] {
			if _, err := s.users.RemoveRole(ctx, user.ID, ur.RoleID); err != nil {
				return fmt.Errorf("remove role %d: %w", ur.RoleID, err)
			}
		}
	}
	for id := range want {
		if !user.HasRole(id) {
			if err := s.assignRoleLink(ctx, user.ID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteUser removes the user and its role assignments.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.log.Info().Uint("user_id", id).Msg("user deleted")
	return nil
}

// GetUser returns the user view, served from cache when possible.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.UserView, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.UserView
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	view := user.View()
	if payload, err := json.Marshal(view); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return view, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*model.UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]*model.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return views, nil
}

// ListUsersByRole resolves the role by name; unknown names are an error, not
// a silent fallback to some default role.
func (s *userService) ListUsersByRole(ctx context.Context, roleName string) ([]*model.UserView, error) {
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}

	users, err := s.users.ListByRoleID(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	views := make([]*model.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return views, nil
}

// AssignRole adds a role to the user. Assigning a role the user already
// holds is a no-op that still succeeds.
func (s *userService) AssignRole(ctx context.Context, userID, roleID uint) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.HasRole(roleID) {
		return nil
	}
	if err := s.assignRoleLink(ctx, userID, roleID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	return nil
}

func (s *userService) assignRoleLink(ctx context.Context, userID, roleID uint) error {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrRoleNotFound
		}
		return fmt.Errorf("find role: %w", err)
	}
	link := &model.UserRole{UserID: userID, RoleID: roleID, AssignedAt: time.Now()}
	if err := s.users.AssignRole(ctx, link); err != nil {
		return fmt.Errorf("assign role %d: %w", roleID, err)
	}
	return nil
}

// RemoveRole removes a role from the user; a missing assignment is an error.
func (s *userService) RemoveRole(ctx context.Context, userID, roleID uint) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	removed, err := s.users.RemoveRole(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	if !removed {
		return domainerrors.ErrRoleNotFound
	}
	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	return nil
}

// Lock flags the account so every login attempt is rejected until unlocked.
func (s *userService) Lock(ctx context.Context, userID uint) error {
	return s.setLocked(ctx, userID, true)
}

// Unlock clears the locked flag and resets the failed-login counter.
func (s *userService) Unlock(ctx context.Context, userID uint) error {
	return s.setLocked(ctx, userID, false)
}

func (s *userService) setLocked(ctx context.Context, userID uint, locked bool) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.users.SetLocked(ctx, userID, locked); err != nil {
		return fmt.Errorf("set locked: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	s.log.Info().Uint("user_id", userID).Bool("locked", locked).Msg("lock state changed")
	return nil
}
