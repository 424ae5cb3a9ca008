package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chessbick/doctor-appointment/internal/auth"
	domainerrors "github.com/chessbick/doctor-appointment/internal/errors"
	"github.com/chessbick/doctor-appointment/internal/model"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) ListByRoleID(ctx context.Context, roleID uint) ([]model.User, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) IncrementFailedLogins(ctx context.Context, id uint, lockThreshold int) error {
	args := m.Called(ctx, id, lockThreshold)
	return args.Error(0)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) SetLocked(ctx context.Context, id uint, locked bool) error {
	args := m.Called(ctx, id, locked)
	return args.Error(0)
}

func (m *MockUserRepository) AssignRole(ctx context.Context, link *model.UserRole) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveRole(ctx context.Context, userID, roleID uint) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}

// MockRoleRepository is a mock implementation of repository.RoleRepository.
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context) ([]model.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *MockRoleRepository) Seed(ctx context.Context, roles []model.Role) error {
	args := m.Called(ctx, roles)
	return args.Error(0)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Put(ctx context.Context, userID uint, view *model.UserView, ttl time.Duration) error {
	args := m.Called(ctx, userID, view, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, userID uint) (*model.UserView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserView), args.Error(1)
}

func (m *MockSessionStore) Clear(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

const testPassword = "Sup3rSecret!"

var (
	credsOnce sync.Once
	credsHash string
	credsSalt string
)

// testCredentials derives the PBKDF2 hash for testPassword once; deriving it
// per test would dominate the suite's runtime.
func testCredentials(t *testing.T) (hash, salt string) {
	t.Helper()
	credsOnce.Do(func() {
		var err error
		credsHash, credsSalt, err = auth.NewPasswordHasher().Hash(testPassword)
		if err != nil {
			t.Fatalf("hash test password: %v", err)
		}
	})
	return credsHash, credsSalt
}

func newTestService(users *MockUserRepository, roles *MockRoleRepository, sessions *MockSessionStore) UserService {
	return NewUserService(
		users,
		roles,
		auth.NewPasswordHasher(),
		auth.NewJWTService("test-secret"),
		sessions,
		nil, // cache degrades to a no-op when absent
		zerolog.Nop(),
	)
}

func doctorRole() *model.Role {
	return &model.Role{ID: model.RoleDoctor, Name: "Doctor"}
}

func activeUser(t *testing.T) *model.User {
	hash, salt := testCredentials(t)
	return &model.User{
		ID:           7,
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: hash,
		PasswordSalt: salt,
		IsActive:     true,
		UserRoles: []model.UserRole{
			{UserID: 7, RoleID: model.RoleDoctor, Role: doctorRole()},
		},
	}
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockUserRepository, *MockRoleRepository)
		expectedError error
		check         func(*testing.T, *model.UserView)
	}{
		{
			name: "successful registration with doctor role",
			setupMocks: func(users *MockUserRepository, roles *MockRoleRepository) {
				users.On("UsernameExists", mock.Anything, "alice").Return(false, nil)
				users.On("EmailExists", mock.Anything, "alice@x.com").Return(false, nil)
				users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
					Run(func(args mock.Arguments) {
						args.Get(1).(*model.User).ID = 7
					}).Return(nil)
				roles.On("FindByID", mock.Anything, model.RoleDoctor).Return(doctorRole(), nil)
				users.On("AssignRole", mock.Anything, mock.AnythingOfType("*model.UserRole")).Return(nil)
				users.On("FindByID", mock.Anything, uint(7)).Return(&model.User{
					ID:       7,
					Username: "alice",
					Email:    "alice@x.com",
					IsActive: true,
					UserRoles: []model.UserRole{
						{UserID: 7, RoleID: model.RoleDoctor, Role: doctorRole()},
					},
				}, nil)
			},
			check: func(t *testing.T, view *model.UserView) {
				assert.Equal(t, uint(7), view.ID)
				assert.Equal(t, []string{"Doctor"}, view.Roles)
				assert.True(t, view.IsActive)
				assert.False(t, view.IsLocked)
			},
		},
		{
			name: "duplicate username",
			setupMocks: func(users *MockUserRepository, roles *MockRoleRepository) {
				users.On("UsernameExists", mock.Anything, "alice").Return(true, nil)
			},
			expectedError: domainerrors.ErrUsernameTaken,
		},
		{
			name: "duplicate email",
			setupMocks: func(users *MockUserRepository, roles *MockRoleRepository) {
				users.On("UsernameExists", mock.Anything, "alice").Return(false, nil)
				users.On("EmailExists", mock.Anything, "alice@x.com").Return(true, nil)
			},
			expectedError: domainerrors.ErrEmailTaken,
		},
		{
			name: "unknown role id",
			setupMocks: func(users *MockUserRepository, roles *MockRoleRepository) {
				users.On("UsernameExists", mock.Anything, "alice").Return(false, nil)
				users.On("EmailExists", mock.Anything, "alice@x.com").Return(false, nil)
				roles.On("FindByID", mock.Anything, model.RoleDoctor).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: domainerrors.ErrRoleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			roles := new(MockRoleRepository)
			tt.setupMocks(users, roles)

			svc := newTestService(users, roles, new(MockSessionStore))
			view, err := svc.Register(context.Background(), RegisterInput{
				Username: "alice",
				Email:    "alice@x.com",
				Password: testPassword,
				RoleIDs:  []uint{model.RoleDoctor},
			})

			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, view)
				users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				tt.check(t, view)
			}
			users.AssertExpectations(t)
			roles.AssertExpectations(t)
		})
	}
}

func TestUserService_Register_DuplicateCreatesNothing(t *testing.T) {
	users := new(MockUserRepository)
	users.On("UsernameExists", mock.Anything, "alice").Return(true, nil)

	svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "alice@x.com", Password: testPassword,
	})

	require.ErrorIs(t, err, domainerrors.ErrUsernameTaken)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Register_RepeatedRoleIDAssignedOnce(t *testing.T) {
	users := new(MockUserRepository)
	roles := new(MockRoleRepository)

	users.On("UsernameExists", mock.Anything, "alice").Return(false, nil)
	users.On("EmailExists", mock.Anything, "alice@x.com").Return(false, nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.User).ID = 7
		}).Return(nil)
	roles.On("FindByID", mock.Anything, model.RoleDoctor).Return(doctorRole(), nil)
	users.On("AssignRole", mock.Anything, mock.AnythingOfType("*model.UserRole")).Return(nil)
	users.On("FindByID", mock.Anything, uint(7)).Return(&model.User{
		ID:       7,
		Username: "alice",
		Email:    "alice@x.com",
		IsActive: true,
		UserRoles: []model.UserRole{
			{UserID: 7, RoleID: model.RoleDoctor, Role: doctorRole()},
		},
	}, nil)

	svc := newTestService(users, roles, new(MockSessionStore))
	view, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		Password: testPassword,
		RoleIDs:  []uint{model.RoleDoctor, model.RoleDoctor},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor"}, view.Roles)
	// A repeated ID collapses to one link; a second insert would trip the
	// unique (user, role) constraint.
	users.AssertNumberOfCalls(t, "AssignRole", 1)
}

func TestUserService_Login_Success(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionStore)
	user := activeUser(t)

	users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(user, nil)
	users.On("RecordLogin", mock.Anything, uint(7), mock.AnythingOfType("time.Time")).Return(nil)
	sessions.On("Put", mock.Anything, uint(7), mock.AnythingOfType("*model.UserView"), auth.SessionTokenExpiry).Return(nil)

	svc := newTestService(users, new(MockRoleRepository), sessions)
	result, err := svc.Login(context.Background(), "alice", testPassword)

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), result.ExpiresAt, 5*time.Second)
	assert.Equal(t, []string{"Doctor"}, result.User.Roles)
	assert.NotNil(t, result.User.LastLoginAt)
	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestUserService_Login_Failures(t *testing.T) {
	tests := []struct {
		name          string
		identifier    string
		password      string
		setupMocks    func(*testing.T, *MockUserRepository)
		expectedError error
	}{
		{
			name:       "unknown identifier is indistinguishable from wrong password",
			identifier: "nobody",
			password:   testPassword,
			setupMocks: func(t *testing.T, users *MockUserRepository) {
				users.On("FindByUsernameOrEmail", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: domainerrors.ErrInvalidCredentials,
		},
		{
			name:       "wrong password increments the failure counter",
			identifier: "alice",
			password:   "wrong-password",
			setupMocks: func(t *testing.T, users *MockUserRepository) {
				users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(activeUser(t), nil)
				users.On("IncrementFailedLogins", mock.Anything, uint(7), maxFailedLogins).Return(nil)
			},
			expectedError: domainerrors.ErrInvalidCredentials,
		},
		{
			name:       "fifth failure stays a generic invalid-credentials response",
			identifier: "alice",
			password:   "wrong-password",
			setupMocks: func(t *testing.T, users *MockUserRepository) {
				user := activeUser(t)
				user.FailedLoginAttempts = maxFailedLogins - 1
				users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(user, nil)
				users.On("IncrementFailedLogins", mock.Anything, uint(7), maxFailedLogins).Return(nil)
			},
			expectedError: domainerrors.ErrInvalidCredentials,
		},
		{
			name:       "locked account rejects even the correct password",
			identifier: "alice",
			password:   testPassword,
			setupMocks: func(t *testing.T, users *MockUserRepository) {
				user := activeUser(t)
				user.IsLocked = true
				user.FailedLoginAttempts = maxFailedLogins
				users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(user, nil)
			},
			expectedError: domainerrors.ErrAccountLocked,
		},
		{
			name:       "inactive account",
			identifier: "alice",
			password:   testPassword,
			setupMocks: func(t *testing.T, users *MockUserRepository) {
				user := activeUser(t)
				user.IsActive = false
				users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(user, nil)
			},
			expectedError: domainerrors.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			tt.setupMocks(t, users)

			svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
			result, err := svc.Login(context.Background(), tt.identifier, tt.password)

			require.ErrorIs(t, err, tt.expectedError)
			assert.Nil(t, result)
			users.AssertExpectations(t)
			users.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUserService_Login_LockedDoesNotTouchCounter(t *testing.T) {
	users := new(MockUserRepository)
	user := activeUser(t)
	user.IsLocked = true
	users.On("FindByUsernameOrEmail", mock.Anything, "alice").Return(user, nil)

	svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
	_, err := svc.Login(context.Background(), "alice", "wrong-password")

	require.ErrorIs(t, err, domainerrors.ErrAccountLocked)
	users.AssertNotCalled(t, "IncrementFailedLogins", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_ChangePassword(t *testing.T) {
	t.Run("wrong current password leaves the hash untouched", func(t *testing.T) {
		users := new(MockUserRepository)
		user := activeUser(t)
		users.On("FindByID", mock.Anything, uint(7)).Return(user, nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		err := svc.ChangePassword(context.Background(), 7, "wrong-password", "NewPassw0rd!")

		require.ErrorIs(t, err, domainerrors.ErrIncorrectPassword)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

		// The old password must still verify.
		ok, verr := auth.NewPasswordHasher().Verify(testPassword, user.PasswordHash, user.PasswordSalt)
		require.NoError(t, verr)
		assert.True(t, ok)
	})

	t.Run("success rehashes and stamps the change time", func(t *testing.T) {
		users := new(MockUserRepository)
		user := activeUser(t)
		oldHash := user.PasswordHash
		users.On("FindByID", mock.Anything, uint(7)).Return(user, nil)
		users.On("Update", mock.Anything, user).Return(nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		err := svc.ChangePassword(context.Background(), 7, testPassword, "NewPassw0rd!")

		require.NoError(t, err)
		assert.NotEqual(t, oldHash, user.PasswordHash)
		assert.NotNil(t, user.PasswordChangedAt)

		ok, verr := auth.NewPasswordHasher().Verify("NewPassw0rd!", user.PasswordHash, user.PasswordSalt)
		require.NoError(t, verr)
		assert.True(t, ok)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		err := svc.ChangePassword(context.Background(), 99, testPassword, "NewPassw0rd!")

		require.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})
}

func TestUserService_AssignRole_AlreadyHeldIsNoOp(t *testing.T) {
	users := new(MockUserRepository)
	users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)

	svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
	err := svc.AssignRole(context.Background(), 7, model.RoleDoctor)

	require.NoError(t, err)
	users.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything)
}

func TestUserService_AssignRole_NewRole(t *testing.T) {
	users := new(MockUserRepository)
	roles := new(MockRoleRepository)
	users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
	roles.On("FindByID", mock.Anything, model.RoleAdmin).Return(&model.Role{ID: model.RoleAdmin, Name: "Admin"}, nil)
	users.On("AssignRole", mock.Anything, mock.MatchedBy(func(link *model.UserRole) bool {
		return link.UserID == 7 && link.RoleID == model.RoleAdmin && !link.AssignedAt.IsZero()
	})).Return(nil)

	svc := newTestService(users, roles, new(MockSessionStore))
	err := svc.AssignRole(context.Background(), 7, model.RoleAdmin)

	require.NoError(t, err)
	users.AssertExpectations(t)
	roles.AssertExpectations(t)
}

func TestUserService_RemoveRole(t *testing.T) {
	t.Run("assignment not held", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
		users.On("RemoveRole", mock.Anything, uint(7), model.RoleAdmin).Return(false, nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		err := svc.RemoveRole(context.Background(), 7, model.RoleAdmin)

		require.ErrorIs(t, err, domainerrors.ErrRoleNotFound)
	})

	t.Run("held assignment is removed", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
		users.On("RemoveRole", mock.Anything, uint(7), model.RoleDoctor).Return(true, nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		err := svc.RemoveRole(context.Background(), 7, model.RoleDoctor)

		require.NoError(t, err)
	})
}

func TestUserService_LockUnlock(t *testing.T) {
	t.Run("unlock clears the flag and counter", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
		users.On("SetLocked", mock.Anything, uint(7), false).Return(nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		require.NoError(t, svc.Unlock(context.Background(), 7))
		users.AssertExpectations(t)
	})

	t.Run("lock unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		require.ErrorIs(t, svc.Lock(context.Background(), 99), domainerrors.ErrUserNotFound)
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		require.ErrorIs(t, svc.DeleteUser(context.Background(), 99), domainerrors.ErrUserNotFound)
	})

	t.Run("existing user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
		users.On("Delete", mock.Anything, uint(7)).Return(nil)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		require.NoError(t, svc.DeleteUser(context.Background(), 7))
		users.AssertExpectations(t)
	})
}

func TestUserService_ListUsersByRole_UnknownRole(t *testing.T) {
	roles := new(MockRoleRepository)
	roles.On("FindByName", mock.Anything, "receptionist").Return(nil, gorm.ErrRecordNotFound)

	svc := newTestService(new(MockUserRepository), roles, new(MockSessionStore))
	views, err := svc.ListUsersByRole(context.Background(), "receptionist")

	require.ErrorIs(t, err, domainerrors.ErrRoleNotFound)
	assert.Nil(t, views)
}

func TestUserService_Logout(t *testing.T) {
	t.Run("clears the session", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionStore)
		users.On("FindByID", mock.Anything, uint(7)).Return(activeUser(t), nil)
		sessions.On("Clear", mock.Anything, uint(7)).Return(nil)

		svc := newTestService(users, new(MockRoleRepository), sessions)
		require.NoError(t, svc.Logout(context.Background(), 7))
		sessions.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
		require.ErrorIs(t, svc.Logout(context.Background(), 99), domainerrors.ErrUserNotFound)
	})
}

func TestUserService_UpdateUser_ReconcilesRoles(t *testing.T) {
	users := new(MockUserRepository)
	roles := new(MockRoleRepository)

	user := activeUser(t)
	users.On("FindByID", mock.Anything, uint(7)).Return(user, nil).Once()
	users.On("Update", mock.Anything, user).Return(nil)

	// Requested set {Admin}: Doctor is stale, Admin is missing.
	users.On("RemoveRole", mock.Anything, uint(7), model.RoleDoctor).Return(true, nil)
	roles.On("FindByID", mock.Anything, model.RoleAdmin).Return(&model.Role{ID: model.RoleAdmin, Name: "Admin"}, nil)
	users.On("AssignRole", mock.Anything, mock.AnythingOfType("*model.UserRole")).Return(nil)

	users.On("FindByID", mock.Anything, uint(7)).Return(&model.User{
		ID:       7,
		Username: "alice",
		Email:    "alice@x.com",
		IsActive: true,
		UserRoles: []model.UserRole{
			{UserID: 7, RoleID: model.RoleAdmin, Role: &model.Role{ID: model.RoleAdmin, Name: "Admin"}},
		},
	}, nil).Once()

	svc := newTestService(users, roles, new(MockSessionStore))
	view, err := svc.UpdateUser(context.Background(), UpdateInput{
		ID:      7,
		RoleIDs: []uint{model.RoleAdmin},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, view.Roles)
	users.AssertExpectations(t)
	roles.AssertExpectations(t)
}

func TestUserService_UpdateUser_EmptyRoleListLeavesRolesAlone(t *testing.T) {
	users := new(MockUserRepository)

	user := activeUser(t)
	users.On("FindByID", mock.Anything, uint(7)).Return(user, nil)
	users.On("Update", mock.Anything, user).Return(nil)

	svc := newTestService(users, new(MockRoleRepository), new(MockSessionStore))
	view, err := svc.UpdateUser(context.Background(), UpdateInput{
		ID:      7,
		RoleIDs: []uint{},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor"}, view.Roles)
	users.AssertNotCalled(t, "RemoveRole", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything)
}
