package service

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
)

func newTestUser(username string, role domain.Role) NewUser {
	return NewUser{
		Username: username,
		Type:     role,
		Email:    username + "@school.test",
		Password: "secret123",
	}
}

func TestUserServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := setupTestService()

	user, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleTeacher))
	require.NoError(t, err)
	assert.NotEmpty(t, user.Id)
	assert.Equal(t, "jdoe", user.Name)
	assert.Empty(t, user.PasswordHash)

	again, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, user.Id, again.Id)

	other, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleStudent))
	require.NoError(t, err)
	assert.NotEqual(t, user.Id, other.Id)

	var stored []domain.User
	_, err = store.GetJSON(ctx, st, store.UsersKey, &stored)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].PasswordHash)
	assert.NotEqual(t, "secret123", stored[0].PasswordHash)

	_, err = svc.User.Create(ctx, teacher, newTestUser("other", domain.RoleStudent))
	assert.ErrorIs(t, err, ErrForbidden)

	invalid := newTestUser("short", domain.RoleStudent)
	invalid.Password = "123"
	_, err = svc.User.Create(ctx, admin, invalid)
	assert.ErrorIs(t, err, ErrValidation)

	invalid = newTestUser("badrole", "principal")
	_, err = svc.User.Create(ctx, admin, invalid)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserServiceRecreatedUserKeepsId(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestService()

	user, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleStudent))
	require.NoError(t, err)
	require.NoError(t, svc.User.Delete(ctx, admin, user.Id))

	recreated, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleStudent))

	require.NoError(t, err)
	assert.Equal(t, user.Id, recreated.Id)
	assert.ErrorIs(t, svc.User.Delete(ctx, admin, "missing"), ErrUnknownUser)
}

func TestUserServiceBootstrap(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestService()

	user, created, err := svc.User.Bootstrap(ctx, newTestUser("root", domain.RoleStudent))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, user.Type)

	_, created, err = svc.User.Bootstrap(ctx, newTestUser("second", domain.RoleAdmin))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUserServiceUpdateAndList(t *testing.T) {
	ctx := context.Background()
	svc, _, c := setupTestService()
	user, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleStudent))
	require.NoError(t, err)

	c.now = fixedNow.Add(time.Hour)
	updated, err := svc.User.Update(ctx, admin, user.Id, UserUpdate{
		Name:     lo.ToPtr("John Doe"),
		Password: lo.ToPtr("newsecret"),
	})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", updated.Name)
	assert.Equal(t, c.now, updated.UpdatedAt)

	_, _, err = svc.User.Login(ctx, "jdoe", "newsecret", domain.RoleStudent)
	assert.NoError(t, err)

	_, err = svc.User.Update(ctx, admin, user.Id, UserUpdate{Email: lo.ToPtr("not-an-email")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.User.Update(ctx, admin, "missing", UserUpdate{})
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = svc.User.Update(ctx, teacher, user.Id, UserUpdate{})
	assert.ErrorIs(t, err, ErrForbidden)

	users, err := svc.User.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)

	_, err = svc.User.List(ctx, student)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserServiceLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestService()
	_, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleTeacher))
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		role     domain.Role
		expected error
	}{
		{"missing fields", "", "secret123", domain.RoleTeacher, ErrMissingCredentials},
		{"short password", "jdoe", "12345", domain.RoleTeacher, ErrPasswordTooShort},
		{"unknown user", "nobody", "secret123", domain.RoleTeacher, ErrUnknownUser},
		{"wrong role", "jdoe", "secret123", domain.RoleStudent, ErrUnknownUser},
		{"wrong password", "jdoe", "secret999", domain.RoleTeacher, ErrInvalidCredentials},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := svc.User.Login(ctx, test.username, test.password, test.role)
			assert.ErrorIs(t, err, test.expected)
		})
	}

	session, user, err := svc.User.Login(ctx, " jdoe ", "secret123", domain.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, user.Id, session.UserId)
	assert.Equal(t, fixedNow.Add(24*time.Hour), session.ExpiresAt)
}

func TestUserServiceLoginWithoutPasswordHash(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := setupTestService()
	require.NoError(t, store.SetJSON(ctx, st, store.UsersKey, []domain.User{
		{Id: "legacy", Username: "demo", Type: domain.RoleStudent},
	}))

	_, user, err := svc.User.Login(ctx, "demo", "anything", domain.RoleStudent)

	require.NoError(t, err)
	assert.Equal(t, "legacy", user.Id)
}

func TestUserServiceSessionLifecycle(t *testing.T) {
	//** Arrange
	ctx := context.Background()
	svc, st, c := setupTestService()
	_, err := svc.User.Create(ctx, admin, newTestUser("jdoe", domain.RoleStudent))
	require.NoError(t, err)
	session, _, err := svc.User.Login(ctx, "jdoe", "secret123", domain.RoleStudent)
	require.NoError(t, err)

	//** Act & Assert
	_, user, err := svc.User.Session(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)

	c.now = fixedNow.Add(24*time.Hour + time.Second)
	_, _, err = svc.User.Session(ctx, session.Id)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, found, err := st.Get(ctx, store.SessionPrefix+session.Id)
	require.NoError(t, err)
	assert.False(t, found)

	c.now = fixedNow
	session, _, err = svc.User.Login(ctx, "jdoe", "secret123", domain.RoleStudent)
	require.NoError(t, err)
	require.NoError(t, svc.User.Logout(ctx, session.Id))
	_, _, err = svc.User.Session(ctx, session.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = svc.User.Session(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUserServiceCheckPermission(t *testing.T) {
	svc, _, _ := setupTestService()

	assert.True(t, svc.User.CheckPermission(admin, domain.RoleTeacher))
	assert.True(t, svc.User.CheckPermission(teacher, domain.RoleStudent))
	assert.False(t, svc.User.CheckPermission(student, domain.RoleTeacher))
	assert.False(t, svc.User.CheckPermission(teacher, domain.RoleAdmin))
}
