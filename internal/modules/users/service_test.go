package users

import (
	"context"
	"testing"
	"time"

	testingpkg "github.com/aristath/pricepoint/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "catalog")
	t.Cleanup(cleanup)

	tokens := NewTokenManager("test-secret", time.Hour)
	tokens.now = func() time.Time { return fixedNow }

	service := NewService(NewRepository(db.Conn(), zerolog.Nop()), tokens, zerolog.Nop())
	service.cost = bcrypt.MinCost
	service.now = func() time.Time { return fixedNow }
	return service
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Username:     "ann",
		Email:        "Ann@Example.com",
		Password:     "correct-horse",
		CompanyName:  "Ann's Shop",
		BusinessType: "retail",
	}
}

func TestRegister(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	assert.Positive(t, user.ID)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "Ann's Shop", user.CompanyName)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.True(t, fixedNow.Equal(user.CreatedAt))

	stored, err := service.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, stored.Username)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
}

func TestRegister_Conflicts(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	sameEmail := validRegistration()
	sameEmail.Username = "other"
	_, err = service.Register(ctx, sameEmail)
	assert.ErrorIs(t, err, ErrEmailTaken)

	sameUsername := validRegistration()
	sameUsername.Email = "other@example.com"
	_, err = service.Register(ctx, sameUsername)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_Validation(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"missing username", func(r *RegisterRequest) { r.Username = "  " }},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }},
		{"malformed email", func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)

			_, err := service.Register(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLogin(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	result, err := service.Login(ctx, "ANN@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.True(t, fixedNow.Add(time.Hour).Equal(result.ExpiresAt))

	userID, err := service.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = service.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	updated, err := service.UpdateProfile(ctx, user.ID, ProfileUpdate{CompanyName: " New Co ", BusinessType: "wholesale"})
	require.NoError(t, err)
	assert.Equal(t, "New Co", updated.CompanyName)
	assert.Equal(t, "wholesale", updated.BusinessType)

	_, err = service.UpdateProfile(ctx, 999, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, validRegistration())
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := service.ChangePassword(ctx, user.ID, PasswordChange{
			CurrentPassword: "nope", NewPassword: "new-password", ConfirmPassword: "new-password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		err := service.ChangePassword(ctx, user.ID, PasswordChange{
			CurrentPassword: "correct-horse", NewPassword: "new-password", ConfirmPassword: "other-password",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("success", func(t *testing.T) {
		err := service.ChangePassword(ctx, user.ID, PasswordChange{
			CurrentPassword: "correct-horse", NewPassword: "new-password", ConfirmPassword: "new-password",
		})
		require.NoError(t, err)

		_, err = service.Login(ctx, "ann@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = service.Login(ctx, "ann@example.com", "new-password")
		assert.NoError(t, err)
	})
}
