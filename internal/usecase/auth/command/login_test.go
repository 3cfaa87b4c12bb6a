package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth/command"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/tests/testutil/mocks"
)

func TestLoginCommand_Execute_ValidCredentials_CreatesSession(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sessions := newSessionService(t, nil, clock)

	validator := mocks.NewMockCredentialValidator(t)
	limits := mocks.NewMockSessionLimitResolver(t)
	validator.On("Validate", mock.Anything, "alice", "secret").
		Return(&service.Principal{Username: "alice", Scopes: []string{"sales:read"}}, nil)
	limits.On("MaxSessions", mock.Anything, "alice").Return(2, nil)

	out, err := command.NewLoginCommand(validator, limits, sessions).Execute(ctx, command.LoginInput{
		Username: "alice",
		Password: "secret",
		Scopes:   []string{"ignored:admin"},
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", out.Session.Username)
	assert.Equal(t, []string{"sales:read"}, out.Session.Scopes)
	assert.Equal(t, clock.Now().Add(testTTL), out.ExpiresAt)
	assert.Equal(t, testTTL, out.TTL)

	found, err := sessions.ValidateSession(ctx, out.Session.ID, false)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestLoginCommand_Execute_BooleanValidator_UsesRequestedScopes(t *testing.T) {
	ctx := context.Background()
	sessions := newSessionService(t, nil, newFakeClock())
	validator := service.CredentialValidatorFunc(func(u, p string) bool { return u == "bob" && p == "pw" })

	out, err := command.NewLoginCommand(validator, service.StaticSessionLimit(1), sessions).Execute(ctx, command.LoginInput{
		Username: " bob ",
		Password: "pw",
		Scopes:   []string{"reports", "inventory:write", "reports"},
	})

	require.NoError(t, err)
	assert.Equal(t, "bob", out.Session.Username)
	assert.Equal(t, []string{"inventory:write", "reports"}, out.Session.Scopes)
}

func TestLoginCommand_Execute_InvalidCredentials_ReturnsUnauthorized(t *testing.T) {
	ctx := context.Background()
	validator := mocks.NewMockCredentialValidator(t)
	limits := mocks.NewMockSessionLimitResolver(t)
	validator.On("Validate", mock.Anything, "alice", "wrong").Return(nil, service.ErrInvalidCredentials)

	out, err := command.NewLoginCommand(validator, limits, newSessionService(t, nil, newFakeClock())).
		Execute(ctx, command.LoginInput{Username: "alice", Password: "wrong"})

	assert.Nil(t, out)
	appErr := requireAppError(t, err, apperror.CodeInvalidCredentials)
	assert.Equal(t, 401, appErr.HTTPStatus)
}

func TestLoginCommand_Execute_EmptyInput_SkipsValidator(t *testing.T) {
	validator := mocks.NewMockCredentialValidator(t)
	limits := mocks.NewMockSessionLimitResolver(t)
	cmd := command.NewLoginCommand(validator, limits, newSessionService(t, nil, newFakeClock()))

	_, err := cmd.Execute(context.Background(), command.LoginInput{Username: "   ", Password: "x"})
	requireAppError(t, err, apperror.CodeInvalidCredentials)

	_, err = cmd.Execute(context.Background(), command.LoginInput{Username: "alice"})
	requireAppError(t, err, apperror.CodeInvalidCredentials)
}

func TestLoginCommand_Execute_CredentialStoreDown_ReturnsServiceUnavailable(t *testing.T) {
	validator := mocks.NewMockCredentialValidator(t)
	limits := mocks.NewMockSessionLimitResolver(t)
	validator.On("Validate", mock.Anything, "alice", "pw").Return(nil, errors.New("connection refused"))

	_, err := command.NewLoginCommand(validator, limits, newSessionService(t, nil, newFakeClock())).
		Execute(context.Background(), command.LoginInput{Username: "alice", Password: "pw"})

	requireAppError(t, err, apperror.CodeServiceUnavailable)
}

func TestLoginCommand_Execute_LimitLookupFails_ReturnsServiceUnavailable(t *testing.T) {
	validator := mocks.NewMockCredentialValidator(t)
	limits := mocks.NewMockSessionLimitResolver(t)
	validator.On("Validate", mock.Anything, "alice", "pw").Return(&service.Principal{Username: "alice"}, nil)
	limits.On("MaxSessions", mock.Anything, "alice").Return(0, errors.New("db down"))

	_, err := command.NewLoginCommand(validator, limits, newSessionService(t, nil, newFakeClock())).
		Execute(context.Background(), command.LoginInput{Username: "alice", Password: "pw"})

	requireAppError(t, err, apperror.CodeServiceUnavailable)
}

func TestLoginCommand_Execute_EvictsOldestBeyondLimit(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sessions := newSessionService(t, nil, clock)
	validator := service.CredentialValidatorFunc(func(string, string) bool { return true })
	cmd := command.NewLoginCommand(validator, service.StaticSessionLimit(2), sessions)

	var ids []string
	for i := 0; i < 3; i++ {
		out, err := cmd.Execute(ctx, command.LoginInput{Username: "alice", Password: "pw"})
		require.NoError(t, err)
		ids = append(ids, out.Session.ID)
		clock.Advance(1)
	}

	active, err := sessions.GetActiveSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, ids[1], active[0].ID)
	assert.Equal(t, ids[2], active[1].ID)
}

func TestLoginCommand_Execute_StorageFailure_ReturnsServiceUnavailable(t *testing.T) {
	repo := mocks.NewMockSessionRepository(t)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("redis: connection refused"))

	validator := service.CredentialValidatorFunc(func(string, string) bool { return true })
	cmd := command.NewLoginCommand(validator, service.StaticSessionLimit(1), newSessionService(t, repo, newFakeClock()))

	_, err := cmd.Execute(context.Background(), command.LoginInput{Username: "alice", Password: "pw"})

	appErr := requireAppError(t, err, apperror.CodeServiceUnavailable)
	assert.Equal(t, 503, appErr.HTTPStatus)
}
