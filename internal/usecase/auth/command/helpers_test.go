package command_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/infrastructure/filestore"
	"github.com/jborjar/paquetes/pkg/apperror"
)

const testTTL = 30 * time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSessionService(t *testing.T, repo repository.SessionRepository, clock *fakeClock) *service.SessionService {
	t.Helper()
	if repo == nil {
		repo = filestore.NewMemorySessionStore()
	}
	svc, err := service.NewSessionService(repo, testTTL, service.WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func requireAppError(t *testing.T, err error, code apperror.ErrorCode) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
	return appErr
}
