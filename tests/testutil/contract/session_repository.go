// Package contract provides a behavioural test suite shared by every
// repository.SessionRepository backend.
package contract

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
)

// BaseTime is truncated to microseconds so that every backend round-trips it exactly.
var BaseTime = time.Date(2025, 3, 1, 9, 30, 0, 123456000, time.UTC)

// NewSession builds a session with a fresh canonical id.
func NewSession(username string, createdAt time.Time, scopes ...string) *entity.Session {
	return entity.NewSession(uuid.NewString(), username, scopes, createdAt)
}

// RunSessionRepositoryTests exercises the storage backend contract against
// a fresh repository returned by newRepo for every subtest.
func RunSessionRepositoryTests(t *testing.T, newRepo func(t *testing.T) repository.SessionRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Save then FindByID returns the record", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime, "sales:read", "reports")

		require.NoError(t, repo.Save(ctx, session))

		found, err := repo.FindByID(ctx, session.ID)
		require.NoError(t, err)
		AssertSessionEqual(t, session, found)
	})

	t.Run("FindByID unknown returns ErrSessionNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Save overwrites existing record", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime)
		require.NoError(t, repo.Save(ctx, session))

		session.LastActivity = BaseTime.Add(5 * time.Minute)
		require.NoError(t, repo.Save(ctx, session))

		found, err := repo.FindByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, found.LastActivity.Equal(BaseTime.Add(5*time.Minute)))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Empty scopes round-trip as empty set", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime)
		require.NoError(t, repo.Save(ctx, session))

		found, err := repo.FindByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, found.Scopes)
	})

	t.Run("Touch updates only last activity", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime, "a")
		require.NoError(t, repo.Save(ctx, session))

		ok, err := repo.Touch(ctx, session.ID, BaseTime.Add(10*time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, found.LastActivity.Equal(BaseTime.Add(10*time.Minute)))
		assert.True(t, found.CreatedAt.Equal(BaseTime))
		assert.Equal(t, []string{"a"}, found.Scopes)
	})

	t.Run("Touch on missing record does not create it", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.NewString()

		ok, err := repo.Touch(ctx, id, BaseTime)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime)
		require.NoError(t, repo.Save(ctx, session))

		deleted, err := repo.Delete(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, session.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("FindByUsername filters by owner", func(t *testing.T) {
		repo := newRepo(t)
		a1 := NewSession("alice", BaseTime)
		a2 := NewSession("alice", BaseTime.Add(time.Minute))
		b1 := NewSession("bob", BaseTime)
		for _, s := range []*entity.Session{a1, a2, b1} {
			require.NoError(t, repo.Save(ctx, s))
		}

		sessions, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids(sessions))

		sessions, err = repo.FindByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("Delete removes record from username index", func(t *testing.T) {
		repo := newRepo(t)
		session := NewSession("alice", BaseTime)
		require.NoError(t, repo.Save(ctx, session))

		_, err := repo.Delete(ctx, session.ID)
		require.NoError(t, err)

		sessions, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("FindAll returns every record", func(t *testing.T) {
		repo := newRepo(t)
		a := NewSession("alice", BaseTime)
		b := NewSession("bob", BaseTime)
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(all))
	})
}

// AssertSessionEqual compares sessions field by field using time equality.
func AssertSessionEqual(t *testing.T, want, got *entity.Session) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Username, got.Username)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %v, got %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.LastActivity.Equal(got.LastActivity), "last_activity: want %v, got %v", want.LastActivity, got.LastActivity)

	wantScopes := append([]string{}, want.Scopes...)
	gotScopes := append([]string{}, got.Scopes...)
	sort.Strings(wantScopes)
	sort.Strings(gotScopes)
	assert.Equal(t, wantScopes, gotScopes)
}

func ids(sessions []*entity.Session) []string {
	result := make([]string, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, s.ID)
	}
	return result
}
