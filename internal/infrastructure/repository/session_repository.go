package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/infrastructure/database"
)

const (
	sessionColumns = `session_id, username, created_at, last_activity, scopes`

	upsertSessionSQL = `
INSERT INTO user_sessions (session_id, username, created_at, last_activity, scopes)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE SET
    username      = EXCLUDED.username,
    created_at    = EXCLUDED.created_at,
    last_activity = EXCLUDED.last_activity,
    scopes        = EXCLUDED.scopes`

	findSessionByIDSQL = `SELECT ` + sessionColumns + ` FROM user_sessions WHERE session_id = $1`

	touchSessionSQL = `UPDATE user_sessions SET last_activity = $2 WHERE session_id = $1`

	deleteSessionSQL = `DELETE FROM user_sessions WHERE session_id = $1`

	findSessionsByUsernameSQL = `SELECT ` + sessionColumns + ` FROM user_sessions WHERE username = $1`

	findAllSessionsSQL = `SELECT ` + sessionColumns + ` FROM user_sessions`
)

// SessionRepository はPostgreSQLのuser_sessionsテーブルによるセッションリポジトリの実装です
type SessionRepository struct {
	*database.BaseRepository
}

// NewSessionRepository は新しいSessionRepositoryを作成します
func NewSessionRepository(txManager *database.TxManager) *SessionRepository {
	return &SessionRepository{
		BaseRepository: database.NewBaseRepository(txManager),
	}
}

// Save はセッションを保存します（存在する場合は上書き）
func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	_, err := r.Querier(ctx).Exec(ctx, upsertSessionSQL,
		session.ID,
		session.Username,
		session.CreatedAt,
		session.LastActivity,
		entity.NormalizeScopes(session.Scopes),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", r.HandleError(err, nil))
	}
	return nil
}

// FindByID はIDでセッションを検索します
func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	row := r.Querier(ctx).QueryRow(ctx, findSessionByIDSQL, sessionID)
	session, err := scanSession(row)
	if err != nil {
		err = r.HandleError(err, repository.ErrSessionNotFound)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Touch は最終アクティビティを更新します
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, lastActivity time.Time) (bool, error) {
	tag, err := r.Querier(ctx).Exec(ctx, touchSessionSQL, sessionID, lastActivity)
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", r.HandleError(err, nil))
	}
	return tag.RowsAffected() == 1, nil
}

// Delete はセッションを削除します
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.Querier(ctx).Exec(ctx, deleteSessionSQL, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", r.HandleError(err, nil))
	}
	return tag.RowsAffected() == 1, nil
}

// FindByUsername はユーザーの全セッションを取得します
func (r *SessionRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Session, error) {
	return r.query(ctx, findSessionsByUsernameSQL, username)
}

// FindAll は全セッションを取得します
func (r *SessionRepository) FindAll(ctx context.Context) ([]*entity.Session, error) {
	return r.query(ctx, findAllSessionsSQL)
}

func (r *SessionRepository) query(ctx context.Context, sql string, args ...any) ([]*entity.Session, error) {
	rows, err := r.Querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", r.HandleError(err, nil))
	}
	defer rows.Close()

	sessions := make([]*entity.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", r.HandleError(err, nil))
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	var (
		s      entity.Session
		scopes []string
	)
	if err := row.Scan(&s.ID, &s.Username, &s.CreatedAt, &s.LastActivity, &scopes); err != nil {
		return nil, err
	}
	s.Scopes = entity.NormalizeScopes(scopes)
	return &s, nil
}

// インターフェースの実装を保証
var _ repository.SessionRepository = (*SessionRepository)(nil)
