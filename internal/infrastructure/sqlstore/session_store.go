package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
)

const sessionsTable = "user_sessions"

var sessionColumns = []string{"session_id", "username", "created_at", "last_activity", "scopes"}

// SessionStore はuser_sessionsテーブルにセッションを保存します
// 時刻はUNIXマイクロ秒、スコープはJSON配列で保持します
type SessionStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSessionStore は新しいSessionStoreを作成します
// スキーマはmigrateパッケージで事前に作成しておきます
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Save はセッションを保存します（存在する場合は上書き）
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	scopes, err := json.Marshal(entity.NormalizeScopes(session.Scopes))
	if err != nil {
		return fmt.Errorf("failed to marshal scopes: %w", err)
	}

	query, args, err := s.sb.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.Username,
			session.CreatedAt.UnixMicro(),
			session.LastActivity.UnixMicro(),
			string(scopes),
		).
		Suffix(`ON CONFLICT (session_id) DO UPDATE SET
    username = excluded.username,
    created_at = excluded.created_at,
    last_activity = excluded.last_activity,
    scopes = excluded.scopes`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByID はIDでセッションを検索します
func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	query, args, err := s.selectSessions().Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	session, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Touch は最終アクティビティのみを更新します
func (s *SessionStore) Touch(ctx context.Context, sessionID string, lastActivity time.Time) (bool, error) {
	query, args, err := s.sb.Update(sessionsTable).
		Set("last_activity", lastActivity.UnixMicro()).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}
	return s.execAffected(ctx, "touch", query, args)
}

// Delete はセッションを削除します
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	query, args, err := s.sb.Delete(sessionsTable).Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}
	return s.execAffected(ctx, "delete", query, args)
}

// FindByUsername はユーザーの全セッションを取得します
func (s *SessionStore) FindByUsername(ctx context.Context, username string) ([]*entity.Session, error) {
	return s.list(ctx, s.selectSessions().Where(sq.Eq{"username": username}))
}

// FindAll は全セッションを取得します
func (s *SessionStore) FindAll(ctx context.Context) ([]*entity.Session, error) {
	return s.list(ctx, s.selectSessions())
}

func (s *SessionStore) selectSessions() sq.SelectBuilder {
	return s.sb.Select(sessionColumns...).From(sessionsTable)
}

func (s *SessionStore) execAffected(ctx context.Context, op, query string, args []interface{}) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s session: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s session: %w", op, err)
	}
	return n == 1, nil
}

func (s *SessionStore) list(ctx context.Context, builder sq.SelectBuilder) ([]*entity.Session, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
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
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*entity.Session, error) {
	var (
		s                       entity.Session
		createdAt, lastActivity int64
		rawScopes               string
	)
	if err := row.Scan(&s.ID, &s.Username, &createdAt, &lastActivity, &rawScopes); err != nil {
		return nil, err
	}

	var scopes []string
	if rawScopes != "" {
		if err := json.Unmarshal([]byte(rawScopes), &scopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
		}
	}

	s.CreatedAt = time.UnixMicro(createdAt).UTC()
	s.LastActivity = time.UnixMicro(lastActivity).UTC()
	s.Scopes = entity.NormalizeScopes(scopes)
	return &s, nil
}

// インターフェースの実装を保証
var _ repository.SessionRepository = (*SessionStore)(nil)
