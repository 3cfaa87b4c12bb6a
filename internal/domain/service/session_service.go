package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/domain/valueobject"
)

var (
	ErrInvalidTTL         = errors.New("session ttl must be positive")
	ErrInvalidUsername    = errors.New("username cannot be empty")
	ErrInvalidMaxSessions = errors.New("max sessions must be at least 1")
	ErrSessionIDCollision = errors.New("failed to allocate a unique session id")
)

// maxIDAttempts はセッションID重複時の再生成回数の上限です
const maxIDAttempts = 3

// StorageError はストレージバックエンドの障害を表します
// 呼び出し側はこれを「セッションなし」と区別して扱わなければなりません
type StorageError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装します
func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError はストレージ障害かどうかを判定します
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// SessionServiceOption はSessionServiceのオプションです
type SessionServiceOption func(*SessionService)

// WithClock は現在時刻の取得関数を差し替えます
func WithClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.now = now
	}
}

// WithIDGenerator はセッションIDの生成関数を差し替えます
func WithIDGenerator(gen func() (string, error)) SessionServiceOption {
	return func(s *SessionService) {
		s.newID = gen
	}
}

// SessionService はセッションのライフサイクル（作成・検証・削除・掃除）を管理します
// 永続化は全てSessionRepository経由で行います
type SessionService struct {
	repo  repository.SessionRepository
	ttl   time.Duration
	now   func() time.Time
	newID func() (string, error)
}

// NewSessionService は新しいSessionServiceを作成します
// ttl にデフォルト値はなく、0以下の場合はエラーを返します
func NewSessionService(repo repository.SessionRepository, ttl time.Duration, opts ...SessionServiceOption) (*SessionService, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	s := &SessionService{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		newID: generateSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func generateSessionID() (string, error) {
	id, err := valueobject.NewSessionID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// TTL はセッションの有効期間を返します
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// CreateSession は新しいセッションを作成します
// 作成前にユーザーの有効なセッションを最終アクティビティの古い順に削除し、
// 新しいセッションを含めて maxSessions 件に収めます
func (s *SessionService) CreateSession(ctx context.Context, username string, scopes []string, maxSessions int) (*entity.Session, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrInvalidUsername
	}
	if maxSessions < 1 {
		return nil, ErrInvalidMaxSessions
	}

	id, err := s.allocateID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.evictOldest(ctx, username, maxSessions-1, now); err != nil {
		return nil, err
	}

	session := entity.NewSession(id, username, scopes, now)
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, storageError("save", err)
	}

	return session.Clone(), nil
}

// allocateID はストレージに存在しないセッションIDを生成します
func (s *SessionService) allocateID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate session id: %w", err)
		}

		_, err = s.repo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return id, nil
		}
		if err != nil {
			return "", storageError("find", err)
		}
	}
	return "", ErrSessionIDCollision
}

// evictOldest はユーザーの有効なセッションが keep 件以下になるまで古い順に削除します
func (s *SessionService) evictOldest(ctx context.Context, username string, keep int, now time.Time) error {
	sessions, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return storageError("list by username", err)
	}

	live := s.filterLive(sessions, now)
	excess := len(live) - keep
	if excess <= 0 {
		return nil
	}

	entity.SortByLastActivity(live)
	for _, session := range live[:excess] {
		if _, err := s.repo.Delete(ctx, session.ID); err != nil {
			return storageError("evict", err)
		}
	}
	return nil
}

// ValidateSession はセッションを検証し、有効な場合に返します
// 存在しない・期限切れ・不正な形式のIDはいずれも nil を返します（エラーではありません）
// renew が true の場合は最終アクティビティを現在時刻に更新します
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string, renew bool) (*entity.Session, error) {
	if _, err := valueobject.ParseSessionID(sessionID); err != nil {
		return nil, nil
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find", err)
	}

	now := s.now()
	if session.IsExpired(now, s.ttl) {
		if _, err := s.repo.Delete(ctx, sessionID); err != nil {
			return nil, storageError("delete expired", err)
		}
		return nil, nil
	}

	if renew {
		ok, err := s.repo.Touch(ctx, sessionID, now)
		if err != nil {
			return nil, storageError("touch", err)
		}
		// 取得後に別リクエストで削除された
		if !ok {
			return nil, nil
		}
		session.Renew(now)
	}

	return session, nil
}

// DeleteSession はセッションを削除し、削除したかどうかを返します
// 存在しないIDの削除はエラーになりません
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if _, err := valueobject.ParseSessionID(sessionID); err != nil {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, sessionID)
	if err != nil {
		return false, storageError("delete", err)
	}
	return deleted, nil
}

// DeleteUserSessions はユーザーの全セッション（期限切れを含む）を削除し、削除件数を返します
func (s *SessionService) DeleteUserSessions(ctx context.Context, username string) (int, error) {
	sessions, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return 0, storageError("list by username", err)
	}

	count := 0
	for _, session := range sessions {
		deleted, err := s.repo.Delete(ctx, session.ID)
		if err != nil {
			return count, storageError("delete", err)
		}
		if deleted {
			count++
		}
	}
	return count, nil
}

// CleanupExpiredSessions は期限切れのセッションを全て削除し、削除件数を返します
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	sessions, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, storageError("list all", err)
	}

	now := s.now()
	count := 0
	for _, session := range sessions {
		if !session.IsExpired(now, s.ttl) {
			continue
		}
		deleted, err := s.repo.Delete(ctx, session.ID)
		if err != nil {
			return count, storageError("delete", err)
		}
		if deleted {
			count++
		}
	}
	return count, nil
}

// GetActiveSessions は有効なセッションを作成日時の昇順で返します
// username が空の場合は全ユーザーが対象です
func (s *SessionService) GetActiveSessions(ctx context.Context, username string) ([]*entity.Session, error) {
	var (
		sessions []*entity.Session
		err      error
	)
	if username == "" {
		sessions, err = s.repo.FindAll(ctx)
	} else {
		sessions, err = s.repo.FindByUsername(ctx, username)
	}
	if err != nil {
		return nil, storageError("list", err)
	}

	live := s.filterLive(sessions, s.now())
	entity.SortByCreatedAt(live)
	return live, nil
}

func (s *SessionService) filterLive(sessions []*entity.Session, now time.Time) []*entity.Session {
	live := make([]*entity.Session, 0, len(sessions))
	for _, session := range sessions {
		if !session.IsExpired(now, s.ttl) {
			live = append(live, session)
		}
	}
	return live
}
