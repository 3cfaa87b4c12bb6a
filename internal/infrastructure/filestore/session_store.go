// Package filestore はプロセス内のマップにセッションを保持し、
// 任意でJSONファイルに永続化するセッションストアを提供します
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
)

// sessionData はファイルに保存するセッションデータです
type sessionData struct {
	SessionID    string    `json:"session_id"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Scopes       []string  `json:"scopes"`
}

// SessionStore はマップベースのセッションストアです
// path が空の場合はメモリ上のみで保持します
type SessionStore struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]sessionData
}

// NewMemorySessionStore はメモリ上のみで保持するSessionStoreを作成します
func NewMemorySessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionData)}
}

// NewSessionStore はファイルに永続化するSessionStoreを作成します
// ファイルが存在する場合は内容を読み込みます
func NewSessionStore(path string) (*SessionStore, error) {
	s := &SessionStore{
		path:     path,
		sessions: make(map[string]sessionData),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.sessions); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	// "null" はセッションなしとして扱います
	if s.sessions == nil {
		s.sessions = make(map[string]sessionData)
	}
	return s, nil
}

// Save はセッションを保存します
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.sessions[session.ID]
	s.sessions[session.ID] = toSessionData(session)
	if err := s.persist(); err != nil {
		if existed {
			s.sessions[session.ID] = prev
		} else {
			delete(s.sessions, session.ID)
		}
		return err
	}
	return nil
}

// FindByID はIDでセッションを検索します
func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return data.toEntity(), nil
}

// Touch は最終アクティビティを更新します
func (s *SessionStore) Touch(ctx context.Context, sessionID string, lastActivity time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}

	prev := data.LastActivity
	data.LastActivity = lastActivity
	s.sessions[sessionID] = data
	if err := s.persist(); err != nil {
		data.LastActivity = prev
		s.sessions[sessionID] = data
		return false, err
	}
	return true, nil
}

// Delete はセッションを削除します
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}

	delete(s.sessions, sessionID)
	if err := s.persist(); err != nil {
		s.sessions[sessionID] = data
		return false, err
	}
	return true, nil
}

// FindByUsername はユーザーの全セッションを取得します
func (s *SessionStore) FindByUsername(ctx context.Context, username string) ([]*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*entity.Session, 0)
	for _, data := range s.sessions {
		if data.Username == username {
			sessions = append(sessions, data.toEntity())
		}
	}
	return sessions, nil
}

// FindAll は全セッションを取得します
func (s *SessionStore) FindAll(ctx context.Context) ([]*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*entity.Session, 0, len(s.sessions))
	for _, data := range s.sessions {
		sessions = append(sessions, data.toEntity())
	}
	return sessions, nil
}

// Len は保持しているセッション数を返します（期限切れを含む）
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// persist はマップ全体を一時ファイルに書き出してからリネームします
// 呼び出し側でロックを保持している必要があります
func (s *SessionStore) persist() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func toSessionData(session *entity.Session) sessionData {
	return sessionData{
		SessionID:    session.ID,
		Username:     session.Username,
		CreatedAt:    session.CreatedAt,
		LastActivity: session.LastActivity,
		Scopes:       append([]string(nil), session.Scopes...),
	}
}

func (d sessionData) toEntity() *entity.Session {
	scopes := d.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return &entity.Session{
		ID:           d.SessionID,
		Username:     d.Username,
		CreatedAt:    d.CreatedAt,
		LastActivity: d.LastActivity,
		Scopes:       append([]string{}, scopes...),
	}
}

var _ repository.SessionRepository = (*SessionStore)(nil)
