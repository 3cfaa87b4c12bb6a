package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
)

// ハッシュのフィールド名
const (
	fieldUsername     = "username"
	fieldCreatedAt    = "created_at"
	fieldLastActivity = "last_activity"
	fieldScopes       = "scopes"
)

// 楽観ロックの最大リトライ回数
const maxTxRetries = 5

// touchScript は既存のセッションハッシュだけを更新します
// キーが存在しない場合は何も作成せず 0 を返します
var touchScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 0 then
        return 0
    end
    redis.call('HSET', KEYS[1], 'last_activity', ARGV[1])
    local retention = tonumber(ARGV[2])
    if retention > 0 then
        redis.call('PEXPIRE', KEYS[1], retention)
    end
    return 1
`)

// SessionStore はRedisハッシュでセッションを永続化します
//
// session:{id} にハッシュを、user:sessions:{username} と sessions:all に
// IDのセットを保持します。インデックスに残った古いIDは読み出し時に取り除きます。
type SessionStore struct {
	client    *redis.Client
	retention time.Duration // 0 の場合はRedis側で失効させない
}

// NewSessionStore は新しいSessionStoreを作成します
// retention はRedisキーの保持期間で、セッションTTL以上を指定します
func NewSessionStore(client *redis.Client, retention time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		retention: retention,
	}
}

// Save はセッションを保存します
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	fields, err := encodeSession(session)
	if err != nil {
		return err
	}

	key := SessionKey(session.ID)

	// パイプラインで複数操作をアトミックに実行
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if s.retention > 0 {
		pipe.PExpire(ctx, key, s.retention)
	}
	pipe.SAdd(ctx, UserSessionsKey(session.Username), session.ID)
	pipe.SAdd(ctx, AllSessionsKey(), session.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByID はセッションIDでセッションを取得します
func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	fields, err := s.client.HGetAll(ctx, SessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrSessionNotFound
	}
	return decodeSession(sessionID, fields)
}

// Touch は既存セッションの最終アクティビティを更新します
func (s *SessionStore) Touch(ctx context.Context, sessionID string, lastActivity time.Time) (bool, error) {
	n, err := touchScript.Run(ctx, s.client,
		[]string{SessionKey(sessionID)},
		formatTime(lastActivity),
		s.retention.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return n == 1, nil
}

// Delete はセッションを削除します
// 所有者のインデックスを特定するため、WATCHでハッシュを監視しながら削除します
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	key := SessionKey(sessionID)
	var deleted bool

	txf := func(tx *redis.Tx) error {
		deleted = false

		username, err := tx.HGet(ctx, key, fieldUsername).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var del *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, key)
			pipe.SRem(ctx, UserSessionsKey(username), sessionID)
			pipe.SRem(ctx, AllSessionsKey(), sessionID)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = del.Val() > 0
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to delete session: %w", err)
		}
		return deleted, nil
	}
	return false, fmt.Errorf("failed to delete session: %w", redis.TxFailedErr)
}

// FindByUsername はユーザーの全セッションを取得します
func (s *SessionStore) FindByUsername(ctx context.Context, username string) ([]*entity.Session, error) {
	indexKey := UserSessionsKey(username)

	sessionIDs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}

	sessions, stale, err := s.loadMany(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	// 上書きで所有者が変わったIDもインデックスから外す
	owned := sessions[:0]
	for _, session := range sessions {
		if session.Username != username {
			stale = append(stale, session.ID)
			continue
		}
		owned = append(owned, session)
	}

	s.prune(ctx, indexKey, stale)
	return owned, nil
}

// FindAll は全セッションを取得します
func (s *SessionStore) FindAll(ctx context.Context) ([]*entity.Session, error) {
	sessionIDs, err := s.client.SMembers(ctx, AllSessionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	sessions, stale, err := s.loadMany(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	s.prune(ctx, AllSessionsKey(), stale)
	return sessions, nil
}

// loadMany はパイプラインで複数のセッションを一括取得します
// 存在しなかったIDは stale として返します
func (s *SessionStore) loadMany(ctx context.Context, sessionIDs []string) ([]*entity.Session, []string, error) {
	if len(sessionIDs) == 0 {
		return []*entity.Session{}, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(sessionIDs))
	for i, sessionID := range sessionIDs {
		cmds[i] = pipe.HGetAll(ctx, SessionKey(sessionID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	sessions := make([]*entity.Session, 0, len(sessionIDs))
	var stale []string
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, sessionIDs[i])
			continue
		}
		session, err := decodeSession(sessionIDs[i], fields)
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, stale, nil
}

// prune はインデックスから古いIDを取り除きます
// 失敗しても次回の読み出しで再試行されるため、エラーは無視します
func (s *SessionStore) prune(ctx context.Context, indexKey string, stale []string) {
	if len(stale) == 0 {
		return
	}
	members := make([]interface{}, len(stale))
	for i, id := range stale {
		members[i] = id
	}
	_ = s.client.SRem(ctx, indexKey, members...).Err()
}

func encodeSession(session *entity.Session) (map[string]interface{}, error) {
	scopes, err := json.Marshal(entity.NormalizeScopes(session.Scopes))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scopes: %w", err)
	}
	return map[string]interface{}{
		fieldUsername:     session.Username,
		fieldCreatedAt:    formatTime(session.CreatedAt),
		fieldLastActivity: formatTime(session.LastActivity),
		fieldScopes:       string(scopes),
	}, nil
}

func decodeSession(sessionID string, fields map[string]string) (*entity.Session, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at of session: %w", err)
	}
	lastActivity, err := time.Parse(time.RFC3339Nano, fields[fieldLastActivity])
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_activity of session: %w", err)
	}

	var scopes []string
	if raw := fields[fieldScopes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &scopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
		}
	}

	return &entity.Session{
		ID:           sessionID,
		Username:     fields[fieldUsername],
		CreatedAt:    createdAt,
		LastActivity: lastActivity,
		Scopes:       entity.NormalizeScopes(scopes),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// インターフェースの実装を保証
var _ repository.SessionRepository = (*SessionStore)(nil)
