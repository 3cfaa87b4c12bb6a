package response

import (
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
)

// SessionResponse はセッション情報レスポンス
type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Username     string    `json:"username"`
	Scopes       []string  `json:"scopes"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResponse はログインレスポンス
type LoginResponse struct {
	SessionResponse
	// ExpiresIn はTTLの秒数
	ExpiresIn int `json:"expires_in"`
}

// LogoutAllResponse は全セッション削除レスポンス
type LogoutAllResponse struct {
	Deleted int `json:"deleted"`
}

// CleanupResponse は期限切れセッション削除レスポンス
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// ToSessionResponse はエンティティをレスポンスに変換します
func ToSessionResponse(session *entity.Session, ttl time.Duration) *SessionResponse {
	if session == nil {
		return nil
	}
	return &SessionResponse{
		SessionID:    session.ID,
		Username:     session.Username,
		Scopes:       entity.NormalizeScopes(session.Scopes),
		CreatedAt:    session.CreatedAt.UTC(),
		LastActivity: session.LastActivity.UTC(),
		ExpiresAt:    session.ExpiresAt(ttl).UTC(),
	}
}

// ToSessionListResponse はエンティティ一覧をレスポンスに変換します
func ToSessionListResponse(sessions []*entity.Session, ttl time.Duration) []*SessionResponse {
	result := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, ToSessionResponse(session, ttl))
	}
	return result
}
