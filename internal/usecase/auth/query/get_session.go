package query

import (
	"context"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
	"github.com/jborjar/paquetes/pkg/apperror"
)

// GetSessionInput はセッション取得の入力を定義します
type GetSessionInput struct {
	SessionID string
	Renew     bool
}

// GetSessionOutput はセッション取得の出力を定義します
type GetSessionOutput struct {
	Session   *entity.Session
	ExpiresAt time.Time
}

// GetSessionQuery はセッション取得クエリです
type GetSessionQuery struct {
	sessions *service.SessionService
}

// NewGetSessionQuery は新しいGetSessionQueryを作成します
func NewGetSessionQuery(sessions *service.SessionService) *GetSessionQuery {
	return &GetSessionQuery{sessions: sessions}
}

// Execute はセッションを取得します
// 存在しない・期限切れのセッションは 401 になります
func (q *GetSessionQuery) Execute(ctx context.Context, input GetSessionInput) (*GetSessionOutput, error) {
	session, err := q.sessions.ValidateSession(ctx, input.SessionID, input.Renew)
	if err != nil {
		return nil, auth.MapSessionError(err)
	}
	if session == nil {
		return nil, apperror.NewUnauthorizedError("invalid or expired session")
	}
	return &GetSessionOutput{
		Session:   session,
		ExpiresAt: session.ExpiresAt(q.sessions.TTL()),
	}, nil
}
