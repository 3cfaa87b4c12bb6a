package query

import (
	"context"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
)

// ListSessionsInput はセッション一覧の入力を定義します
type ListSessionsInput struct {
	// Username が空の場合は全ユーザーが対象です
	Username string
}

// ListSessionsOutput はセッション一覧の出力を定義します
type ListSessionsOutput struct {
	Sessions []*entity.Session
	TTL      time.Duration
}

// ListSessionsQuery は有効なセッション一覧クエリです
type ListSessionsQuery struct {
	sessions *service.SessionService
}

// NewListSessionsQuery は新しいListSessionsQueryを作成します
func NewListSessionsQuery(sessions *service.SessionService) *ListSessionsQuery {
	return &ListSessionsQuery{sessions: sessions}
}

// Execute は有効なセッションを作成日時の昇順で返します
func (q *ListSessionsQuery) Execute(ctx context.Context, input ListSessionsInput) (*ListSessionsOutput, error) {
	sessions, err := q.sessions.GetActiveSessions(ctx, input.Username)
	if err != nil {
		return nil, auth.MapSessionError(err)
	}
	return &ListSessionsOutput{
		Sessions: sessions,
		TTL:      q.sessions.TTL(),
	}, nil
}
