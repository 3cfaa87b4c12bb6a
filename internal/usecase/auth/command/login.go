package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// LoginInput はログインの入力を定義します
type LoginInput struct {
	Username string
	Password string
	// Scopes はバリデーターがスコープを決めない場合に使われます
	Scopes []string
}

// LoginOutput はログインの出力を定義します
type LoginOutput struct {
	Session   *entity.Session
	ExpiresAt time.Time
	TTL       time.Duration
}

// LoginCommand はログインコマンドです
type LoginCommand struct {
	validator service.CredentialValidator
	limits    service.SessionLimitResolver
	sessions  *service.SessionService
}

// NewLoginCommand は新しいLoginCommandを作成します
func NewLoginCommand(
	validator service.CredentialValidator,
	limits service.SessionLimitResolver,
	sessions *service.SessionService,
) *LoginCommand {
	return &LoginCommand{
		validator: validator,
		limits:    limits,
		sessions:  sessions,
	}
}

// Execute はログインを実行します
func (c *LoginCommand) Execute(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperror.NewInvalidCredentialsError()
	}

	// 1. 資格情報の検証
	principal, err := c.validator.Validate(ctx, username, input.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logger.Info(ctx, "login rejected", "username", username)
			return nil, apperror.NewInvalidCredentialsError()
		}
		logger.Error(ctx, "credential validation failed", "username", username, "error", err)
		return nil, apperror.NewServiceUnavailableError("credential store unavailable")
	}

	// 2. スコープの決定（バリデーターが決めた場合はそちらを優先）
	scopes := input.Scopes
	if principal.Scopes != nil {
		scopes = principal.Scopes
	}

	// 3. 同時セッション数の上限
	maxSessions, err := c.limits.MaxSessions(ctx, principal.Username)
	if err != nil {
		logger.Error(ctx, "session limit lookup failed", "username", principal.Username, "error", err)
		return nil, apperror.NewServiceUnavailableError("credential store unavailable")
	}

	// 4. セッション作成
	session, err := c.sessions.CreateSession(ctx, principal.Username, scopes, maxSessions)
	if err != nil {
		return nil, auth.MapSessionError(err)
	}

	logger.Info(logger.ContextWithSessionID(ctx, session.ID), "login succeeded",
		"username", session.Username,
		"scopes", len(session.Scopes),
		"max_sessions", maxSessions,
	)

	return &LoginOutput{
		Session:   session,
		ExpiresAt: session.ExpiresAt(c.sessions.TTL()),
		TTL:       c.sessions.TTL(),
	}, nil
}
