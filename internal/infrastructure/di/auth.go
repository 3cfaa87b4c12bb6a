package di

import (
	authcmd "github.com/jborjar/paquetes/internal/usecase/auth/command"
	authqry "github.com/jborjar/paquetes/internal/usecase/auth/query"
)

// AuthUseCases はAuth関連のUseCaseを保持します
type AuthUseCases struct {
	// Commands
	Login           *authcmd.LoginCommand
	Logout          *authcmd.LogoutCommand
	LogoutAll       *authcmd.LogoutAllCommand
	RevokeSession   *authcmd.RevokeSessionCommand
	CleanupSessions *authcmd.CleanupSessionsCommand

	// Queries
	GetSession   *authqry.GetSessionQuery
	ListSessions *authqry.ListSessionsQuery
}

// NewAuthUseCases は新しいAuthUseCasesを作成します
func NewAuthUseCases(c *Container) *AuthUseCases {
	return &AuthUseCases{
		// Commands
		Login:           authcmd.NewLoginCommand(c.Credentials, c.SessionLimits, c.SessionService),
		Logout:          authcmd.NewLogoutCommand(c.SessionService),
		LogoutAll:       authcmd.NewLogoutAllCommand(c.SessionService),
		RevokeSession:   authcmd.NewRevokeSessionCommand(c.SessionService),
		CleanupSessions: authcmd.NewCleanupSessionsCommand(c.SessionService),

		// Queries
		GetSession:   authqry.NewGetSessionQuery(c.SessionService),
		ListSessions: authqry.NewListSessionsQuery(c.SessionService),
	}
}
