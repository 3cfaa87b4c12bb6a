package request

// LoginRequest はログインリクエスト
// JSONとフォーム(application/x-www-form-urlencoded)の両方を受け付けます
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,username"`
	Password string `json:"password" form:"password" validate:"required,max=1024"`
	// Scopes はカンマ区切りのスコープ。資格情報ストアがスコープを決めない場合に使われます
	Scopes string `json:"scopes" form:"scopes" validate:"omitempty,scopes"`
}

// ListSessionsRequest は管理者向けセッション一覧リクエスト
type ListSessionsRequest struct {
	Username string `query:"username" validate:"omitempty,username"`
}

// SessionIDParam はパスパラメータのセッションID
type SessionIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}

// UsernameParam はパスパラメータのユーザー名
type UsernameParam struct {
	Username string `param:"username" validate:"required,username"`
}
