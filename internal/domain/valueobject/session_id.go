package valueobject

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSessionIDEmpty   = errors.New("session id cannot be empty")
	ErrSessionIDInvalid = errors.New("session id is invalid")
)

// sessionIDLength は正規形UUIDの文字数です
const sessionIDLength = 36

// SessionID はセッション識別子を表す値オブジェクトです
// 128ビットのランダム値(UUIDv4)を正規のテキスト形式で保持します
type SessionID struct {
	value string
}

// NewSessionID は暗号学的に安全な乱数から新しいSessionIDを生成します
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return SessionID{}, err
	}
	return SessionID{value: id.String()}, nil
}

// ParseSessionID は外部から受け取った文字列をSessionIDとして検証します
// 正規形(小文字ハイフン区切り)以外は受け付けません
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, ErrSessionIDEmpty
	}
	if len(s) != sessionIDLength {
		return SessionID{}, ErrSessionIDInvalid
	}

	id, err := uuid.Parse(s)
	if err != nil || id.String() != s {
		return SessionID{}, ErrSessionIDInvalid
	}
	return SessionID{value: s}, nil
}

// String は文字列を返します
func (id SessionID) String() string {
	return id.value
}

// IsZero は未設定かどうかを判定します
func (id SessionID) IsZero() bool {
	return id.value == ""
}
