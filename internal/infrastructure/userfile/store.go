// Package userfile はYAMLのアカウントファイルをAccountRepositoryとして提供します
//
// ファイル形式:
//
//	users:
//	  - username: alice
//	    password_hash: $2a$12$...
//	    scopes: [sales:read, inventory:admin]
//	    max_sessions: 3
//	    disabled: false
package userfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/pkg/logger"
)

// accountRecord はファイル上のアカウント表現です
type accountRecord struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Scopes       []string `yaml:"scopes,omitempty"`
	MaxSessions  *int     `yaml:"max_sessions,omitempty"`
	Disabled     bool     `yaml:"disabled,omitempty"`
}

type document struct {
	Users []accountRecord `yaml:"users"`
}

// RevokeFunc はユーザーの全セッションを削除し、削除件数を返します
type RevokeFunc func(ctx context.Context, username string) (int, error)

// Store はアカウントファイルの内容をメモリに保持します
type Store struct {
	path string

	mu       sync.RWMutex
	accounts map[string]*entity.Account
	revoke   RevokeFunc
}

// Load はアカウントファイルを読み込んでStoreを作成します
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetRevokeFunc はRefreshで資格情報が変わったユーザーに対して呼ぶ関数を設定します
func (s *Store) SetRevokeFunc(fn RevokeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoke = fn
}

// Path は読み込み元のファイルパスを返します
func (s *Store) Path() string {
	return s.path
}

// Reload はファイルを読み直し、既存のセッションを失効させるべきユーザー名を昇順で返します
// 読み込みに失敗した場合は以前の内容を保持します
func (s *Store) Reload() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	accounts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts file %s: %w", s.path, err)
	}

	index := make(map[string]*entity.Account, len(accounts))
	for _, a := range accounts {
		index[a.Username] = a
	}

	s.mu.Lock()
	prev := s.accounts
	s.accounts = index
	s.mu.Unlock()

	return changedAccounts(prev, index), nil
}

// Refresh はファイルを読み直し、変更されたアカウントのセッションをRevokeFuncで削除します
// 削除に失敗したユーザーはエラーにまとめて返しますが、再読み込み自体は反映されます
func (s *Store) Refresh(ctx context.Context) error {
	changed, err := s.Reload()
	if err != nil {
		return err
	}

	s.mu.RLock()
	revoke := s.revoke
	s.mu.RUnlock()
	if revoke == nil {
		return nil
	}

	var errs []error
	for _, username := range changed {
		n, err := revoke(ctx, username)
		if err != nil {
			errs = append(errs, fmt.Errorf("revoke sessions of %s: %w", username, err))
			continue
		}
		logger.Info(ctx, "sessions revoked after account change", "username", username, "sessions", n)
	}
	return errors.Join(errs...)
}

// changedAccounts はログイン可能だったアカウントのうち、削除・無効化された、
// またはパスワードハッシュかスコープが変わったものを返します
func changedAccounts(prev, next map[string]*entity.Account) []string {
	var changed []string
	for username, old := range prev {
		if !old.CanLogin() {
			continue
		}
		cur, ok := next[username]
		if !ok || !cur.CanLogin() ||
			cur.PasswordHash != old.PasswordHash ||
			!slices.Equal(cur.Scopes, old.Scopes) {
			changed = append(changed, username)
		}
	}
	sort.Strings(changed)
	return changed
}

// FindByUsername はユーザー名でアカウントを検索します
func (s *Store) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

// Accounts は全アカウントの複製を返します
func (s *Store) Accounts() []*entity.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entity.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		result = append(result, cloneAccount(a))
	}
	return result
}

// Len は保持しているアカウント数を返します
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Decode はYAMLドキュメントからアカウントを読み込み、検証します
func Decode(r io.Reader) ([]*entity.Account, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Users))
	accounts := make([]*entity.Account, 0, len(doc.Users))
	var errs []error

	for i, rec := range doc.Users {
		username := strings.TrimSpace(rec.Username)
		switch {
		case username == "":
			errs = append(errs, fmt.Errorf("users[%d]: username is required", i))
			continue
		case rec.PasswordHash == "":
			errs = append(errs, fmt.Errorf("users[%d] %s: password_hash is required", i, username))
			continue
		case rec.MaxSessions != nil && *rec.MaxSessions < 1:
			errs = append(errs, fmt.Errorf("users[%d] %s: max_sessions must be at least 1", i, username))
			continue
		}
		if _, dup := seen[username]; dup {
			errs = append(errs, fmt.Errorf("users[%d] %s: duplicate username", i, username))
			continue
		}
		seen[username] = struct{}{}

		accounts = append(accounts, &entity.Account{
			Username:     username,
			PasswordHash: rec.PasswordHash,
			Scopes:       entity.NormalizeScopes(rec.Scopes),
			MaxSessions:  rec.MaxSessions,
			Disabled:     rec.Disabled,
		})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Encode はアカウントをYAMLドキュメントとして書き出します
func Encode(w io.Writer, accounts []*entity.Account) error {
	doc := document{Users: make([]accountRecord, 0, len(accounts))}
	for _, a := range accounts {
		doc.Users = append(doc.Users, accountRecord{
			Username:     a.Username,
			PasswordHash: a.PasswordHash,
			Scopes:       entity.NormalizeScopes(a.Scopes),
			MaxSessions:  a.MaxSessions,
			Disabled:     a.Disabled,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func cloneAccount(a *entity.Account) *entity.Account {
	c := *a
	c.Scopes = append([]string(nil), a.Scopes...)
	if a.MaxSessions != nil {
		n := *a.MaxSessions
		c.MaxSessions = &n
	}
	return &c
}

// インターフェースの実装を保証
var _ repository.AccountRepository = (*Store)(nil)
