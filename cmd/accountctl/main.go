// accountctl はアカウントファイルとアカウントテーブルを管理するコマンドです
//
//	accountctl hash [-password PW]           パスワードのbcryptハッシュを出力（未指定時は標準入力から1行）
//	accountctl add -file users.yaml -username U [-password PW] [-scopes a,b] [-max-sessions N]
//	                                         アカウントを追加または更新
//	accountctl check -file users.yaml        アカウントファイルを検証
//	accountctl import -file users.yaml       アカウントファイルをPostgreSQLへ取り込み（DATABASE_URL）
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jborjar/paquetes/internal/domain/authz"
	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/valueobject"
	"github.com/jborjar/paquetes/internal/infrastructure/database"
	"github.com/jborjar/paquetes/internal/infrastructure/database/migrate"
	infraRepo "github.com/jborjar/paquetes/internal/infrastructure/repository"
	"github.com/jborjar/paquetes/internal/infrastructure/userfile"
)

const usage = "usage: accountctl <hash|add|check|import> [flags]"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "accountctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "hash":
		return runHash(args[1:], stdin, stdout)
	case "add":
		return runAdd(args[1:], stdin, stdout)
	case "check":
		return runCheck(args[1:], stdout)
	case "import":
		return runImport(ctx, args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runHash(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("hash", flag.ContinueOnError)
	password := flags.String("password", "", "plaintext password (read from stdin when empty)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	hashed, err := hashPassword(*password, stdin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hashed.Hash())
	return err
}

// hashPassword は平文をハッシュ化します。空の場合は標準入力から1行読みます
func hashPassword(plaintext string, stdin io.Reader) (valueobject.Password, error) {
	if plaintext == "" && stdin != nil {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return valueobject.Password{}, fmt.Errorf("failed to read password: %w", err)
		}
		plaintext = strings.TrimRight(line, "\r\n")
	}
	return valueobject.NewPassword(plaintext)
}

func runAdd(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	file := flags.String("file", "users.yaml", "accounts file (created when missing)")
	username := flags.String("username", "", "account username")
	password := flags.String("password", "", "plaintext password (read from stdin when empty)")
	scopes := flags.String("scopes", "", "comma separated scopes")
	maxSessions := flags.Int("max-sessions", 0, "per-user session limit (0 uses the server default)")
	disabled := flags.Bool("disabled", false, "disable the account")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("-username is required")
	}

	accounts, err := readAccounts(*file)
	if err != nil {
		return err
	}

	hashed, err := hashPassword(*password, stdin)
	if err != nil {
		return err
	}

	account := &entity.Account{
		Username:     strings.TrimSpace(*username),
		PasswordHash: hashed.Hash(),
		Scopes:       entity.NormalizeScopes(authz.ParseScopes(*scopes)),
		Disabled:     *disabled,
	}
	if *maxSessions > 0 {
		account.MaxSessions = maxSessions
	}

	replaced := false
	for i, existing := range accounts {
		if existing.Username == account.Username {
			accounts[i] = account
			replaced = true
		}
	}
	if !replaced {
		accounts = append(accounts, account)
	}

	if err := writeAccounts(*file, accounts); err != nil {
		return err
	}

	action := "added"
	if replaced {
		action = "updated"
	}
	_, err = fmt.Fprintf(stdout, "%s %s in %s\n", action, account.Username, *file)
	return err
}

// readAccounts はアカウントファイルを読み込みます。存在しない場合は空です
func readAccounts(path string) ([]*entity.Account, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	accounts, err := userfile.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accounts, nil
}

// writeAccounts は一時ファイルに書いてから置き換えます
func writeAccounts(path string, accounts []*entity.Account) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := userfile.Encode(f, accounts); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func runCheck(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	file := flags.String("file", "users.yaml", "accounts file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	store, err := userfile.Load(*file)
	if err != nil {
		return err
	}

	var errs []error
	for _, account := range store.Accounts() {
		cost, err := valueobject.PasswordFromHash(account.PasswordHash).Cost()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", account.Username, err))
			continue
		}
		if cost < valueobject.MinPasswordCost {
			fmt.Fprintf(stdout, "warning: %s uses bcrypt cost %d (minimum %d)\n",
				account.Username, cost, valueobject.MinPasswordCost)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s: %d accounts OK\n", store.Path(), store.Len())
	return err
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("import", flag.ContinueOnError)
	file := flags.String("file", "users.yaml", "accounts file")
	databaseURL := flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *databaseURL == "" {
		return errors.New("database url is required (-database-url or DATABASE_URL)")
	}

	store, err := userfile.Load(*file)
	if err != nil {
		return err
	}

	client, err := database.NewPostgresClient(ctx, *databaseURL, database.PoolConfig{MaxConns: 2})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := migrate.Run(client.SQLDB(), migrate.DialectPostgres); err != nil {
		return err
	}

	accounts := store.Accounts()
	repo := infraRepo.NewAccountRepository(database.NewTxManager(client.Pool()))
	if err := repo.UpsertAll(ctx, accounts); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "imported %d accounts from %s\n", len(accounts), store.Path())
	return err
}
