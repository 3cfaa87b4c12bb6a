// Package logger はslogの初期化と、リクエスト単位の属性をcontextから付与するヘルパーを提供します
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config はロガー設定を定義します
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, text
	Output    string // stdout, stderr またはファイルパス
	AddSource bool
}

// DefaultConfig はJSONでstdoutにinfo以上を出力する設定を返します
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: "stdout"}
}

type contextKey string

// contextに載せるログ属性のキー
const (
	RequestIDKey contextKey = "request_id"
	UsernameKey  contextKey = "username"
	SessionIDKey contextKey = "session_id"
)

// Setup は設定に従ってデフォルトロガーを差し替えます
func Setup(cfg Config) error {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(NewHandler(w, cfg)))
	return nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// NewHandler はcontextの属性を付与するslog.Handlerを返します
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	return contextHandler{Handler: base}
}

// ParseLevel はログレベル文字列を変換します。不明な値はinfoです
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler はレコードごとにrequest_id、username、session_idを追加します
// session_idは先頭だけを残して伏せます
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		r.AddAttrs(slog.String(string(RequestIDKey), v))
	}
	if v, ok := ctx.Value(UsernameKey).(string); ok && v != "" {
		r.AddAttrs(slog.String(string(UsernameKey), v))
	}
	if v, ok := ctx.Value(SessionIDKey).(string); ok && v != "" {
		r.AddAttrs(slog.String(string(SessionIDKey), MaskSessionID(v)))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// MaskSessionID はログ出力用にセッションIDの先頭8文字以外を伏せます
func MaskSessionID(id string) string {
	if len(id) <= 8 {
		return "********"
	}
	return id[:8] + "..."
}

// ContextWithRequestID はリクエストIDをコンテキストに追加します
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithUsername はユーザー名をコンテキストに追加します
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// ContextWithSessionID はセッションIDをコンテキストに追加します
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func Debug(ctx context.Context, msg string, args ...any) {
	slog.Default().DebugContext(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	slog.Default().InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	slog.Default().WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	slog.Default().ErrorContext(ctx, msg, args...)
}

// Log はレベルを呼び出し側で決める場合に使います
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	slog.Default().Log(ctx, level, msg, args...)
}
