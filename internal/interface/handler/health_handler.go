package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// defaultCheckTimeout は1つのバックエンドの確認に使う時間の上限です
const defaultCheckTimeout = 3 * time.Second

// HealthChecker はヘルスチェックを実行するインターフェースです
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckerFunc は関数をHealthCheckerとして扱います
type HealthCheckerFunc func(ctx context.Context) error

// Health はHealthCheckerを実装します
func (f HealthCheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler はヘルスチェック関連のHTTPハンドラーです
type HealthHandler struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewHealthHandler は新しいHealthHandlerを作成します
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checkers: make(map[string]HealthChecker),
		timeout:  defaultCheckTimeout,
	}
}

// RegisterChecker はヘルスチェッカーを登録します
func (h *HealthHandler) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Names は登録済みのチェッカー名を返します
func (h *HealthHandler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthResponse はヘルスチェックレスポンスを定義します
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse はレディネスチェックレスポンスを定義します
type ReadyResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services,omitempty"`
}

// ServiceStatus はサービスのステータスを定義します
type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckAll は全てのチェッカーを並行に実行し、失敗したものだけを返します
func (h *HealthHandler) CheckAll(ctx context.Context) map[string]error {
	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures = make(map[string]error)
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			if err := checker.Health(checkCtx); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
		}(name, checker)
	}
	wg.Wait()

	return failures
}

// Check はライブネスチェックを実行します
// GET /health
func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready はレディネスチェックを実行します
// GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	failures := h.CheckAll(c.Request().Context())

	services := make(map[string]ServiceStatus)
	for _, name := range h.Names() {
		if err, failed := failures[name]; failed {
			services[name] = ServiceStatus{Status: "unhealthy", Message: err.Error()}
			continue
		}
		services[name] = ServiceStatus{Status: "healthy"}
	}

	if len(failures) > 0 {
		return c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:   "not_ready",
			Services: services,
		})
	}
	return c.JSON(http.StatusOK, ReadyResponse{
		Status:   "ready",
		Services: services,
	})
}
