package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jborjar/paquetes/pkg/logger"
)

// Job はバックグラウンドジョブを定義します
// Interval が 0 の場合、Fn は停止まで戻らない常駐処理として1回だけ起動されます
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
}

// Manager はバックグラウンドワーカーを管理します
type Manager struct {
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager は新しいWorker Managerを作成します
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register はジョブを登録します
func (m *Manager) Register(job Job) {
	m.jobs = append(m.jobs, job)
}

// Jobs は登録済みジョブ名の一覧を返します
func (m *Manager) Jobs() []string {
	names := make([]string, len(m.jobs))
	for i, job := range m.jobs {
		names[i] = job.Name
	}
	return names
}

// Start は全ジョブのワーカーを開始します
func (m *Manager) Start() {
	for _, job := range m.jobs {
		m.wg.Add(1)
		if job.Interval <= 0 {
			go m.runResident(job)
			continue
		}
		go m.runJob(job)
	}
	logger.Info(m.ctx, "worker manager started", "jobs", len(m.jobs))
}

// runJob は単一ジョブのワーカーループを実行します
func (m *Manager) runJob(job Job) {
	defer m.wg.Done()

	logger.Info(m.ctx, "worker started", "job", job.Name, "interval", job.Interval)

	// 最初の実行を即座に行う
	m.execute(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info(m.ctx, "worker stopping", "job", job.Name)
			return
		case <-ticker.C:
			m.execute(job)
		}
	}
}

// runResident は常駐ジョブを実行します
func (m *Manager) runResident(job Job) {
	defer m.wg.Done()

	logger.Info(m.ctx, "resident worker started", "job", job.Name)
	m.execute(job)
	logger.Info(m.ctx, "resident worker stopped", "job", job.Name)
}

// execute はジョブを1回実行し、パニックとエラーを記録します
func (m *Manager) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(m.ctx, "worker job panicked", "job", job.Name, "panic", r)
		}
	}()

	if err := job.Fn(m.ctx); err != nil && m.ctx.Err() == nil {
		logger.Error(m.ctx, "worker job failed", "job", job.Name, "error", err)
	}
}

// Shutdown はすべてのワーカーを安全に停止します
func (m *Manager) Shutdown(timeout time.Duration) {
	logger.Info(m.ctx, "shutting down worker manager...")
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(context.Background(), "worker manager stopped gracefully")
	case <-time.After(timeout):
		logger.Warn(context.Background(), "worker manager shutdown timed out")
	}
}
