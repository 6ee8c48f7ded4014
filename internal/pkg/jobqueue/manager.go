package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bsam2019/mygrownet-engine/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	payoutTicker  *time.Ticker
	monthlyTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool

	lastQualifiedMonth string
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// InitManager builds the global manager around the given processors.
func InitManager(processors *Processors) *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v, err := strconv.Atoi(env.GetEnv("JOB_WORKERS", "5")); err == nil && v > 0 {
			workerCount = v
		}
		globalManager = &Manager{
			queue:  NewQueue(workerCount, processors),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	if globalManager == nil {
		panic("Job queue manager not initialized. Call InitManager first.")
	}
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	payoutInterval := 2 * time.Minute
	if v, err := strconv.Atoi(env.GetEnv("PAYOUT_INTERVAL_MINUTES", "2")); err == nil && v > 0 {
		payoutInterval = time.Duration(v) * time.Minute
	}
	m.payoutTicker = time.NewTicker(payoutInterval)
	m.wg.Add(1)
	go m.payoutWorker(m.stopCh, payoutInterval)

	// Hourly check; the worker itself decides when a new month needs an
	// evaluation run.
	m.monthlyTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.monthlyWorker(m.stopCh)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.payoutTicker != nil {
		m.payoutTicker.Stop()
	}
	if m.monthlyTicker != nil {
		m.monthlyTicker.Stop()
	}

	// The channel is handed to the workers at Start and must stay
	// closed-but-valid until they drain; Start replaces it.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// payoutWorker periodically enqueues a commission payout drain
func (m *Manager) payoutWorker(stopCh <-chan struct{}, interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started payout worker (interval: %s)", interval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Payout worker stopping")
			return
		case <-m.payoutTicker.C:
			payload := CommissionPayoutJobPayload{Limit: defaultPayoutLimit}
			if _, err := m.queue.EnqueueJob(JobTypeCommissionPayout, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueuing payout drain: %v", err)
			}
		}
	}
}

// monthlyWorker enqueues the qualification run for the previous calendar
// month once that month has closed
func (m *Manager) monthlyWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started monthly qualification worker")

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Monthly worker stopping")
			return
		case <-m.monthlyTicker.C:
			closedMonth := time.Now().AddDate(0, -1, 0).Format("2006-01")
			if m.lastQualifiedMonth == closedMonth {
				continue
			}
			payload := QualificationRunJobPayload{Month: closedMonth}
			if _, err := m.queue.EnqueueJob(JobTypeQualificationRun, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueuing qualification run: %v", err)
				continue
			}
			m.lastQualifiedMonth = closedMonth
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
