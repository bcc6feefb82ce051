package fasting

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"fastd/internal/providers"
	"fastd/internal/services"
	"fastd/internal/structures"
)

const defaultTickInterval = time.Second

// Ticker drives live elapsed/progress recomputation while a fast is
// active. Pull model: each tick reads the controller and publishes the
// values as gauges; it never writes to the history store. The loop is
// started on the Idle→Active transition and stopped on Active→Idle or
// daemon shutdown so there are no idle wakeups.
type Ticker struct {
	config   *structures.Config
	logger   providers.Logger
	service  services.SessionServiceInterface
	metrics  providers.MetricsProviderInterface
	interval time.Duration

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewTicker(config *structures.Config, logger providers.Logger, service services.SessionServiceInterface, metrics providers.MetricsProviderInterface) *Ticker {
	interval := config.Fasting.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Ticker{
		config:   config,
		logger:   logger,
		service:  service,
		metrics:  metrics,
		interval: interval,
	}
}

// Init subscribes to controller state changes and starts ticking
// immediately if a session was restored as active.
func (t *Ticker) Init() {
	t.service.OnStateChange(func(active bool) {
		if active {
			t.start()
		} else {
			t.stop()
		}
	})
	if state, _ := t.service.CurrentState(); state == services.StateActive {
		t.start()
	}
}

func (t *Ticker) Shutdown() {
	t.stop()
}

func (t *Ticker) Running() bool {
	return t.running.Load()
}

func (t *Ticker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running.Load() {
		return
	}
	t.stopCh = make(chan struct{})
	t.running.Store(true)
	t.wg.Add(1)
	go t.loop(t.stopCh)
	t.logger.Debugf(providers.TypeApp, "Ticker started")
}

func (t *Ticker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.Load() {
		return
	}
	close(t.stopCh)
	t.running.Store(false)
	t.wg.Wait()
	t.tick()
	t.logger.Debugf(providers.TypeApp, "Ticker stopped")
}

func (t *Ticker) loop(stopCh chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.tick()
	for {
		select {
		case <-ticker.C:
			t.tick()
		case <-stopCh:
			return
		}
	}
}

func (t *Ticker) tick() {
	now := time.Now()
	t.metrics.SetActiveElapsed(t.service.Elapsed(now))
	t.metrics.SetActiveProgress(t.service.Progress(now))
}
