package fasting

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"fastd/internal/fasting/interfaces"
	"fastd/internal/models"
	"fastd/internal/providers"
	"fastd/internal/services"
	"fastd/internal/structures"
)

// Scheduler owns the daemon's periodic work: persistence saves (both
// the fixed interval and immediate requests poked by mutations) and
// the health-store sync poll. Mutation paths never block on it — save
// requests go through a buffered channel with drop-on-full semantics.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	service  services.SessionServiceInterface
	fm       *FileManager
	bridge   interfaces.BridgeInterface
	metrics  providers.MetricsProviderInterface
	cron     *gron.Cron
	saveCh   chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	opsMu    sync.Mutex
	syncMu   sync.Mutex
	lastSync time.Time
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.SessionServiceInterface, fm *FileManager, bridge interfaces.BridgeInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		fm:      fm,
		bridge:  bridge,
		metrics: metrics,
		saveCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		if err := s.Persist(); err != nil {
			return
		}
		s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
	})

	if s.config.HealthSync.Enabled && s.config.HealthSync.PollInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.HealthSync.PollInterval), func() {
			s.syncFromHealthStore()
		})
	}

	s.cron.Start()

	s.service.SetPersistHook(s.RequestSave)
	s.service.OnSessionClosed(s.pushClosedSession)

	s.wg.Add(1)
	go s.saveLoop()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
	s.wg.Wait()
}

// RequestSave asks for an out-of-band save. Non-blocking: called from
// inside mutation paths, a pending request is enough.
func (s *Scheduler) RequestSave() {
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) saveLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.saveCh:
			if err := s.Persist(); err == nil {
				s.logger.Debugf(providers.TypeApp, "Persisted data after mutation")
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) Restore() error {
	return s.fm.LoadFromFile(s.config.Persistence.FilePath)
}

// Persist saves the current snapshot. Failures are logged and surfaced
// but never roll anything back: memory stays authoritative and the
// next successful save reconciles disk state.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	if err := s.fm.SaveToFile(s.config.Persistence.FilePath); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

// syncFromHealthStore runs under syncMu: a fetch that outlasts the
// poll interval must not race a second fire over lastSync.
func (s *Scheduler) syncFromHealthStore() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	since := s.lastSync
	batch, err := s.bridge.FetchExternalSessions(since)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Health sync fetch failed: %s", err)
		return
	}
	s.lastSync = time.Now()
	if len(batch) == 0 {
		return
	}
	inserted, err := s.service.MergeExternal(batch)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Health sync merge failed: %s", err)
		return
	}
	s.logger.Infof(providers.TypeApp, "Health sync: %d fetched, %d merged", len(batch), inserted)
}

func (s *Scheduler) pushClosedSession(rec *models.SessionRecord) {
	if !s.config.HealthSync.Enabled {
		return
	}
	go func() {
		if err := s.bridge.PushSession(rec); err != nil {
			s.logger.Warnf(providers.TypeApp, "Health sync push failed: %s", err)
		}
	}()
}
