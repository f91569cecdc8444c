package payment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/account"
	"github.com/bellodavid/external-payment/metrics"
	"github.com/bellodavid/external-payment/models"
)

const provisionTimeout = 30 * time.Second

type provisionJob struct {
	sessionID string
	currency  string
	user      models.User
}

// ProvisionerPool executes account sign-ups off the checkout's critical path.
// Provisioning failure is logged and counted, never surfaced to the flow:
// payment collection must not be blocked by account creation.
type ProvisionerPool struct {
	jobs     chan provisionJob
	accounts *account.Client
	recorder metrics.Recorder
	logger   *zap.Logger
	quit     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewProvisionerPool(workers, queueSize int, accounts *account.Client, recorder metrics.Recorder, logger *zap.Logger) *ProvisionerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &ProvisionerPool{
		jobs:     make(chan provisionJob, queueSize),
		accounts: accounts,
		recorder: recorder,
		logger:   logger,
		quit:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	return p
}

// Submit queues a sign-up job. If the queue is full the job is dropped with a
// log line; the checkout proceeds regardless.
func (p *ProvisionerPool) Submit(sessionID, currency string, user models.User) {
	select {
	case p.jobs <- provisionJob{sessionID: sessionID, currency: currency, user: user}:
	default:
		p.logger.Warn("provisioning queue full, dropping sign-up job",
			zap.String("session_id", sessionID))
		p.recorder.IncCounter(metrics.EventProvisioningFailed, map[string]string{"currency": currency})
	}
}

func (p *ProvisionerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			p.process(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *ProvisionerPool) process(id int, job provisionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	if err := p.accounts.SignUp(ctx, job.user); err != nil {
		p.logger.Error("account provisioning failed",
			zap.Error(err),
			zap.Int("worker_id", id),
			zap.String("session_id", job.sessionID))
		p.recorder.IncCounter(metrics.EventProvisioningFailed, map[string]string{"currency": job.currency})
		return
	}

	p.logger.Info("account provisioned",
		zap.Int("worker_id", id),
		zap.String("session_id", job.sessionID))
}

// Stop shuts the workers down after the in-flight jobs finish. Idempotent.
func (p *ProvisionerPool) Stop() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
