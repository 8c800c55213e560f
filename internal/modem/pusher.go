package modem

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/profile-control/pcc/internal/metrics"
	"github.com/profile-control/pcc/internal/profile"
)

// DefaultPushTimeout bounds a single modem sync call.
const DefaultPushTimeout = 10 * time.Second

// Pusher delivers profile state to the modem asynchronously. Callers never
// block on modem latency; failures are normalized, counted, and logged.
type Pusher struct {
	svc     Service
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewPusher creates a pusher around the given modem service.
func NewPusher(svc Service, log *zap.Logger) *Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pusher{
		svc:     svc,
		log:     log,
		timeout: DefaultPushTimeout,
	}
}

// SetTimeout overrides the per-call timeout. Call before first use.
func (p *Pusher) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// PushProfiles sends the full profile set to the modem in the background.
func (p *Pusher) PushProfiles(profiles []*profile.Profile, roaming bool) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := p.svc.SetProfiles(ctx, profiles, roaming)
		p.record(metrics.PushOpProfiles, err,
			zap.Int("count", len(profiles)), zap.Bool("roaming", roaming))
	}()
}

// PushInitialAttach sends the initial-attach profile to the modem in the
// background.
func (p *Pusher) PushInitialAttach(prof *profile.Profile, roaming bool) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := p.svc.SetInitialAttach(ctx, prof, roaming)
		p.record(metrics.PushOpInitialAttach, err,
			zap.String("profile", prof.String()), zap.Bool("roaming", roaming))
	}()
}

// Wait blocks until all in-flight pushes complete. Used during shutdown
// and in tests.
func (p *Pusher) Wait() {
	p.wg.Wait()
}

func (p *Pusher) record(op string, err error, fields ...zap.Field) {
	norm := NormalizeVendorError(err, nil)
	code := CodeString(norm)
	metrics.ModemPushesTotal.WithLabelValues(op, code).Inc()
	if norm != nil {
		p.log.Warn("modem push failed",
			append(fields, zap.String("op", op), zap.String("code", code), zap.Error(norm))...)
		return
	}
	p.log.Debug("modem push ok", append(fields, zap.String("op", op))...)
}
