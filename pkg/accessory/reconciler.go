package accessory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/session"
)

// Reconciler timing defaults
const (
	DefaultPollInterval   = 3 * time.Second
	DefaultSettleDelay    = 1500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// Options tunes a Reconciler. Zero values select the defaults.
type Options struct {
	// PollInterval is how often the full service list is re-fetched
	PollInterval time.Duration

	// SettleDelay is how long after each write the list is fetched again,
	// to pick up side effects such as a switch toggling a sensor. Every
	// write gets its own delayed fetch.
	SettleDelay time.Duration

	// RequestTimeout bounds every call to the bridge
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return o
}

// Reconciler keeps one session's view of the bridge accessories current
// and applies the control commands it sends. Use one Reconciler per
// session.
type Reconciler struct {
	client    Client
	validator *schema.Validator
	opts      Options
	logger    zerolog.Logger

	commands chan SetRequest
	done     chan struct{}

	// services is only touched by the run goroutine
	services []Service
}

// NewReconciler creates a reconciler backed by client. validator may be
// nil to skip payload validation.
func NewReconciler(client Client, validator *schema.Validator, opts Options) *Reconciler {
	return &Reconciler{
		client:    client,
		validator: validator,
		opts:      opts.withDefaults(),
		logger:    log.Logger,
		commands:  make(chan SetRequest, 16),
		done:      make(chan struct{}),
	}
}

// Bind implements session.Binder.
func (r *Reconciler) Bind(s *session.Session) func() {
	r.logger = s.Logger().With().Str("controller", "accessories").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := s.On(session.EventAccessoryControl, r.controlHandler(ctx))

	go r.run(ctx, s)

	return func() {
		unsubscribe()
		cancel()
		<-r.done
		r.logger.Debug().Msg("Accessory reconciler stopped")
	}
}

func (r *Reconciler) controlHandler(ctx context.Context) session.Handler {
	return func(data json.RawMessage) {
		req, err := r.decodeControl(data)
		if err != nil {
			r.logger.Debug().Err(err).Msg("Ignoring invalid accessory-control message")
			return
		}
		if req == nil {
			return
		}

		select {
		case r.commands <- *req:
		case <-ctx.Done():
		}
	}
}

func (r *Reconciler) decodeControl(data json.RawMessage) (*SetRequest, error) {
	if r.validator != nil {
		if err := r.validator.ValidateJSON(schema.ControlMessage, data); err != nil {
			return nil, err
		}
	}

	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return msg.Set, nil
}

func (r *Reconciler) run(ctx context.Context, s *session.Session) {
	defer close(r.done)

	r.initialLoad(ctx, s)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	// Each accepted command schedules its own delayed refetch, keyed so
	// the ones still pending can be stopped on teardown.
	settled := make(chan uint64)
	settles := make(map[uint64]*time.Timer)
	var nextSettle uint64
	defer func() {
		for _, t := range settles {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			r.reload(ctx, s)

		case req := <-r.commands:
			if !r.apply(ctx, req) {
				continue
			}
			r.reload(ctx, s)

			nextSettle++
			id := nextSettle
			settles[id] = time.AfterFunc(r.opts.SettleDelay, func() {
				select {
				case settled <- id:
				case <-ctx.Done():
				}
			})

		case id := <-settled:
			delete(settles, id)
			r.reload(ctx, s)
		}
	}
}

// initialLoad fetches the services, refreshes every characteristic and
// sends the first snapshot.
func (r *Reconciler) initialLoad(ctx context.Context, s *session.Session) {
	services := r.load(ctx)

	for i := range services {
		callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
		err := r.client.RefreshCharacteristics(callCtx, &services[i])
		cancel()
		if err != nil {
			r.logger.Debug().Err(err).
				Int("aid", services[i].AID).
				Int("iid", services[i].IID).
				Msg("Failed to refresh characteristics")
		}
	}

	r.publish(ctx, s, services)
}

func (r *Reconciler) reload(ctx context.Context, s *session.Session) {
	r.publish(ctx, s, r.load(ctx))
}

func (r *Reconciler) publish(ctx context.Context, s *session.Session, services []Service) {
	if ctx.Err() != nil {
		return
	}
	r.services = services
	if err := s.Emit(session.EventAccessoriesData, services); err != nil {
		r.logger.Debug().Err(err).Msg("Failed to send accessories snapshot")
	}
}

// load fetches the full service list. Failures are logged and yield an
// empty list so the client still gets a snapshot.
func (r *Reconciler) load(ctx context.Context) []Service {
	callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	services, err := r.client.ListServices(callCtx)
	if err != nil {
		if ctx.Err() == nil {
			r.logLoadError(err)
		}
		return []Service{}
	}
	if services == nil {
		services = []Service{}
	}
	return services
}

func (r *Reconciler) logLoadError(err error) {
	switch {
	case errors.Is(err, ErrAuthRequired):
		r.logger.Warn().Msg("Homebridge must be running in insecure mode to view and control accessories")
	case errors.Is(err, ErrNotConfigured):
		r.logger.Error().Msg("config.json does not define a port under bridge.port")
	default:
		r.logger.Error().Err(err).Msg("Failed to load accessories from Homebridge")
	}
}

// apply writes req to the bridge. It reports whether a write was made.
func (r *Reconciler) apply(ctx context.Context, req SetRequest) bool {
	svc := FindService(r.services, req.AID, req.SIID)
	if svc == nil {
		r.logger.Debug().
			Int("aid", req.AID).
			Int("siid", req.SIID).
			Msg("Dropping control command for unknown service")
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	if err := r.client.SetCharacteristic(callCtx, svc, req.IID, req.Value); err != nil {
		r.logger.Error().Err(err).
			Int("aid", req.AID).
			Int("iid", req.IID).
			Msg("Failed to set characteristic")
		return false
	}

	r.logger.Info().
		Str("service", svc.ServiceName).
		Int("aid", req.AID).
		Int("iid", req.IID).
		Interface("value", req.Value).
		Msg("Characteristic set")
	return true
}
