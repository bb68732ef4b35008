package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	obscontext "github.com/smallbiznis/talentloop/internal/observability/context"
	"github.com/smallbiznis/talentloop/internal/observability/logger"
	"github.com/smallbiznis/talentloop/internal/observability/metrics"
	"github.com/smallbiznis/talentloop/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
	"github.com/smallbiznis/talentloop/internal/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reconciler applies a verified lifecycle event to entitlement state.
type Reconciler interface {
	HandleLifecycleEvent(ctx context.Context, event paymentdomain.LifecycleEvent) reconcile.Outcome
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	Adapters   *adapters.Registry
	Repo       paymentdomain.Repository
	Reconciler *reconcile.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.StripeConfig
	clock      clock.Clock
	genID      *snowflake.Node
	adapters   *adapters.Registry
	repo       paymentdomain.Repository
	reconciler Reconciler
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return newService(p, p.Reconciler)
}

func newService(p Params, reconciler Reconciler) *Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		cfg:        p.Cfg.Stripe,
		clock:      c,
		genID:      p.GenID,
		adapters:   p.Adapters,
		repo:       p.Repo,
		reconciler: reconciler,
		metrics:    p.Metrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.cfg.WebhookSecret,
		Tolerance:     s.cfg.WebhookTolerance,
		Now:           s.clock.Now,
	})
	if err != nil {
		return err
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	event.Provider = provider
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	correlationID := ulid.Make().String()
	ctx = obscontext.WithCorrelationID(ctx, correlationID)
	log := logger.WithContext(ctx, s.log).With(
		zap.String("provider", provider),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("event_type", string(event.Type)),
	)

	record, proceed, err := s.recordDelivery(ctx, event, correlationID)
	if err != nil {
		return err
	}
	if !proceed {
		log.Info("duplicate delivery acknowledged")
		return nil
	}

	s.metrics.RecordLifecycleEvent(ctx, provider, string(event.Type))
	outcome := s.reconciler.HandleLifecycleEvent(ctx, *event)
	if outcome.Retryable() {
		// Left unmarked so a redelivery is reconciled again.
		return nil
	}

	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, s.clock.Now(), outcomeLabel(outcome)); err != nil {
		log.Error("mark payment event processed", zap.Error(err))
	}
	return nil
}

// recordDelivery stores the event in the ledger. proceed is false when the
// same provider event has already been processed.
func (s *Service) recordDelivery(ctx context.Context, event *paymentdomain.LifecycleEvent, correlationID string) (*paymentdomain.EventRecord, bool, error) {
	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       string(event.Type),
		CustomerRef:     event.CustomerRef,
		CorrelationID:   correlationID,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      s.clock.Now(),
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return record, true, nil
	}

	existing, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("payment event vanished after conflict")
	}
	if existing.ProcessedAt != nil {
		return existing, false, nil
	}
	return existing, true, nil
}

func outcomeLabel(outcome reconcile.Outcome) string {
	if class := outcome.ErrorClass(); class != "" {
		return string(outcome.Action) + ":" + class
	}
	return string(outcome.Action)
}
