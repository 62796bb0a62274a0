package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// DefaultProcessInterval is the period between two delivery attempts
const DefaultProcessInterval = 2 * time.Second

var (
	deliveriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_deliveries_processed_total",
			Help: "Delivery attempts processed, partitioned by outcome status.",
		},
		[]string{"status"},
	)
	deliveryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_delivery_queue_depth",
			Help: "Deliveries still Queued after the last processor tick.",
		},
	)
	processorTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_processor_ticks_total",
			Help: "Delivery processor ticks run.",
		},
	)
)

// TickResult describes the delivery handled by one tick
type TickResult struct {
	Entry             *models.DeliveryLogEntry
	EngagementApplied bool
}

// DeliveryProcessor sends at most one queued delivery per tick
type DeliveryProcessor struct {
	store     *store.Store
	transport Transport
	interval  time.Duration
	logger    logrus.FieldLogger
}

// NewDeliveryProcessor creates a processor. A non-positive interval uses DefaultProcessInterval.
func NewDeliveryProcessor(st *store.Store, transport Transport, interval time.Duration, logger logrus.FieldLogger) *DeliveryProcessor {
	if interval <= 0 {
		interval = DefaultProcessInterval
	}
	if transport == nil {
		transport = NewSimulatedTransport(DefaultSuccessProbability, DefaultTransportError, 0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DeliveryProcessor{
		store:     st,
		transport: transport,
		interval:  interval,
		logger:    logger.WithField("component", "delivery_processor"),
	}
}

// Start launches the processor loop in a background goroutine and returns a stop function.
// Stop waits for an in-progress tick to finish; entries not yet processed stay Queued.
func (p *DeliveryProcessor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
					p.logger.WithError(err).Error("delivery tick failed")
				}
			}
		}
	}()

	p.logger.WithField("interval", p.interval.String()).Info("delivery processor started")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			p.logger.Info("delivery processor stopped")
		})
	}
}

// Tick processes the oldest Queued entry, if any. The status change, the engagement update and
// the audit records commit together. A nil result means the queue was empty.
func (p *DeliveryProcessor) Tick(ctx context.Context) (*TickResult, error) {
	processorTicks.Inc()

	var result *TickResult
	depth := -1
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		defer func() { depth = tx.QueuedCount() }()

		entry := tx.FirstQueued()
		if entry == nil {
			return nil
		}

		outcome := p.transport.Deliver(ctx, *entry.Clone())
		result = &TickResult{}

		if !outcome.Success {
			msg := outcome.ErrorMessage
			if err := tx.ResolveDelivery(entry.ID, models.DeliveryStatusError, &msg); err != nil {
				return err
			}
			tx.Record(models.SeverityError, models.AuditActionEmailSendFailed,
				fmt.Sprintf("Failed to send email to %s. Reason: %s", entry.LeadName, msg))
			result.Entry = entry.Clone()
			return nil
		}

		if err := tx.ResolveDelivery(entry.ID, models.DeliveryStatusSent, nil); err != nil {
			return err
		}
		tx.Record(models.SeveritySuccess, models.AuditActionEmailSent,
			fmt.Sprintf("Successfully sent email %q to %s.", entry.Subject, entry.LeadName))

		now := tx.Now()
		err := tx.UpdateLead(entry.ProjectID, entry.LeadID, func(l *models.Lead) {
			l.Engagement.Email = models.EmailStatusSent
			l.Engagement.LastContacted = &now
		})
		switch {
		case err == nil:
			result.EngagementApplied = true
		case errors.Is(err, store.ErrProjectNotFound), errors.Is(err, store.ErrLeadNotFound):
			// lead or project removed after enqueue
		default:
			return err
		}

		result.Entry = entry.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if depth >= 0 {
		deliveryQueueDepth.Set(float64(depth))
	}
	if result == nil {
		return nil, nil
	}

	deliveriesProcessed.WithLabelValues(string(result.Entry.Status)).Inc()

	fields := logrus.Fields{
		"delivery_id": result.Entry.ID,
		"lead_id":     result.Entry.LeadID,
		"status":      result.Entry.Status,
	}
	switch {
	case result.Entry.Status == models.DeliveryStatusError:
		p.logger.WithFields(fields).Warn("delivery failed")
	case !result.EngagementApplied:
		p.logger.WithFields(fields).Debug("delivery sent, lead no longer exists; engagement skipped")
	default:
		p.logger.WithFields(fields).Info("delivery sent")
	}
	return result, nil
}

// Drain runs ticks until the queue is empty or max ticks have run, returning the handled entries
func (p *DeliveryProcessor) Drain(ctx context.Context, max int) ([]*TickResult, error) {
	var results []*TickResult
	for i := 0; i < max; i++ {
		r, err := p.Tick(ctx)
		if err != nil {
			return results, err
		}
		if r == nil {
			break
		}
		results = append(results, r)
	}
	return results, nil
}
