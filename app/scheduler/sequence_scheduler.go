package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSequenceSchedule is the cron spec the sequencer runs on
const DefaultSequenceSchedule = "@every 1m"

var sequenceStepsAdvanced = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "outreach_sequence_steps_advanced_total",
		Help: "Enrolled leads moved to their next campaign step.",
	},
)

// EnrollmentAdvancer moves enrolled leads to their next due step
type EnrollmentAdvancer interface {
	AdvanceDueEnrollments(ctx context.Context, now time.Time) (int, error)
}

// SequenceScheduler periodically advances campaign enrollments past step 1
type SequenceScheduler struct {
	advancer EnrollmentAdvancer
	schedule string
	clock    func() time.Time
	logger   logrus.FieldLogger
}

// NewSequenceScheduler creates a sequence scheduler. An empty schedule uses DefaultSequenceSchedule.
func NewSequenceScheduler(advancer EnrollmentAdvancer, schedule string, clock func() time.Time, logger logrus.FieldLogger) *SequenceScheduler {
	if schedule == "" {
		schedule = DefaultSequenceSchedule
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SequenceScheduler{
		advancer: advancer,
		schedule: schedule,
		clock:    clock,
		logger:   logger.WithField("component", "sequence_scheduler"),
	}
}

// Start registers the job on a cron runner and returns a stop function that waits for a
// running job to complete
func (s *SequenceScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sequencer schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.logger.WithField("schedule", s.schedule).Info("sequence scheduler started")

	return func() {
		cancel()
		<-c.Stop().Done()
		s.logger.Info("sequence scheduler stopped")
	}, nil
}

// RunOnce advances every enrollment whose next step is due
func (s *SequenceScheduler) RunOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	n, err := s.advancer.AdvanceDueEnrollments(ctx, s.clock().UTC())
	if err != nil {
		s.logger.WithError(err).Error("advancing enrollments failed")
		return 0
	}
	sequenceStepsAdvanced.Add(float64(n))
	return n
}
