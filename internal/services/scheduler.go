package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
)

// AuctionCloser is the slice of Closer the scheduler needs.
type AuctionCloser interface {
	CloseAuction(ctx context.Context, force bool) (*CloseResult, error)
}

// CloseScheduler periodically invokes the closer once the deadline has
// passed. The closer itself is idempotent, so ticks are speculative; leader
// election keeps multiple instances from racing each other on the same tick.
type CloseScheduler struct {
	cron       *cron.Cron
	closer     AuctionCloser
	leader     domain.LeaderElection
	instanceID string
	schedule   string
	log        logger.Logger
}

func NewCloseScheduler(
	closer AuctionCloser,
	leader domain.LeaderElection,
	instanceID, schedule string,
	log logger.Logger,
) *CloseScheduler {
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &CloseScheduler{
		cron:       cron.New(cron.WithSeconds()),
		closer:     closer,
		leader:     leader,
		instanceID: instanceID,
		schedule:   schedule,
		log:        log,
	}
}

func (s *CloseScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting close scheduler", "schedule", s.schedule)

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.CheckAndClose(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CloseScheduler) Stop() error {
	s.log.Info("Stopping close scheduler")
	s.cron.Stop()
	return nil
}

// CheckAndClose runs one speculative close attempt on the leader instance.
func (s *CloseScheduler) CheckAndClose(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Leader check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}

	result, err := s.closer.CloseAuction(ctx, false)
	if err != nil {
		s.log.Error("Scheduled close attempt failed", "error", err)
		return
	}
	if result.State == CloseCompleted {
		s.log.Info("Scheduled close completed",
			"winners", len(result.Winners),
			"notifications_sent", result.NotificationsSent,
			"notifications_failed", result.NotificationsFailed)
	}
}
