package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron"

	"github.com/adg-labs/pagepost/app/post"
)

// PublisherInterface is the single operation the scheduler drives.
type PublisherInterface interface {
	PublishNextApproved(ctx context.Context) (*post.Outcome, error)
}

var _ PublisherInterface = (*post.Publisher)(nil)

// Scheduler publishes the next approved post once a day at the
// configured local time. A run never crashes the process: failures are
// logged and the next day's run happens regardless.
type Scheduler struct {
	cron      *cron.Cron
	publisher PublisherInterface
	hour      int
	minute    int
}

func NewScheduler(publisher PublisherInterface, hour, minute int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		hour:      hour,
		minute:    minute,
	}
}

func (s *Scheduler) Start() error {
	// Seconds-resolution spec: second, minute, hour, dom, month, dow.
	spec := fmt.Sprintf("0 %d %d * * *", s.minute, s.hour)
	if err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("failed to schedule daily publish: %w", err)
	}

	s.cron.Start()
	slog.Info("Daily publish scheduled", "hour", s.hour, "minute", s.minute)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) run() {
	slog.Info("Scheduled publish run started")

	outcome, err := s.publisher.PublishNextApproved(context.Background())
	if err != nil {
		slog.Error("Scheduled publish run failed", "error", err)
		return
	}
	if outcome == nil {
		slog.Info("Scheduled publish run found no approved posts")
		return
	}

	slog.Info("Scheduled publish run succeeded",
		"post_id", outcome.PostID, "page_id", outcome.PageID, "post_url", outcome.PostURL)
}
