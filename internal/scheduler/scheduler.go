// Package scheduler runs the daily report job.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"resale-admin/internal/metrics"
	"resale-admin/internal/models"
	"resale-admin/internal/notify"
	"resale-admin/internal/store"
	"resale-admin/internal/week"
)

// Scheduler handles the scheduled report
type Scheduler struct {
	cron         *cron.Cron
	properties   store.PropertyRepository
	reservations store.ReservationRepository
	sender       notify.Sender
	enabled      bool
	runTime      string
	loc          *time.Location
	now          func() time.Time
	isRunning    bool
}

// Options configures a Scheduler.
type Options struct {
	Enabled  bool
	RunTime  string // HH:MM
	Location *time.Location
}

// NewScheduler creates a new scheduler
func NewScheduler(properties store.PropertyRepository, reservations store.ReservationRepository, sender notify.Sender, opts Options) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	if sender == nil {
		sender = notify.Discard{}
	}
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		properties:   properties,
		reservations: reservations,
		sender:       sender,
		enabled:      opts.Enabled,
		runTime:      opts.RunTime,
		loc:          loc,
		now:          time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.enabled {
		log.Println("Scheduler: Daily report is disabled in configuration")
		return nil
	}

	cronSpec := parseDailyRunTime(s.runTime)
	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily report job...")
		if _, err := s.RunNow(context.Background()); err != nil {
			log.Printf("Scheduler: Daily report failed: %v", err)
		} else {
			log.Println("Scheduler: Daily report sent")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily report at %s (cron: %s)", s.runTime, cronSpec)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// Report is the content of one daily report.
type Report struct {
	Week       week.Key             `json:"week"`
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	Summary    metrics.Summary      `json:"summary"`
	ByProperty []metrics.SalesPoint `json:"by_property"`
	Text       string               `json:"text"`
}

// Build computes the report for the week bucket containing now.
func (s *Scheduler) Build(ctx context.Context) (*Report, error) {
	k := week.KeyOf(s.now().In(s.loc))
	from, to := k.Start(), k.End()

	props, err := s.properties.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	f := models.ReservationFilter{From: &from, To: &to}
	rs, err := s.reservations.ListReservations(ctx, f)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Week:       k,
		From:       from,
		To:         to,
		Summary:    metrics.Summarize(rs, f, len(props)),
		ByProperty: metrics.BuildSales(rs, f),
	}
	r.Text = formatReport(r)
	return r, nil
}

// RunNow immediately builds and sends the report (for manual trigger)
func (s *Scheduler) RunNow(ctx context.Context) (*Report, error) {
	r, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sender.Send(ctx, r.Text); err != nil {
		return r, fmt.Errorf("failed to send report: %w", err)
	}
	return r, nil
}

func formatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【週次レポート %s】%s〜%s\n", r.Week, week.FormatDate(r.From), week.FormatDate(r.To))
	fmt.Fprintf(&b, "予約: %d件 / %d泊\n", r.Summary.Reservations, r.Summary.Nights)
	fmt.Fprintf(&b, "売上: %s / ADR: %s\n", notify.FormatYen(r.Summary.Sales), notify.FormatYen(int64(r.Summary.ADR+0.5)))
	fmt.Fprintf(&b, "稼働率: %.1f%%\n", r.Summary.Occupancy*100)
	fmt.Fprintf(&b, "キャンセル: %d件", r.Summary.Cancelled)
	for _, p := range r.ByProperty {
		fmt.Fprintf(&b, "\n- %s: %s", p.PropertyName, notify.FormatYen(p.Sales))
	}
	return b.String()
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "08:00" -> "0 8 * * *"
func parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	log.Printf("Scheduler: Failed to parse time '%s', using default 08:00", timeStr)
	return "0 8 * * *"
}
