package sessions

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweeper schedules the periodic expiry sweep. A non-empty cron
// schedule takes precedence; otherwise the interval is used via cron's
// @every syntax.
func (s *Store) StartSweeper(schedule string, interval time.Duration) error {
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	if schedule == "" {
		schedule = fmt.Sprintf("@every %s", interval)
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info().
		Str("schedule", schedule).
		Dur("session_timeout", s.timeout).
		Msg("Session sweeper started")
	return nil
}

// StopSweeper stops the scheduled sweep. Safe to call when never started.
func (s *Store) StopSweeper() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info().Msg("Session sweeper stopped")
}
