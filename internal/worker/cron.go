package worker

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the delivery cycle once a minute.
const DefaultSchedule = "* * * * *"

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// NextRun parses a 5-field cron expression and returns the duration until
// the next fire time.
func NextRun(expr string) (time.Duration, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cron expression: %w",
			err)
	}

	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		d = 0
	}

	return d, nil
}
