package reminder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// isoLayouts are the accepted layouts for due_at strings, tried in order.
// Layouts without an offset are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CoerceDueAt normalizes a wire due_at value to a timezone-aware UTC
// instant. It accepts a time.Time (converted to UTC), or an ISO-8601 string
// where a trailing literal Z is treated as +00:00 and a missing offset as
// UTC. An empty string, unparseable string, or unsupported type yields the
// current UTC time with a warning; the function never fails.
func CoerceDueAt(log *slog.Logger, value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()

	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Now().UTC()
		}

		if strings.HasSuffix(trimmed, "Z") {
			trimmed = strings.TrimSuffix(trimmed, "Z") + "+00:00"
		}

		for _, layout := range isoLayouts {
			t, err := time.ParseInLocation(
				layout, trimmed, time.UTC,
			)
			if err == nil {
				return t.UTC()
			}
		}

		log.Warn("Invalid due_at string; using current time",
			"due_at", v,
		)
		return time.Now().UTC()

	case nil:
		return time.Now().UTC()

	default:
		log.Warn("Unsupported due_at type; using current time",
			"due_at_type", fmt.Sprintf("%T", value),
		)
		return time.Now().UTC()
	}
}
