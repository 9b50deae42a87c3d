package formatter

import (
	"fmt"
	"sync/atomic"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func f64(v float64) *float64 { return &v }

// newTestFormatter returns a formatter with a fixed clock and sequential ids.
func newTestFormatter() *Formatter {
	var n atomic.Int64
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("utt-%d", n.Add(1)) }),
	)
}
