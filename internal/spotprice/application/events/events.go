package events

import "time"

// SpotPricesIngested is published after new hours were stored for a region.
// [Start, End) covers every inserted hour.
type SpotPricesIngested struct {
	Region     string
	Start      time.Time
	End        time.Time
	Inserted   int
	Source     string
	OccurredAt time.Time
}

// SpotAveragesCalculated is published after averages of a region changed.
type SpotAveragesCalculated struct {
	Region     string
	Count      int
	OccurredAt time.Time
}
