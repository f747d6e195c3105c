package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	spotprice "electricity-compare/internal/spotprice/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, event any) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.events...)
}

type flatRate struct{ rate decimal.Decimal }

func (r flatRate) RateFor(time.Time) decimal.Decimal { return r.rate }

func helsinki(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)
	return loc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hourlySeries(region string, start time.Time, n int, price string) []spotprice.SpotPriceHour {
	out := make([]spotprice.SpotPriceHour, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, spotprice.SpotPriceHour{
			Region:          region,
			Timestamp:       start.Add(time.Duration(i) * time.Hour).UTC(),
			PriceWithoutTax: dec(price),
			VATRate:         dec("0.24"),
		})
	}
	return out
}
