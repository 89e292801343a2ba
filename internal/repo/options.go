package repo

import (
	"time"

	"billing-ledger/internal/domain"
)

type options struct {
	now           func() time.Time
	location      *time.Location
	defaultStatus domain.OrderStatus
}

type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the time zone used to decide which calendar day an
// order or customer belongs to.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithDefaultStatus sets the status new orders are created with.
func WithDefaultStatus(status domain.OrderStatus) Option {
	return func(o *options) { o.defaultStatus = status }
}

func newOptions(opts []Option) options {
	o := options{
		now:           time.Now,
		location:      time.UTC,
		defaultStatus: domain.OrderPending,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) today() string {
	return o.now().In(o.location).Format(domain.DateLayout)
}

func (o options) day(t time.Time) string {
	return t.In(o.location).Format(domain.DateLayout)
}
