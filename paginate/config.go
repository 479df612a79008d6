package paginate

import (
	"errors"
	"time"

	"go.uber.org/multierr"
)

// Config is paginator configuration.
type Config struct {
	// VisibleColumnCount is number of columns composing one spread.
	VisibleColumnCount int
	// ColumnGap is space between columns in layout units.
	ColumnGap int
	// SettleDelay is best effort wait before trusting rendering host layout.
	SettleDelay time.Duration
}

const (
	DefaultVisibleColumnCount = 2
	DefaultColumnGap          = 20
	DefaultSettleDelay        = 100 * time.Millisecond
)

// DefaultConfig returns configuration with default values.
func DefaultConfig() Config {
	return Config{
		VisibleColumnCount: DefaultVisibleColumnCount,
		ColumnGap:          DefaultColumnGap,
		SettleDelay:        DefaultSettleDelay,
	}
}

// Validate checks configuration values.
func (c Config) Validate() error {
	var err error
	if c.VisibleColumnCount <= 0 {
		err = multierr.Append(err, errors.New("visible column count must be positive"))
	}
	if c.ColumnGap < 0 {
		err = multierr.Append(err, errors.New("column gap must not be negative"))
	}
	if c.SettleDelay < 0 {
		err = multierr.Append(err, errors.New("settle delay must not be negative"))
	}
	return err
}
