package paginate

import "errors"

var (
	// ErrContentLoadFailed is reported when loader fails to bring content unit
	// in. It is never retried automatically.
	ErrContentLoadFailed = errors.New("content load failed")
	// ErrTargetUnresolved means element or location was not found in the
	// active content unit.
	ErrTargetUnresolved = errors.New("navigation target unresolved")
	// ErrSpreadOutOfRange means resolved spread is outside of laid out content.
	ErrSpreadOutOfRange = errors.New("spread index out of range")
	// ErrSuperseded is delivered to a deferred request replaced by a newer one.
	ErrSuperseded = errors.New("request superseded")
	// ErrNoContent means there is no active content unit to navigate in.
	ErrNoContent = errors.New("no active content unit")
)
