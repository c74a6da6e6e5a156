package rates

import (
	"fmt"
	"time"
)

// Kind classifies a failed lookup.
type Kind string

const (
	// KindTransport means the request could not complete.
	KindTransport Kind = "transport"
	// KindStatus means the upstream answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindDecode means the body did not match the expected shape.
	KindDecode Kind = "decode"
)

// LookupError reports a failed rate lookup for a date.
type LookupError struct {
	Kind   Kind
	Date   time.Time
	Status int
	Err    error
}

func (e *LookupError) Error() string {
	day := e.Date.Format(DateLayout)
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("rates: lookup %s: upstream status %d", day, e.Status)
	default:
		if e.Err == nil {
			return fmt.Sprintf("rates: lookup %s: %s failure", day, e.Kind)
		}
		return fmt.Sprintf("rates: lookup %s: %s: %v", day, e.Kind, e.Err)
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

// Code returns a stable identifier used as err_code in logs.
func (e *LookupError) Code() string { return "rates_" + string(e.Kind) }
