package weather

import (
	"context"
	"errors"
	"strings"
)

// Failover is a Provider that asks its providers in order and returns the first success.
// It moves to the next provider only on failures another provider could avoid: network,
// server and authentication errors. A city the first provider does not know is reported as
// such.
type Failover struct {
	providers []Provider
}

// NewFailover returns a Failover over providers. With a single provider it behaves exactly
// like that provider.
func NewFailover(providers ...Provider) *Failover {
	return &Failover{providers: providers}
}

func (f *Failover) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (f *Failover) Fetch(ctx context.Context, q Query) (CityRecord, error) {
	if len(f.providers) == 0 {
		return CityRecord{}, NewLookupError(KindGeneral, errors.New("no weather providers configured"))
	}

	var errs []error
	for _, p := range f.providers {
		rec, err := p.Fetch(ctx, q)
		if err == nil {
			return rec, nil
		}
		errs = append(errs, err)
		if !retryElsewhere(err) || ctx.Err() != nil {
			break
		}
	}
	// Earlier failures were all ones another provider might avoid, so the last one decides.
	last := errs[len(errs)-1]
	if len(errs) == 1 {
		return CityRecord{}, last
	}
	return CityRecord{}, &LookupError{Kind: KindOf(last), Status: statusOf(last), Err: errors.Join(errs...)}
}

func retryElsewhere(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer, KindAuth:
		return true
	default:
		return false
	}
}

func statusOf(err error) int {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Status
	}
	return 0
}
