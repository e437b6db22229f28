// Package rounds maps wall-clock times and delays onto rounds of a randomness beacon that emits one round every
// `period` starting at `genesis`.
//
// All arithmetic is done on whole seconds. Sub-second parts of times and periods are floored.
package rounds

import (
	"fmt"
	"time"

	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// NextRound returns the round that will be produced at or after `now` and the time associated with it. Before
// genesis the answer is round 1 emitted at genesis.
func NextRound(now uint64, period time.Duration, genesis uint64) (round uint64, at uint64) {
	p := periodSeconds(period)
	if p == 0 || now < genesis {
		return 1, genesis
	}

	round = (now-genesis)/p + 1
	at = genesis + round*p
	return
}

// CurrentRound returns the most recently produced round as of `now`, never less than 1.
func CurrentRound(now uint64, period time.Duration, genesis uint64) uint64 {
	next, _ := NextRound(now, period, genesis)
	if next <= 1 {
		return next
	}

	return next - 1
}

// Schedule is the emission schedule of one beacon chain.
type Schedule struct {
	Period  time.Duration
	Genesis uint64 // Unix seconds
}

// Next is NextRound for a time.Time.
func (s Schedule) Next(t time.Time) (round uint64, at time.Time) {
	r, a := NextRound(unixSeconds(t), s.Period, s.Genesis)
	return r, time.Unix(int64(a), 0).UTC()
}

// At returns the round containing `t`.
func (s Schedule) At(t time.Time) uint64 {
	return CurrentRound(unixSeconds(t), s.Period, s.Genesis)
}

// After returns the round containing `now + d`. A zero delay resolves to the round containing `now`.
func (s Schedule) After(now time.Time, d time.Duration) uint64 {
	return s.At(now.Add(d))
}

// Resolve picks the disclosure round of a session: an explicit round wins, otherwise the delay is required. An
// explicit round must lie after the round containing `now`; an earlier one has already been signed.
func Resolve(s Schedule, now time.Time, d *time.Duration, explicitRound uint64) (uint64, error) {
	if explicitRound != 0 {
		if current := s.At(now); explicitRound <= current {
			return 0, errorcode.New(errorcode.ErrorRoundPassed, errorcode.StageRound, fmt.Errorf("轮次 %v 不晚于当前轮次 %v", explicitRound, current))
		}
		return explicitRound, nil
	}

	if d == nil || *d < 0 {
		return 0, errorcode.New(errorcode.ErrorInvalidDuration, errorcode.StageRound, nil)
	}

	return s.After(now, *d), nil
}

func periodSeconds(period time.Duration) uint64 {
	if period <= 0 {
		return 0
	}

	return uint64(period / time.Second)
}

func unixSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}

	return uint64(s)
}
