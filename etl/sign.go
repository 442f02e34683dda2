package etl

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/dlccrypto"
	"github.com/tee8z/weather-oracle/event"
	"github.com/tee8z/weather-oracle/outcome"
)

// ErrOutcomeNotFound is returned (and only logged, never propagated out
// of a tick) when a computed winners tuple does not correspond to any
// locking point published in the event's announcement. No partial
// attestation is written; the event stays Completed and is retried
// next tick.
var ErrOutcomeNotFound = errors.New("etl: winners tuple not found in event announcement")

// signEvents is the tick's final step: sign every event that is
// Completed, past its signing date, and unattested. Entries are
// ordered by id once (GetEventEntries already does this), winners are
// either the refund sequence (an all-zero-score event) or the top
// number_of_places_win entries by total score, and the resulting
// message must round-trip through the published locking point before
// the attestation secret is released.
func (o *Orchestrator) signEvents(events []event.Event, now time.Time) {
	for _, ev := range events {
		if ev.Status(now) != event.StatusCompleted || ev.Attestation != nil {
			continue
		}
		if err := o.signEvent(ev); err != nil {
			glog.Errorf("etl: signing failed for event %s: %v", ev.ID, err)
		}
	}
}

func (o *Orchestrator) signEvent(ev event.Event) error {
	entries, err := o.store.GetEventEntries(ev.ID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		// A zero-entry event is skipped entirely, not treated as an
		// all-indices-win refund.
		glog.V(2).Infof("etl: event %s has no entries, skipping signing past its signing date", ev.ID)
		return nil
	}

	// The announcement was enumerated over total_allowed_entries, not
	// the entry count actually reached, so outcome indexing must use
	// the same n or the released scalar would unlock the wrong point.
	winners := winningIndices(entries, ev.NumberOfPlacesWin, ev.TotalAllowedEntries)
	msg := outcome.EncodeMessage(winners)

	index := outcome.IndexOf(ev.TotalAllowedEntries, ev.NumberOfPlacesWin, winners)
	if index < 0 || index >= len(ev.Announcement.LockingPoints) {
		return ErrOutcomeNotFound
	}

	noncePoint, err := dlccrypto.NoncePoint(ev.Nonce)
	if err != nil {
		return err
	}
	lockingPoint := dlccrypto.LockingPoint(o.pub, noncePoint, msg)
	if !bytes.Equal(lockingPoint.SerializeCompressed(), ev.Announcement.LockingPoints[index]) {
		return ErrOutcomeNotFound
	}

	secret, err := dlccrypto.AttestationSecret(o.priv, ev.Nonce, msg)
	if err != nil {
		return err
	}

	attestation := secret.Bytes()
	return o.store.UpdateEventAttestation(ev.ID, attestation)
}

// winningIndices returns the winning entry positions (0-based, aligned
// to entries' id-sorted order): the full refund sequence
// [0, ..., totalAllowed-1] when every entry's base score is nil or
// zero, otherwise the top placesWin entries by total score, highest
// first.
func winningIndices(entries []event.Entry, placesWin, totalAllowed int) []int {
	allZero := true
	for _, e := range entries {
		if e.BaseScore != nil && *e.BaseScore != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		all := make([]int, totalAllowed)
		for i := range all {
			all[i] = i
		}
		return all
	}

	type ranked struct {
		index int
		score int64
	}
	ranks := make([]ranked, len(entries))
	for i, e := range entries {
		var score int64
		if e.Score != nil {
			score = *e.Score
		}
		ranks[i] = ranked{index: i, score: score}
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].score > ranks[j].score })

	k := placesWin
	if k > len(ranks) {
		k = len(ranks)
	}
	winners := make([]int, k)
	for i := 0; i < k; i++ {
		winners[i] = ranks[i].index
	}
	return winners
}
