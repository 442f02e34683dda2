package etl

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"

	"github.com/tee8z/weather-oracle/dlccrypto"
	"github.com/tee8z/weather-oracle/event"
	"github.com/tee8z/weather-oracle/eventstore"
	"github.com/tee8z/weather-oracle/outcome"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *eventstore.Store, *secp256k1.PrivateKey) {
	t.Helper()
	store, err := eventstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return New(store, nil, priv, time.Hour), store, priv
}

func signableEvent(t *testing.T, priv *secp256k1.PrivateKey, n, k int) event.Event {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("new uuidv7: %v", err)
	}
	nonce, err := dlccrypto.NewNonce()
	if err != nil {
		t.Fatalf("new nonce: %v", err)
	}
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	signing := start.Add(27 * time.Hour)
	announcement, err := dlccrypto.BuildAnnouncement(priv.PubKey(), nonce, n, k, signing)
	if err != nil {
		t.Fatalf("build announcement: %v", err)
	}
	return event.Event{
		ID:                     id,
		CoordinatorPubkey:      "bc1qcoordinator",
		Locations:              []string{"KDEN"},
		StartObservationDate:   start,
		EndObservationDate:     start.Add(24 * time.Hour),
		SigningDate:            signing,
		TotalAllowedEntries:    n,
		NumberOfValuesPerEntry: 1,
		NumberOfPlacesWin:      k,
		ScoringFields:          []string{"temp_high"},
		Nonce:                  nonce,
		Announcement:           announcement,
	}
}

func addEntries(t *testing.T, store *eventstore.Store, ev event.Event, count int) []event.Entry {
	t.Helper()
	entries := make([]event.Entry, count)
	for i := range entries {
		id, err := uuid.NewV7()
		if err != nil {
			t.Fatalf("new uuidv7: %v", err)
		}
		entries[i] = event.Entry{
			ID:      id,
			EventID: ev.ID,
			ExpectedObservations: []event.Choice{
				{Station: "KDEN", Field: "temp_high", Rule: event.RulePar},
			},
		}
	}
	if err := store.AddEventEntries(entries); err != nil {
		t.Fatalf("add entries: %v", err)
	}
	return entries
}

func storedAttestation(t *testing.T, store *eventstore.Store, id uuid.UUID) [32]byte {
	t.Helper()
	got, _, _, err := store.GetEvent(id)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Attestation == nil {
		t.Fatal("expected attestation to be persisted")
	}
	return *got.Attestation
}

func assertUnlocks(t *testing.T, ev event.Event, attestation [32]byte, winners []int) {
	t.Helper()
	var s secp256k1.ModNScalar
	if overflow := s.SetBytes(&attestation); overflow != 0 {
		t.Fatal("attestation scalar overflows curve order")
	}

	index := outcome.IndexOf(ev.TotalAllowedEntries, ev.NumberOfPlacesWin, winners)
	if index < 0 {
		t.Fatalf("winners %v not in enumeration", winners)
	}
	published := ev.Announcement.LockingPoints[index]
	lp, err := secp256k1.ParsePubKey(published)
	if err != nil {
		t.Fatalf("parse published locking point: %v", err)
	}
	if !dlccrypto.VerifyUnlocks(&s, lp) {
		t.Fatalf("attestation does not unlock locking_points[%d] for winners %v", index, winners)
	}
}

// TestSignEvent_TopPlacesWin: three entries with
// base scores 40/30/10 and places_win=2 sign the winners tuple [0, 1],
// and the released scalar unlocks exactly that outcome's published
// locking point.
func TestSignEvent_TopPlacesWin(t *testing.T) {
	o, store, priv := newTestOrchestrator(t)

	ev := signableEvent(t, priv, 3, 2)
	if err := store.AddEvent(ev); err != nil {
		t.Fatalf("add event: %v", err)
	}
	entries := addEntries(t, store, ev, 3)

	bases := []int64{40, 30, 10}
	scores := make([]eventstore.EntryScore, len(entries))
	for i, e := range entries {
		scores[i] = eventstore.EntryScore{EntryID: e.ID, Total: bases[i] * 10_000, Base: bases[i]}
	}
	if err := store.UpdateEntryScores(scores); err != nil {
		t.Fatalf("update scores: %v", err)
	}

	now := ev.SigningDate.Add(time.Second)
	o.signEvents([]event.Event{ev}, now)

	attestation := storedAttestation(t, store, ev.ID)
	assertUnlocks(t, ev, attestation, []int{0, 1})

	// Re-running the sign step over an already-signed event is a
	// no-op: the stored attestation is unchanged and
	// UpdateEventAttestation treats the identical value as a no-op.
	o.signEvents([]event.Event{ev}, now)
	if again := storedAttestation(t, store, ev.ID); again != attestation {
		t.Fatal("re-signing changed the stored attestation")
	}
}

// TestSignEvent_RefundFallback: all base scores
// zero signs the refund outcome [0, 1], unlocking the announcement's
// last locking point.
func TestSignEvent_RefundFallback(t *testing.T) {
	o, store, priv := newTestOrchestrator(t)

	ev := signableEvent(t, priv, 2, 1)
	if err := store.AddEvent(ev); err != nil {
		t.Fatalf("add event: %v", err)
	}
	entries := addEntries(t, store, ev, 2)

	scores := make([]eventstore.EntryScore, len(entries))
	for i, e := range entries {
		scores[i] = eventstore.EntryScore{EntryID: e.ID, Total: 10_000, Base: 0}
	}
	if err := store.UpdateEntryScores(scores); err != nil {
		t.Fatalf("update scores: %v", err)
	}

	o.signEvents([]event.Event{ev}, ev.SigningDate.Add(time.Second))

	attestation := storedAttestation(t, store, ev.ID)
	var s secp256k1.ModNScalar
	s.SetBytes(&attestation)
	last := ev.Announcement.LockingPoints[len(ev.Announcement.LockingPoints)-1]
	lp, err := secp256k1.ParsePubKey(last)
	if err != nil {
		t.Fatalf("parse refund locking point: %v", err)
	}
	if !dlccrypto.VerifyUnlocks(&s, lp) {
		t.Fatal("refund attestation does not unlock the last (refund) locking point")
	}
}

// TestSignEvent_ZeroEntriesSkips: an event with no entries is never
// signed, even past its signing date.
func TestSignEvent_ZeroEntriesSkips(t *testing.T) {
	o, store, priv := newTestOrchestrator(t)

	ev := signableEvent(t, priv, 3, 2)
	if err := store.AddEvent(ev); err != nil {
		t.Fatalf("add event: %v", err)
	}

	o.signEvents([]event.Event{ev}, ev.SigningDate.Add(time.Second))

	got, _, _, err := store.GetEvent(ev.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Attestation != nil {
		t.Fatal("zero-entry event must not be signed")
	}
}

// TestWinningIndices covers the rank computation in isolation.
func TestWinningIndices(t *testing.T) {
	score := func(v int64) *int64 { return &v }

	entries := []event.Entry{
		{Score: score(300_000), BaseScore: score(30)},
		{Score: score(400_000), BaseScore: score(40)},
		{Score: score(100_000), BaseScore: score(10)},
	}
	got := winningIndices(entries, 2, 3)
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("winningIndices = %v, want [1 0]", got)
	}

	// An all-zero event refunds the full allowed-entry sequence, even
	// when fewer entries were actually submitted — the announcement's
	// refund outcome was enumerated over total_allowed_entries.
	zeros := []event.Entry{{BaseScore: score(0)}, {}}
	got = winningIndices(zeros, 1, 3)
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("all-zero winningIndices = %v, want [0 1 2]", got)
	}
}
