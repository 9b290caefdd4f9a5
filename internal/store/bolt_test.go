package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	snap := &Snapshot{
		NodeID:         5,
		ManufacturerID: 0x0129,
		ProductType:    0x0002,
		ProductID:      0x0800,
		Variant:        "A",
		LockState:      "locked",
		Battery:        88,
		Slots:          []SlotRecord{{SlotID: 1, Present: true}, {SlotID: 2, Present: false}},
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSnapshot(5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSnapshot(9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot(&Snapshot{NodeID: 5, LockState: "unlocked", Battery: -1}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSnapshot(5); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSnapshot(5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}

	// Deleting a missing snapshot is not an error.
	if err := s.DeleteSnapshot(5); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateSnapshot(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot(&Snapshot{NodeID: 5, LockState: "unknown", Battery: -1}); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateSnapshot(5, func(snap *Snapshot) error {
		snap.LockState = "jammed"
		snap.Battery = 12
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSnapshot(5)
	if err != nil {
		t.Fatal(err)
	}
	if got.LockState != "jammed" || got.Battery != 12 {
		t.Errorf("snapshot = %+v, want jammed/12", got)
	}

	if err := s.UpdateSnapshot(6, func(*Snapshot) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for missing node", err)
	}
}
