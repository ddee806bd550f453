package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
)

type memRepo struct {
	entries map[string]*Entry
}

func newMemRepo(roomIDs ...string) *memRepo {
	m := &memRepo{entries: make(map[string]*Entry)}
	for _, id := range roomIDs {
		m.entries[id] = &Entry{RoomID: id, HotelID: "h1"}
	}
	return m
}

func (m *memRepo) Provision(_ context.Context, roomID, hotelID string) error {
	m.entries[roomID] = &Entry{RoomID: roomID, HotelID: hotelID}
	return nil
}

func (m *memRepo) GetByRoom(_ context.Context, roomID string) (*Entry, error) {
	e, ok := m.entries[roomID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) ListByHotel(_ context.Context, _ string) ([]*Entry, error) { return nil, nil }

func (m *memRepo) RoomOccupied(_ context.Context, roomID string) (bool, error) {
	e, ok := m.entries[roomID]
	if !ok {
		return false, ErrEntryNotFound
	}
	return e.Occupied(), nil
}

func (m *memRepo) LockRooms(_ context.Context, roomIDs []string) ([]*Entry, error) {
	var out []*Entry
	for _, id := range roomIDs {
		e, ok := m.entries[id]
		if !ok {
			return nil, ErrEntryNotFound
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) FindByBooking(_ context.Context, bookingID string) (*Entry, error) {
	for _, e := range m.entries {
		if e.BookingID == bookingID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (m *memRepo) SetOccupant(_ context.Context, roomID, bookingID string, since, expectedCheckout time.Time, staffID string) error {
	e, ok := m.entries[roomID]
	if !ok {
		return ErrEntryNotFound
	}
	if e.BookingID != "" {
		return ErrEntryNotFound
	}
	e.BookingID = bookingID
	e.OccupiedSince = &since
	e.ExpectedCheckout = &expectedCheckout
	e.AssignedBy = staffID
	return nil
}

func (m *memRepo) UpdateExpectedCheckout(_ context.Context, roomID string, expectedCheckout time.Time) error {
	e, ok := m.entries[roomID]
	if !ok || e.BookingID == "" {
		return ErrEntryNotFound
	}
	e.ExpectedCheckout = &expectedCheckout
	return nil
}

func (m *memRepo) ClearOccupant(_ context.Context, roomID string) error {
	e, ok := m.entries[roomID]
	if !ok {
		return ErrEntryNotFound
	}
	e.BookingID = ""
	e.OccupiedSince = nil
	e.ExpectedCheckout = nil
	return nil
}

type memRoomRepo struct {
	statuses map[string]room.Status
}

func (m *memRoomRepo) Create(_ context.Context, _ *room.Room) error { return nil }
func (m *memRoomRepo) GetByID(_ context.Context, _ string) (*room.Room, error) {
	return nil, room.ErrNotFound
}
func (m *memRoomRepo) ListByHotel(_ context.Context, _ string) ([]*room.Room, error) {
	return nil, nil
}
func (m *memRoomRepo) SetStatus(_ context.Context, id string, status room.Status) error {
	m.statuses[id] = status
	return nil
}

type memLog struct {
	entries []*oplog.Entry
}

func (m *memLog) Append(_ context.Context, e *oplog.Entry) error {
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLog) List(_ context.Context, _ oplog.Filter) ([]*oplog.Entry, int, error) {
	return nil, 0, nil
}

func newTestService(roomIDs ...string) (Service, *memRepo, *memRoomRepo, *memLog) {
	repo := newMemRepo(roomIDs...)
	roomRepo := &memRoomRepo{statuses: make(map[string]room.Status)}
	logRepo := &memLog{}
	return NewService(repo, roomRepo, logRepo), repo, roomRepo, logRepo
}

var checkout = time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)

func TestAssign(t *testing.T) {
	t.Run("occupies a vacant room", func(t *testing.T) {
		svc, repo, roomRepo, logRepo := newTestService("r1")

		entry, err := svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b1", HotelID: "h1",
			ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		assert.Equal(t, "b1", entry.BookingID)
		assert.Equal(t, "b1", repo.entries["r1"].BookingID)
		assert.Equal(t, room.StatusOccupied, roomRepo.statuses["r1"])
		require.Len(t, logRepo.entries, 1)
		assert.Equal(t, oplog.OpAssign, logRepo.entries[0].Operation)
	})

	t.Run("same booking again is idempotent", func(t *testing.T) {
		svc, _, _, logRepo := newTestService("r1")
		p := AssignParams{RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1"}

		_, err := svc.Assign(context.Background(), p)
		require.NoError(t, err)
		entry, err := svc.Assign(context.Background(), p)
		require.NoError(t, err)

		assert.Equal(t, "b1", entry.BookingID)
		// No second mutation, no second log entry.
		assert.Len(t, logRepo.entries, 1)
	})

	t.Run("occupied room reports the holder", func(t *testing.T) {
		svc, repo, _, _ := newTestService("r1")
		_, err := svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		_, err = svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b2", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s2",
		})
		var conflict *OccupancyConflict
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "b1", conflict.HolderBookingID)
		assert.Equal(t, "b1", repo.entries["r1"].BookingID)
	})

	t.Run("booking cannot hold two rooms", func(t *testing.T) {
		svc, _, _, _ := newTestService("r1", "r2")
		_, err := svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		_, err = svc.Assign(context.Background(), AssignParams{
			RoomID: "r2", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		assert.True(t, errors.Is(err, ErrAlreadyInHouse))
	})
}

func TestRelease(t *testing.T) {
	t.Run("vacates and marks the room dirty", func(t *testing.T) {
		svc, repo, roomRepo, logRepo := newTestService("r1")
		_, err := svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		entry, err := svc.Release(context.Background(), "r1", "b1", "s1")
		require.NoError(t, err)

		assert.False(t, entry.Occupied())
		assert.Empty(t, repo.entries["r1"].BookingID)
		assert.Equal(t, room.StatusVacantDirty, roomRepo.statuses["r1"])
		assert.Equal(t, oplog.OpRelease, logRepo.entries[len(logRepo.entries)-1].Operation)
	})

	t.Run("non occupant cannot release", func(t *testing.T) {
		svc, repo, _, _ := newTestService("r1")
		_, err := svc.Assign(context.Background(), AssignParams{
			RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		_, err = svc.Release(context.Background(), "r1", "b2", "s2")
		assert.True(t, errors.Is(err, ErrNotOccupant))
		assert.Equal(t, "b1", repo.entries["r1"].BookingID)
	})

	t.Run("vacant room has no occupant", func(t *testing.T) {
		svc, _, _, _ := newTestService("r1")
		_, err := svc.Release(context.Background(), "r1", "b1", "s1")
		assert.True(t, errors.Is(err, ErrNotOccupant))
	})
}

func TestMove(t *testing.T) {
	occupy := func(t *testing.T, svc Service, roomID, bookingID string) {
		t.Helper()
		_, err := svc.Assign(context.Background(), AssignParams{
			RoomID: roomID, BookingID: bookingID, HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)
	}

	t.Run("transfers occupancy atomically", func(t *testing.T) {
		svc, repo, roomRepo, logRepo := newTestService("r1", "r2")
		occupy(t, svc, "r1", "b1")

		entry, err := svc.Move(context.Background(), MoveParams{
			BookingID: "b1", FromRoomID: "r1", ToRoomID: "r2", HotelID: "h1",
			ExpectedCheckout: checkout, StaffID: "s1",
		})
		require.NoError(t, err)

		assert.Equal(t, "r2", entry.RoomID)
		assert.Empty(t, repo.entries["r1"].BookingID)
		assert.Equal(t, "b1", repo.entries["r2"].BookingID)
		assert.Equal(t, room.StatusVacantDirty, roomRepo.statuses["r1"])
		assert.Equal(t, room.StatusOccupied, roomRepo.statuses["r2"])
		assert.Equal(t, oplog.OpMove, logRepo.entries[len(logRepo.entries)-1].Operation)
	})

	t.Run("occupied destination fails whole move", func(t *testing.T) {
		svc, repo, _, _ := newTestService("r1", "r2")
		occupy(t, svc, "r1", "b1")
		occupy(t, svc, "r2", "b2")

		_, err := svc.Move(context.Background(), MoveParams{
			BookingID: "b1", FromRoomID: "r1", ToRoomID: "r2", HotelID: "h1",
			ExpectedCheckout: checkout, StaffID: "s1",
		})
		var conflict *OccupancyConflict
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "b2", conflict.HolderBookingID)

		// Source untouched.
		assert.Equal(t, "b1", repo.entries["r1"].BookingID)
	})

	t.Run("mover must hold the source room", func(t *testing.T) {
		svc, _, _, _ := newTestService("r1", "r2")
		occupy(t, svc, "r1", "b1")

		_, err := svc.Move(context.Background(), MoveParams{
			BookingID: "b2", FromRoomID: "r1", ToRoomID: "r2", HotelID: "h1",
			ExpectedCheckout: checkout, StaffID: "s1",
		})
		assert.True(t, errors.Is(err, ErrNotOccupant))
	})

	t.Run("same source and destination rejected", func(t *testing.T) {
		svc, _, _, _ := newTestService("r1")
		occupy(t, svc, "r1", "b1")

		_, err := svc.Move(context.Background(), MoveParams{
			BookingID: "b1", FromRoomID: "r1", ToRoomID: "r1", HotelID: "h1",
			ExpectedCheckout: checkout, StaffID: "s1",
		})
		assert.Error(t, err)
	})
}

func TestExtendOccupancy(t *testing.T) {
	svc, repo, _, _ := newTestService("r1")
	_, err := svc.Assign(context.Background(), AssignParams{
		RoomID: "r1", BookingID: "b1", HotelID: "h1", ExpectedCheckout: checkout, StaffID: "s1",
	})
	require.NoError(t, err)

	t.Run("pushes out the expected checkout", func(t *testing.T) {
		later := checkout.Add(48 * time.Hour)
		require.NoError(t, svc.ExtendOccupancy(context.Background(), "r1", "b1", later))
		require.NotNil(t, repo.entries["r1"].ExpectedCheckout)
		assert.Equal(t, later, *repo.entries["r1"].ExpectedCheckout)
	})

	t.Run("rejected for a non occupant", func(t *testing.T) {
		err := svc.ExtendOccupancy(context.Background(), "r1", "b2", checkout.Add(time.Hour))
		assert.True(t, errors.Is(err, ErrNotOccupant))
	})
}
