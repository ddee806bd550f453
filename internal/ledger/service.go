package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
)

// Service is the only writer of occupancy state. Every method expects to run
// inside the caller's transaction with the relevant booking rows already
// locked; it locks the ledger rows itself (always after booking rows, per
// the global lock order) and re-validates its guards after the locks are
// held.
type Service interface {
	Assign(ctx context.Context, p AssignParams) (*Entry, error)
	Release(ctx context.Context, roomID, bookingID, actor string) (*Entry, error)
	Move(ctx context.Context, p MoveParams) (*Entry, error)

	// ExtendOccupancy pushes out the expected checkout of an occupied room.
	// Used by extend_stay inside its transaction.
	ExtendOccupancy(ctx context.Context, roomID, bookingID string, newCheckout time.Time) error

	GetByRoom(ctx context.Context, roomID string) (*Entry, error)
	ListByHotel(ctx context.Context, hotelID string) ([]*Entry, error)
	FindByBooking(ctx context.Context, bookingID string) (*Entry, error)
}

type AssignParams struct {
	RoomID           string
	BookingID        string
	HotelID          string
	ExpectedCheckout time.Time
	StaffID          string
}

type MoveParams struct {
	BookingID        string
	FromRoomID       string
	ToRoomID         string
	HotelID          string
	ExpectedCheckout time.Time
	StaffID          string
}

type service struct {
	repo     Repository
	roomRepo room.Repository
	logRepo  oplog.Repository
}

func NewService(repo Repository, roomRepo room.Repository, logRepo oplog.Repository) Service {
	return &service{repo: repo, roomRepo: roomRepo, logRepo: logRepo}
}

func (s *service) Assign(ctx context.Context, p AssignParams) (*Entry, error) {
	entries, err := s.repo.LockRooms(ctx, []string{p.RoomID})
	if err != nil {
		return nil, err
	}
	entry := entries[0]

	// Guards re-checked under lock: the decision to assign may be stale.
	if entry.Occupied() {
		if entry.BookingID == p.BookingID {
			// Same booking already in this room; assignment is idempotent.
			return entry, nil
		}
		return nil, &OccupancyConflict{RoomID: p.RoomID, HolderBookingID: entry.BookingID}
	}
	if err := s.guardNotInHouse(ctx, p.BookingID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.SetOccupant(ctx, p.RoomID, p.BookingID, now, p.ExpectedCheckout, p.StaffID); err != nil {
		return nil, err
	}
	if err := s.roomRepo.SetStatus(ctx, p.RoomID, room.StatusOccupied); err != nil {
		return nil, err
	}

	err = s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   p.HotelID,
		BookingID: p.BookingID,
		RoomID:    p.RoomID,
		Operation: oplog.OpAssign,
		Actor:     p.StaffID,
		Before:    "vacant",
		After:     "occupied by " + p.BookingID,
	})
	if err != nil {
		return nil, err
	}

	entry.BookingID = p.BookingID
	entry.OccupiedSince = &now
	entry.ExpectedCheckout = &p.ExpectedCheckout
	entry.AssignedBy = p.StaffID
	return entry, nil
}

func (s *service) Release(ctx context.Context, roomID, bookingID, actor string) (*Entry, error) {
	entries, err := s.repo.LockRooms(ctx, []string{roomID})
	if err != nil {
		return nil, err
	}
	entry := entries[0]

	if !entry.Occupied() {
		return nil, ErrNotOccupant
	}
	if entry.BookingID != bookingID {
		return nil, ErrNotOccupant
	}

	if err := s.repo.ClearOccupant(ctx, roomID); err != nil {
		return nil, err
	}
	// Cleaning happens before the next assignment; an external collaborator
	// flips the room back to vacant_clean.
	if err := s.roomRepo.SetStatus(ctx, roomID, room.StatusVacantDirty); err != nil {
		return nil, err
	}

	err = s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   entry.HotelID,
		BookingID: bookingID,
		RoomID:    roomID,
		Operation: oplog.OpRelease,
		Actor:     actor,
		Before:    "occupied by " + bookingID,
		After:     "vacant_dirty",
	})
	if err != nil {
		return nil, err
	}

	entry.BookingID = ""
	entry.OccupiedSince = nil
	entry.ExpectedCheckout = nil
	return entry, nil
}

func (s *service) Move(ctx context.Context, p MoveParams) (*Entry, error) {
	if p.FromRoomID == p.ToRoomID {
		return nil, apperror.Validation("source and destination rooms are the same")
	}

	// Both ledger rows locked together, ascending, so a concurrent move in
	// the opposite direction cannot deadlock against us.
	entries, err := s.repo.LockRooms(ctx, []string{p.FromRoomID, p.ToRoomID})
	if err != nil {
		return nil, err
	}

	var from, to *Entry
	for _, e := range entries {
		switch e.RoomID {
		case p.FromRoomID:
			from = e
		case p.ToRoomID:
			to = e
		}
	}

	if from.BookingID != p.BookingID {
		return nil, ErrNotOccupant
	}
	if to.Occupied() {
		// No partial move: the whole operation fails.
		return nil, &OccupancyConflict{RoomID: p.ToRoomID, HolderBookingID: to.BookingID}
	}

	if err := s.repo.ClearOccupant(ctx, p.FromRoomID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.repo.SetOccupant(ctx, p.ToRoomID, p.BookingID, now, p.ExpectedCheckout, p.StaffID); err != nil {
		return nil, err
	}
	if err := s.roomRepo.SetStatus(ctx, p.FromRoomID, room.StatusVacantDirty); err != nil {
		return nil, err
	}
	if err := s.roomRepo.SetStatus(ctx, p.ToRoomID, room.StatusOccupied); err != nil {
		return nil, err
	}

	err = s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   p.HotelID,
		BookingID: p.BookingID,
		RoomID:    p.ToRoomID,
		Operation: oplog.OpMove,
		Actor:     p.StaffID,
		Before:    "room " + p.FromRoomID,
		After:     "room " + p.ToRoomID,
	})
	if err != nil {
		return nil, err
	}

	to.BookingID = p.BookingID
	to.OccupiedSince = &now
	to.ExpectedCheckout = &p.ExpectedCheckout
	to.AssignedBy = p.StaffID
	return to, nil
}

func (s *service) ExtendOccupancy(ctx context.Context, roomID, bookingID string, newCheckout time.Time) error {
	entries, err := s.repo.LockRooms(ctx, []string{roomID})
	if err != nil {
		return err
	}
	if entries[0].BookingID != bookingID {
		return ErrNotOccupant
	}
	return s.repo.UpdateExpectedCheckout(ctx, roomID, newCheckout)
}

func (s *service) GetByRoom(ctx context.Context, roomID string) (*Entry, error) {
	return s.repo.GetByRoom(ctx, roomID)
}

func (s *service) ListByHotel(ctx context.Context, hotelID string) ([]*Entry, error) {
	return s.repo.ListByHotel(ctx, hotelID)
}

func (s *service) FindByBooking(ctx context.Context, bookingID string) (*Entry, error) {
	return s.repo.FindByBooking(ctx, bookingID)
}

// guardNotInHouse rejects an assignment for a booking the ledger already
// places in some room.
func (s *service) guardNotInHouse(ctx context.Context, bookingID string) error {
	_, err := s.repo.FindByBooking(ctx, bookingID)
	switch {
	case err == nil:
		return ErrAlreadyInHouse
	case errors.Is(err, ErrEntryNotFound):
		return nil
	default:
		return err
	}
}

// newDoubleOccupancyViolation builds the critical integrity alert for a
// booking referenced by more than one ledger row.
func newDoubleOccupancyViolation(bookingID string, entries []*Entry) error {
	rooms := make([]string, len(entries))
	for i, e := range entries {
		rooms[i] = e.RoomID
	}
	log.Printf("CRITICAL: booking %s referenced by %d ledger rows %v", bookingID, len(entries), rooms)
	return apperror.Invariant(fmt.Sprintf("booking %s occupies multiple rooms", bookingID))
}
