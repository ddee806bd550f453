package room

import (
	"context"
	"strings"

	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

var ErrOccupiedRoom = apperror.Conflict("room is currently occupied")

// OccupancyLedger is the slice of the ledger the room service needs:
// provisioning the entry for a new room and checking occupancy before a
// housekeeping flip. Implemented by the ledger repository.
type OccupancyLedger interface {
	Provision(ctx context.Context, roomID, hotelID string) error
	RoomOccupied(ctx context.Context, roomID string) (bool, error)
}

// Service covers room provisioning and the housekeeping status flips. The
// occupied status itself is owned by ledger operations and cannot be set
// here.
type Service interface {
	Provision(ctx context.Context, p ProvisionParams) (*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
	ListByHotel(ctx context.Context, hotelID string) ([]*Room, error)
	SetHousekeepingStatus(ctx context.Context, roomID string, status Status, staffID string) (*Room, error)
}

type ProvisionParams struct {
	HotelID string
	Number  string
	StaffID string
}

type service struct {
	repo    Repository
	ledger  OccupancyLedger
	logRepo oplog.Repository
	tx      txn.Manager
}

func NewService(repo Repository, ledger OccupancyLedger, logRepo oplog.Repository, tx txn.Manager) Service {
	return &service{repo: repo, ledger: ledger, logRepo: logRepo, tx: tx}
}

// Provision creates the room and its ledger entry in one transaction: a room
// must never exist without a ledger row, or assignment would have nothing to
// lock.
func (s *service) Provision(ctx context.Context, p ProvisionParams) (*Room, error) {
	number := strings.TrimSpace(p.Number)
	if number == "" {
		return nil, apperror.Validation("room number is required")
	}

	rm := &Room{
		HotelID: p.HotelID,
		Number:  number,
		Status:  StatusVacantClean,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rm); err != nil {
			return err
		}
		if err := s.ledger.Provision(ctx, rm.ID, rm.HotelID); err != nil {
			return err
		}
		return s.logRepo.Append(ctx, &oplog.Entry{
			HotelID:   rm.HotelID,
			RoomID:    rm.ID,
			Operation: oplog.OpRoomProvision,
			Actor:     p.StaffID,
			Before:    "",
			After:     string(StatusVacantClean),
		})
	})
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByHotel(ctx context.Context, hotelID string) ([]*Room, error) {
	return s.repo.ListByHotel(ctx, hotelID)
}

func (s *service) SetHousekeepingStatus(ctx context.Context, roomID string, status Status, staffID string) (*Room, error) {
	if !status.Valid() || status == StatusOccupied {
		return nil, ErrInvalidStatus
	}

	var rm *Room
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rm, err = s.repo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}

		occupied, err := s.ledger.RoomOccupied(ctx, roomID)
		if err != nil {
			return err
		}
		if occupied {
			return ErrOccupiedRoom
		}

		prior := rm.Status
		if prior == status {
			return nil
		}
		if err := s.repo.SetStatus(ctx, roomID, status); err != nil {
			return err
		}
		rm.Status = status
		return s.logRepo.Append(ctx, &oplog.Entry{
			HotelID:   rm.HotelID,
			RoomID:    rm.ID,
			Operation: oplog.OpRoomStatus,
			Actor:     staffID,
			Before:    string(prior),
			After:     string(status),
		})
	})
	if err != nil {
		return nil, err
	}
	return rm, nil
}
