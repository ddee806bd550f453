package overstay

import (
	"context"
	"log"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

// Service owns the explicit resolution paths of an incident. Detection
// lives in the sweep package; this service never creates incidents and
// nothing here runs automatically.
type Service interface {
	GetByID(ctx context.Context, id string) (*Incident, error)
	List(ctx context.Context, filter Filter) ([]*Incident, int, error)

	// Acknowledge marks an OPEN incident as seen by staff. Acknowledgment
	// alone does not resolve the incident.
	Acknowledge(ctx context.Context, id, staffID string) (*Incident, error)

	// Dismiss closes an incident that staff judged a false alarm.
	Dismiss(ctx context.Context, id, staffID string) (*Incident, error)

	// ResolveCovered implements booking.IncidentResolver: called inside the
	// extend_stay transaction so extension and resolution commit together.
	ResolveCovered(ctx context.Context, bookingID string, newCheckOut time.Time, staffID string) (string, error)
}

type service struct {
	repo    Repository
	logRepo oplog.Repository
	tx      txn.Manager
	events  event.Publisher
}

func NewService(repo Repository, logRepo oplog.Repository, tx txn.Manager, events event.Publisher) Service {
	return &service{repo: repo, logRepo: logRepo, tx: tx, events: events}
}

func (s *service) GetByID(ctx context.Context, id string) (*Incident, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Incident, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Acknowledge(ctx context.Context, id, staffID string) (*Incident, error) {
	var i *Incident
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		i, err = s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if i.Status != StatusOpen {
			return ErrNotOpen
		}

		now := time.Now().UTC()
		i.Status = StatusAcked
		i.AcknowledgedAt = &now
		i.AcknowledgedBy = staffID
		if err := s.repo.Update(ctx, i); err != nil {
			return err
		}
		return s.appendLog(ctx, i, oplog.OpIncidentAck, staffID, string(StatusOpen), string(StatusAcked))
	})
	if err != nil {
		return nil, err
	}

	e := s.incidentEvent(event.TypeIncidentAcked, i, staffID)
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("publish incident ack event %s failed: %v", e.ID, err)
	}
	return i, nil
}

func (s *service) Dismiss(ctx context.Context, id, staffID string) (*Incident, error) {
	var i *Incident
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		i, err = s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if i.Status != StatusOpen && i.Status != StatusAcked {
			return ErrAlreadyClosed
		}

		prior := i.Status
		now := time.Now().UTC()
		i.Status = StatusDismissed
		i.ResolvedAt = &now
		i.ResolvedBy = staffID
		if err := s.repo.Update(ctx, i); err != nil {
			return err
		}
		return s.appendLog(ctx, i, oplog.OpIncidentResolve, staffID, string(prior), string(StatusDismissed))
	})
	if err != nil {
		return nil, err
	}

	e := s.incidentEvent(event.TypeIncidentDismissed, i, staffID)
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("publish incident dismiss event %s failed: %v", e.ID, err)
	}
	return i, nil
}

func (s *service) ResolveCovered(ctx context.Context, bookingID string, newCheckOut time.Time, staffID string) (string, error) {
	// Joins the caller's transaction; the InTx wrapper is a passthrough
	// when one is already open.
	var resolvedID string
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		incidents, err := s.repo.LockActionableByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		for _, i := range incidents {
			if i.ExpectedCheckoutDate.After(newCheckOut) {
				continue
			}
			prior := i.Status
			now := time.Now().UTC()
			i.Status = StatusResolved
			i.ResolvedAt = &now
			i.ResolvedBy = staffID
			if err := s.repo.Update(ctx, i); err != nil {
				return err
			}
			if err := s.appendLog(ctx, i, oplog.OpIncidentResolve, staffID, string(prior), string(StatusResolved)); err != nil {
				return err
			}
			resolvedID = i.ID
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return resolvedID, nil
}

func (s *service) appendLog(ctx context.Context, i *Incident, op, actor, before, after string) error {
	return s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   i.HotelID,
		BookingID: i.BookingID,
		RoomID:    i.RoomID,
		Operation: op,
		Actor:     actor,
		Before:    before,
		After:     after,
	})
}

func (s *service) incidentEvent(eventType string, i *Incident, actor string) event.Event {
	e := event.New(eventType, actor)
	e.HotelID = i.HotelID
	e.BookingID = i.BookingID
	e.RoomID = i.RoomID
	e.IncidentID = i.ID
	return e
}
