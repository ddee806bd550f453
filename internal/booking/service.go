package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-ops-backend/internal/ledger"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/payment"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

// IncidentResolver closes an open overstay incident when an extension covers
// its expected checkout date. Implemented by the overstay service; declared
// here so extend_stay can resolve inside its own transaction without a
// package cycle.
type IncidentResolver interface {
	// ResolveCovered resolves the booking's OPEN or ACKED incident if
	// newCheckOut covers its expected checkout date. Returns the resolved
	// incident id, or "" when no incident matched.
	ResolveCovered(ctx context.Context, bookingID string, newCheckOut time.Time, staffID string) (string, error)
}

type CreateRequest struct {
	HotelID     string
	GuestName   string
	RoomID      *string // optional room preference
	CheckIn     time.Time
	CheckOut    time.Time
	AmountCents int64
	Currency    string
}

type AssignRoomRequest struct {
	BookingID string
	RoomID    string
	StaffID   string
}

type MoveRoomRequest struct {
	BookingID string
	ToRoomID  string
	StaffID   string
}

type ExtendStayRequest struct {
	BookingID   string
	NewCheckOut time.Time
	StaffID     string
	PaymentRef  string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	ListExtensions(ctx context.Context, bookingID string) ([]*Extension, error)

	// CapturePayment charges the processor and moves the booking from
	// pending_payment to pending_approval, stamping the approval deadline.
	CapturePayment(ctx context.Context, id, reference string) (*Booking, error)

	Approve(ctx context.Context, id, staffID string) (*Booking, error)
	Decline(ctx context.Context, id, staffID string) (*Booking, error)
	Cancel(ctx context.Context, id, actor string) (*Booking, error)

	// AssignRoom performs room assignment + check-in as one transaction.
	AssignRoom(ctx context.Context, req AssignRoomRequest) (*Booking, error)
	MoveRoom(ctx context.Context, req MoveRoomRequest) (*Booking, error)
	CheckOut(ctx context.Context, id, staffID string) (*Booking, error)

	ExtendStay(ctx context.Context, req ExtendStayRequest) (*Booking, error)

	// ConfirmRefund handles the processor's asynchronous refund callback.
	// Duplicate confirmations are no-ops and never reopen a terminal booking.
	ConfirmRefund(ctx context.Context, paymentRef string) error
}

type service struct {
	repo       Repository
	ledgerSvc  ledger.Service
	hotelRepo  hotel.Repository
	roomRepo   room.Repository
	logRepo    oplog.Repository
	tx         txn.Manager
	events     event.Publisher
	gateway    payment.Gateway
	resolver   IncidentResolver
	defaultSLA time.Duration
}

type Deps struct {
	Repo       Repository
	LedgerSvc  ledger.Service
	HotelRepo  hotel.Repository
	RoomRepo   room.Repository
	LogRepo    oplog.Repository
	Tx         txn.Manager
	Events     event.Publisher
	Gateway    payment.Gateway
	Resolver   IncidentResolver
	DefaultSLA time.Duration
}

func NewService(d Deps) Service {
	return &service{
		repo:       d.Repo,
		ledgerSvc:  d.LedgerSvc,
		hotelRepo:  d.HotelRepo,
		roomRepo:   d.RoomRepo,
		logRepo:    d.LogRepo,
		tx:         d.Tx,
		events:     d.Events,
		gateway:    d.Gateway,
		resolver:   d.Resolver,
		defaultSLA: d.DefaultSLA,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, ErrInvalidDateRange
	}
	if _, err := s.hotelRepo.GetByID(ctx, req.HotelID); err != nil {
		if errors.Is(err, hotel.ErrNotFound) {
			return nil, ErrHotelNotFound
		}
		return nil, err
	}
	if req.RoomID != nil {
		if _, err := s.roomRepo.GetByID(ctx, *req.RoomID); err != nil {
			if errors.Is(err, room.ErrNotFound) {
				return nil, ErrRoomNotFound
			}
			return nil, err
		}
	}

	b := &Booking{
		HotelID:     req.HotelID,
		GuestName:   req.GuestName,
		RoomID:      req.RoomID,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Status:      StatusPendingPayment,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}

	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpBookingCreate, oplog.ActorSystem, "", string(StatusPendingPayment)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingCreated, b, oplog.ActorSystem))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) ListExtensions(ctx context.Context, bookingID string) ([]*Extension, error) {
	return s.repo.ListExtensions(ctx, bookingID)
}

func (s *service) CapturePayment(ctx context.Context, id, reference string) (*Booking, error) {
	var b *Booking
	// Claim the capture under the row lock first: two concurrent requests for
	// the same booking must not both reach the processor. The claim is the
	// payment reference itself; the loser conflicts here, before any charge.
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		if err := guardTransition(b, StatusPendingApproval); err != nil {
			return err
		}
		if b.PaymentRef != "" {
			return ErrCaptureInProgress
		}
		b.PaymentRef = reference
		return s.repo.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	h, err := s.hotelRepo.GetByID(ctx, b.HotelID)
	if err != nil {
		s.releaseCaptureClaim(ctx, id, reference)
		return nil, err
	}

	// The charge happens outside the transaction: a slow processor must not
	// hold row locks. A failed charge releases the claim so the guest can
	// retry with a fresh token.
	if _, err := s.gateway.Capture(ctx, b.AmountCents, b.Currency, reference); err != nil {
		s.releaseCaptureClaim(ctx, id, reference)
		return nil, err
	}

	var evts []event.Event
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		if err := guardTransition(b, StatusPendingApproval); err != nil {
			return err
		}

		now := time.Now().UTC()
		deadline := h.ApprovalDeadline(now, b.CheckIn, s.defaultSLA)
		b.Status = StatusPendingApproval
		b.PaidAt = &now
		b.ApprovalDeadlineAt = &deadline
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpPaymentCapture, oplog.ActorSystem,
			string(StatusPendingPayment), string(StatusPendingApproval)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingPaid, b, oplog.ActorSystem))
		return nil
	})
	if err != nil {
		// The charge went through but the booking can no longer accept it,
		// e.g. the payment-timeout sweep expired it while the processor was
		// slow. Refund the orphaned charge rather than keep unaccounted money.
		if rerr := s.gateway.Refund(ctx, reference); rerr != nil {
			log.Printf("refund of orphaned charge %s for booking %s failed, flag for manual review: %v", reference, id, rerr)
		}
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

// releaseCaptureClaim undoes the reference claim after a failed charge so a
// later capture attempt is not locked out.
func (s *service) releaseCaptureClaim(ctx context.Context, id, reference string) {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b := locked[id]
		if b == nil || b.Status != StatusPendingPayment || b.PaymentRef != reference {
			return nil
		}
		b.PaymentRef = ""
		return s.repo.Update(ctx, b)
	})
	if err != nil {
		log.Printf("release capture claim for booking %s failed: %v", id, err)
	}
}

func (s *service) Approve(ctx context.Context, id, staffID string) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		// Guards evaluated only now, with the lock held: a booking the
		// expiry sweep claimed a moment ago fails here with a conflict.
		if err := guardTransition(b, StatusConfirmed); err != nil {
			return err
		}
		if b.ApprovalDeadlineAt == nil || !time.Now().UTC().Before(*b.ApprovalDeadlineAt) {
			return ErrApprovalExpired
		}

		now := time.Now().UTC()
		b.Status = StatusConfirmed
		b.DecisionAt = &now
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpApprove, staffID,
			string(StatusPendingApproval), string(StatusConfirmed)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingApproved, b, staffID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) Decline(ctx context.Context, id, staffID string) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		if b.Status != StatusPendingApproval {
			return ErrInvalidTransition
		}
		if err := guardTransition(b, StatusDeclined); err != nil {
			return err
		}

		now := time.Now().UTC()
		b.Status = StatusDeclined
		b.DecisionAt = &now
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpDecline, staffID,
			string(StatusPendingApproval), string(StatusDeclined)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingDeclined, b, staffID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)

	if b.Paid() {
		s.initiateRefund(ctx, b, staffID)
	}
	return b, nil
}

func (s *service) Cancel(ctx context.Context, id, actor string) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		prior := b.Status
		if err := guardTransition(b, StatusCancelled); err != nil {
			return err
		}

		// An in-house cancellation vacates the room in the same transaction;
		// occupancy never changes as a side effect of anything else.
		if prior == StatusInHouse {
			entry, err := s.ledgerSvc.FindByBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			if _, err := s.ledgerSvc.Release(ctx, entry.RoomID, b.ID, actor); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		b.Status = StatusCancelled
		b.DecisionAt = &now
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpCancel, actor, string(prior), string(StatusCancelled)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingCancelled, b, actor))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)

	if b.Paid() {
		s.initiateRefund(ctx, b, actor)
	}
	return b, nil
}

func (s *service) AssignRoom(ctx context.Context, req AssignRoomRequest) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		// Pre-read to learn the date range; authoritative values are
		// re-read under lock below.
		pre, err := s.repo.GetByID(ctx, req.BookingID)
		if err != nil {
			return err
		}

		// Lock set: the target booking plus every active booking whose
		// range overlaps the target range on this room, all in one ordered
		// acquisition.
		overlaps, err := s.repo.OverlapIDs(ctx, req.RoomID, pre.CheckIn, pre.CheckOut, pre.ID)
		if err != nil {
			return err
		}
		locked, err := s.repo.LockByIDs(ctx, append(overlaps, req.BookingID))
		if err != nil {
			return err
		}
		b = locked[req.BookingID]
		if b == nil {
			return ErrNotFound
		}
		if err := guardTransition(b, StatusInHouse); err != nil {
			return err
		}

		// The ledger holds the only authoritative "is this room free";
		// Assign re-checks it under the ledger row lock.
		if _, err := s.ledgerSvc.Assign(ctx, ledger.AssignParams{
			RoomID:           req.RoomID,
			BookingID:        b.ID,
			HotelID:          b.HotelID,
			ExpectedCheckout: b.CheckOut,
			StaffID:          req.StaffID,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		b.Status = StatusInHouse
		b.CheckedInAt = &now
		b.RoomID = &req.RoomID
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpCheckIn, req.StaffID,
			string(StatusConfirmed), string(StatusInHouse)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingCheckedIn, b, req.StaffID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) MoveRoom(ctx context.Context, req MoveRoomRequest) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		pre, err := s.repo.GetByID(ctx, req.BookingID)
		if err != nil {
			return err
		}

		overlaps, err := s.repo.OverlapIDs(ctx, req.ToRoomID, pre.CheckIn, pre.CheckOut, pre.ID)
		if err != nil {
			return err
		}
		locked, err := s.repo.LockByIDs(ctx, append(overlaps, req.BookingID))
		if err != nil {
			return err
		}
		b = locked[req.BookingID]
		if b == nil {
			return ErrNotFound
		}
		if b.Status != StatusInHouse {
			return ErrNotInHouse
		}

		entry, err := s.ledgerSvc.FindByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Move(ctx, ledger.MoveParams{
			BookingID:        b.ID,
			FromRoomID:       entry.RoomID,
			ToRoomID:         req.ToRoomID,
			HotelID:          b.HotelID,
			ExpectedCheckout: b.CheckOut,
			StaffID:          req.StaffID,
		}); err != nil {
			return err
		}

		b.RoomID = &req.ToRoomID
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingMoved, b, req.StaffID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) CheckOut(ctx context.Context, id, staffID string) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		b = locked[id]
		if b == nil {
			return ErrNotFound
		}
		if b.Status != StatusInHouse {
			return ErrNotInHouse
		}
		if err := guardTransition(b, StatusCompleted); err != nil {
			return err
		}

		entry, err := s.ledgerSvc.FindByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Release(ctx, entry.RoomID, b.ID, staffID); err != nil {
			return err
		}

		now := time.Now().UTC()
		b.Status = StatusCompleted
		b.CheckedOutAt = &now
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpCheckOut, staffID,
			string(StatusInHouse), string(StatusCompleted)); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingCheckedOut, b, staffID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) ExtendStay(ctx context.Context, req ExtendStayRequest) (*Booking, error) {
	var b *Booking
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByIDs(ctx, []string{req.BookingID})
		if err != nil {
			return err
		}
		b = locked[req.BookingID]
		if b == nil {
			return ErrNotFound
		}
		if b.Status != StatusInHouse && b.Status != StatusConfirmed {
			return ErrInvalidTransition
		}
		if !req.NewCheckOut.After(b.CheckOut) {
			return ErrShorterStay
		}

		oldCheckOut := b.CheckOut
		ext := &Extension{
			BookingID:   b.ID,
			OldCheckOut: oldCheckOut,
			NewCheckOut: req.NewCheckOut,
			PaymentRef:  req.PaymentRef,
			StaffID:     req.StaffID,
		}
		if err := s.repo.CreateExtension(ctx, ext); err != nil {
			return err
		}

		b.CheckOut = req.NewCheckOut
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}

		if b.Status == StatusInHouse {
			entry, err := s.ledgerSvc.FindByBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			if err := s.ledgerSvc.ExtendOccupancy(ctx, entry.RoomID, b.ID, req.NewCheckOut); err != nil {
				return err
			}
		}

		// Resolving the covered incident commits with the date change or
		// not at all.
		resolvedID, err := s.resolver.ResolveCovered(ctx, b.ID, req.NewCheckOut, req.StaffID)
		if err != nil {
			return err
		}

		if err := s.appendLog(ctx, b, oplog.OpExtendStay, req.StaffID,
			oldCheckOut.Format("2006-01-02"), req.NewCheckOut.Format("2006-01-02")); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeBookingExtended, b, req.StaffID))
		if resolvedID != "" {
			e := s.bookingEvent(event.TypeIncidentResolved, b, req.StaffID)
			e.IncidentID = resolvedID
			evts = append(evts, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return b, nil
}

func (s *service) ConfirmRefund(ctx context.Context, paymentRef string) error {
	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		found, err := s.repo.FindByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		locked, err := s.repo.LockByIDs(ctx, []string{found.ID})
		if err != nil {
			return err
		}
		b := locked[found.ID]
		if b == nil {
			return ErrNotFound
		}
		if b.RefundedAt != nil {
			// Duplicate callback: already recorded, nothing to do and no
			// second event.
			return nil
		}

		now := time.Now().UTC()
		b.RefundedAt = &now
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.appendLog(ctx, b, oplog.OpRefundConfirm, oplog.ActorSystem, "refund pending", "refund confirmed"); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeRefundConfirmed, b, oplog.ActorSystem))
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, evts)
	return nil
}

// initiateRefund fires the external refund after the owning transaction has
// committed. A processor failure must not undo a committed transition; it is
// logged for manual review instead.
func (s *service) initiateRefund(ctx context.Context, b *Booking, actor string) {
	if err := s.gateway.Refund(ctx, b.PaymentRef); err != nil {
		log.Printf("refund initiation for booking %s failed, flag for manual review: %v", b.ID, err)
		return
	}

	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.appendLog(ctx, b, oplog.OpRefundInitiate, actor, "", b.PaymentRef); err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeRefundInitiated, b, actor))
		return nil
	})
	if err != nil {
		log.Printf("record refund initiation for booking %s failed: %v", b.ID, err)
		return
	}
	s.publish(ctx, evts)
}

func (s *service) appendLog(ctx context.Context, b *Booking, op, actor, before, after string) error {
	roomID := ""
	if b.RoomID != nil {
		roomID = *b.RoomID
	}
	return s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   b.HotelID,
		BookingID: b.ID,
		RoomID:    roomID,
		Operation: op,
		Actor:     actor,
		Before:    before,
		After:     after,
	})
}

func (s *service) bookingEvent(eventType string, b *Booking, actor string) event.Event {
	e := event.New(eventType, actor)
	e.HotelID = b.HotelID
	e.BookingID = b.ID
	if b.RoomID != nil {
		e.RoomID = *b.RoomID
	}
	return e
}

func (s *service) publish(ctx context.Context, evts []event.Event) {
	for _, e := range evts {
		if err := s.events.Publish(ctx, e); err != nil {
			log.Printf("publish %s event for booking %s failed: %v", e.Type, e.BookingID, err)
		}
	}
}
