package sweep

import (
	"context"
	"log"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/overstay"
	"github.com/nekogravitycat/hotel-ops-backend/internal/payment"
	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

// Marker names for the per-hotel single-instance guards. Two runs of the
// same sweep for the same hotel cannot overlap; different sweeps and
// different hotels proceed independently.
const (
	markerExpiry   = "sweep.expiry"
	markerOverstay = "sweep.overstay"
	markerNoShow   = "sweep.no_show"
)

// Marker acquires the per-hotel single-runner exclusion for a named sweep.
// The production implementation is a Postgres advisory lock scoped to the
// sweep's transaction; tests substitute their own.
type Marker interface {
	TryAcquire(ctx context.Context, sweep, hotelID string) (bool, error)
}

type advisoryMarker struct{}

func (advisoryMarker) TryAcquire(ctx context.Context, sweep, hotelID string) (bool, error) {
	return txn.TrySweepMarker(ctx, sweep, hotelID)
}

// Result summarizes one sweep run for the external scheduler.
type Result struct {
	// SkippedRun is true when another instance held the sweep marker.
	SkippedRun bool `json:"skipped_run"`
	// Disabled is true when the hotel has the sweep's cutoff unset.
	Disabled bool `json:"disabled"`
	// Processed counts rows transitioned or incidents opened this run.
	Processed int `json:"processed"`
}

// Service hosts the periodic lifecycle sweeps. The service owns no timers:
// an external scheduler invokes each run on its interval. Every sweep uses
// skip-if-locked acquisition so it can never stall an interactive staff
// operation; rows skipped this cycle are retried on the next.
type Service struct {
	hotelRepo    hotel.Repository
	bookingRepo  booking.Repository
	incidentRepo overstay.Repository
	logRepo      oplog.Repository
	tx           txn.Manager
	events       event.Publisher
	gateway      payment.Gateway
	marker       Marker
	batchSize    int
}

type Deps struct {
	HotelRepo    hotel.Repository
	BookingRepo  booking.Repository
	IncidentRepo overstay.Repository
	LogRepo      oplog.Repository
	Tx           txn.Manager
	Events       event.Publisher
	Gateway      payment.Gateway
	Marker       Marker // nil selects the advisory-lock implementation
	BatchSize    int
}

func NewService(d Deps) *Service {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 200
	}
	marker := d.Marker
	if marker == nil {
		marker = advisoryMarker{}
	}
	return &Service{
		hotelRepo:    d.HotelRepo,
		bookingRepo:  d.BookingRepo,
		incidentRepo: d.IncidentRepo,
		logRepo:      d.LogRepo,
		tx:           d.Tx,
		events:       d.Events,
		gateway:      d.Gateway,
		marker:       marker,
		batchSize:    batch,
	}
}

// RunExpirySweep enforces the approval SLA: pending-approval bookings past
// their deadline become EXPIRED, and unpaid bookings whose check-in date
// passed are expired on the payment-timeout edge. Idempotent: a booking
// already expired fails the guard and produces no second event.
func (s *Service) RunExpirySweep(ctx context.Context, hotelID string) (Result, error) {
	if _, err := s.hotelRepo.GetByID(ctx, hotelID); err != nil {
		return Result{}, err
	}

	var res Result
	var evts []event.Event
	var refunds []*booking.Booking

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		got, err := s.marker.TryAcquire(ctx, markerExpiry, hotelID)
		if err != nil {
			return err
		}
		if !got {
			res.SkippedRun = true
			return nil
		}

		now := time.Now().UTC()

		overdue, err := s.bookingRepo.LockExpiryCandidates(ctx, hotelID, now, s.batchSize)
		if err != nil {
			return err
		}
		for _, b := range overdue {
			// Guard re-checked under lock: the selection predicate may be
			// stale by the time the row lock was granted.
			if b.Status != booking.StatusPendingApproval || b.ExpiredAt != nil {
				continue
			}
			if b.ApprovalDeadlineAt == nil || !b.ApprovalDeadlineAt.Before(now) {
				continue
			}
			if err := s.expire(ctx, b, string(booking.StatusPendingApproval), now); err != nil {
				return err
			}
			if b.Paid() {
				refunds = append(refunds, b)
			}
			evts = append(evts, s.bookingEvent(event.TypeBookingExpired, b))
			res.Processed++
		}

		unpaid, err := s.bookingRepo.LockPaymentTimeoutCandidates(ctx, hotelID, now, s.batchSize)
		if err != nil {
			return err
		}
		for _, b := range unpaid {
			if b.Status != booking.StatusPendingPayment || b.Paid() || b.ExpiredAt != nil {
				continue
			}
			if err := s.expire(ctx, b, string(booking.StatusPendingPayment), now); err != nil {
				return err
			}
			evts = append(evts, s.bookingEvent(event.TypeBookingExpired, b))
			res.Processed++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.publish(ctx, evts)
	for _, b := range refunds {
		s.initiateRefund(ctx, b)
	}
	if res.Processed > 0 {
		log.Printf("expiry sweep hotel=%s expired=%d", hotelID, res.Processed)
	}
	return res, nil
}

// RunOverstayDetection opens incidents for in-house stays whose expected
// checkout date has passed the hotel's local detection hour. Detection is
// idempotent per (booking, date) and never resolves anything: incidents are
// a request for a human decision.
func (s *Service) RunOverstayDetection(ctx context.Context, hotelID string) (Result, error) {
	h, err := s.hotelRepo.GetByID(ctx, hotelID)
	if err != nil {
		return Result{}, err
	}

	latest := latestEligibleDate(time.Now(), h.Location(), h.OverstayDetectionHour)

	var res Result
	var evts []event.Event
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		got, err := s.marker.TryAcquire(ctx, markerOverstay, hotelID)
		if err != nil {
			return err
		}
		if !got {
			res.SkippedRun = true
			return nil
		}

		cands, err := s.bookingRepo.LockOverstayCandidates(ctx, hotelID, latest, s.batchSize)
		if err != nil {
			return err
		}
		for _, b := range cands {
			if b.Status != booking.StatusInHouse {
				continue
			}
			roomID := ""
			if b.RoomID != nil {
				roomID = *b.RoomID
			}
			inc := &overstay.Incident{
				HotelID:              b.HotelID,
				BookingID:            b.ID,
				RoomID:               roomID,
				ExpectedCheckoutDate: dateOf(b.CheckOut),
			}
			created, err := s.incidentRepo.CreateIfAbsent(ctx, inc)
			if err != nil {
				return err
			}
			if !created {
				// Same episode already detected; no duplicate incident and
				// no duplicate event.
				continue
			}

			err = s.logRepo.Append(ctx, &oplog.Entry{
				HotelID:   b.HotelID,
				BookingID: b.ID,
				RoomID:    roomID,
				Operation: oplog.OpIncidentOpen,
				Actor:     oplog.ActorSystem,
				Before:    "",
				After:     string(overstay.StatusOpen),
			})
			if err != nil {
				return err
			}

			e := s.bookingEvent(event.TypeIncidentOpened, b)
			e.IncidentID = inc.ID
			evts = append(evts, e)
			res.Processed++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.publish(ctx, evts)
	if res.Processed > 0 {
		log.Printf("overstay detection hotel=%s opened=%d", hotelID, res.Processed)
	}
	return res, nil
}

// RunNoShowSweep marks confirmed bookings that never checked in by the
// hotel's local cutoff on the day after check-in. Hotels without a cutoff
// configured are skipped entirely.
func (s *Service) RunNoShowSweep(ctx context.Context, hotelID string) (Result, error) {
	h, err := s.hotelRepo.GetByID(ctx, hotelID)
	if err != nil {
		return Result{}, err
	}
	if h.NoShowCutoffHour == nil {
		return Result{Disabled: true}, nil
	}

	// A check-in date C crosses the cutoff at hour H on day C+1; the latest
	// eligible C is therefore one day behind the overstay-style eligibility.
	latest := latestEligibleDate(time.Now(), h.Location(), *h.NoShowCutoffHour).AddDate(0, 0, -1)

	var res Result
	var evts []event.Event
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		got, err := s.marker.TryAcquire(ctx, markerNoShow, hotelID)
		if err != nil {
			return err
		}
		if !got {
			res.SkippedRun = true
			return nil
		}

		now := time.Now().UTC()
		cands, err := s.bookingRepo.LockNoShowCandidates(ctx, hotelID, latest, s.batchSize)
		if err != nil {
			return err
		}
		for _, b := range cands {
			if b.Status != booking.StatusConfirmed || b.CheckedInAt != nil {
				continue
			}
			b.Status = booking.StatusNoShow
			b.DecisionAt = &now
			if err := s.bookingRepo.Update(ctx, b); err != nil {
				return err
			}
			err = s.logRepo.Append(ctx, &oplog.Entry{
				HotelID:   b.HotelID,
				BookingID: b.ID,
				Operation: oplog.OpNoShow,
				Actor:     oplog.ActorSystem,
				Before:    string(booking.StatusConfirmed),
				After:     string(booking.StatusNoShow),
			})
			if err != nil {
				return err
			}
			evts = append(evts, s.bookingEvent(event.TypeBookingNoShow, b))
			res.Processed++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.publish(ctx, evts)
	if res.Processed > 0 {
		log.Printf("no-show sweep hotel=%s marked=%d", hotelID, res.Processed)
	}
	return res, nil
}

func (s *Service) expire(ctx context.Context, b *booking.Booking, priorStatus string, now time.Time) error {
	b.Status = booking.StatusExpired
	b.ExpiredAt = &now
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return err
	}
	return s.logRepo.Append(ctx, &oplog.Entry{
		HotelID:   b.HotelID,
		BookingID: b.ID,
		Operation: oplog.OpExpire,
		Actor:     oplog.ActorSystem,
		Before:    priorStatus,
		After:     string(booking.StatusExpired),
	})
}

func (s *Service) initiateRefund(ctx context.Context, b *booking.Booking) {
	if err := s.gateway.Refund(ctx, b.PaymentRef); err != nil {
		log.Printf("refund initiation for expired booking %s failed, flag for manual review: %v", b.ID, err)
		return
	}

	var evts []event.Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		err := s.logRepo.Append(ctx, &oplog.Entry{
			HotelID:   b.HotelID,
			BookingID: b.ID,
			Operation: oplog.OpRefundInitiate,
			Actor:     oplog.ActorSystem,
			Before:    "",
			After:     b.PaymentRef,
		})
		if err != nil {
			return err
		}
		evts = append(evts, s.bookingEvent(event.TypeRefundInitiated, b))
		return nil
	})
	if err != nil {
		log.Printf("record refund initiation for booking %s failed: %v", b.ID, err)
		return
	}
	s.publish(ctx, evts)
}

func (s *Service) bookingEvent(eventType string, b *booking.Booking) event.Event {
	e := event.New(eventType, oplog.ActorSystem)
	e.HotelID = b.HotelID
	e.BookingID = b.ID
	if b.RoomID != nil {
		e.RoomID = *b.RoomID
	}
	return e
}

func (s *Service) publish(ctx context.Context, evts []event.Event) {
	for _, e := range evts {
		if err := s.events.Publish(ctx, e); err != nil {
			log.Printf("publish %s event for booking %s failed: %v", e.Type, e.BookingID, err)
		}
	}
}

// latestEligibleDate returns the most recent calendar date (midnight UTC)
// whose detection moment, hourLocal on that date in the hotel's timezone,
// has been reached: today once the local clock passes the hour, otherwise
// yesterday.
func latestEligibleDate(now time.Time, loc *time.Location, hourLocal int) time.Time {
	local := now.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if local.Hour() < hourLocal {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// dateOf truncates a timestamp to its calendar date at midnight UTC.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
