package sweep

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/overstay"
	"github.com/nekogravitycat/hotel-ops-backend/internal/payment"
)

// In-memory fakes. The candidate selectors apply the same predicates as the
// SQL they stand in for, so a second run naturally sees the post-transition
// state.

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMarker struct {
	held bool // when true, another runner owns the marker
}

func (m *fakeMarker) TryAcquire(_ context.Context, _, _ string) (bool, error) {
	return !m.held, nil
}

type fakeHotelRepo struct {
	hotel *hotel.Hotel
}

func (f *fakeHotelRepo) Create(_ context.Context, _ *hotel.Hotel) error { return nil }
func (f *fakeHotelRepo) GetByID(_ context.Context, id string) (*hotel.Hotel, error) {
	if f.hotel == nil || f.hotel.ID != id {
		return nil, hotel.ErrNotFound
	}
	return f.hotel, nil
}
func (f *fakeHotelRepo) List(_ context.Context) ([]*hotel.Hotel, error) { return nil, nil }
func (f *fakeHotelRepo) Update(_ context.Context, _ *hotel.Hotel) error { return nil }

type fakeBookingRepo struct {
	bookings map[string]*booking.Booking
}

func (f *fakeBookingRepo) Create(_ context.Context, _ *booking.Booking) error { return nil }

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) List(_ context.Context, _ booking.Filter) ([]*booking.Booking, int, error) {
	return nil, 0, nil
}

func (f *fakeBookingRepo) Update(_ context.Context, b *booking.Booking) error {
	if _, ok := f.bookings[b.ID]; !ok {
		return booking.ErrNotFound
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookingRepo) LockByIDs(_ context.Context, ids []string) (map[string]*booking.Booking, error) {
	out := make(map[string]*booking.Booking, len(ids))
	for _, id := range ids {
		if b, ok := f.bookings[id]; ok {
			cp := *b
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) OverlapIDs(_ context.Context, _ string, _, _ time.Time, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeBookingRepo) LockExpiryCandidates(_ context.Context, hotelID string, now time.Time, _ int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.HotelID != hotelID || b.Status != booking.StatusPendingApproval {
			continue
		}
		if b.ApprovalDeadlineAt == nil || !b.ApprovalDeadlineAt.Before(now) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBookingRepo) LockPaymentTimeoutCandidates(_ context.Context, hotelID string, now time.Time, _ int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.HotelID != hotelID || b.Status != booking.StatusPendingPayment {
			continue
		}
		if !b.CheckIn.Before(now) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBookingRepo) LockNoShowCandidates(_ context.Context, hotelID string, checkInOnOrBefore time.Time, _ int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.HotelID != hotelID || b.Status != booking.StatusConfirmed || b.CheckedInAt != nil {
			continue
		}
		if b.CheckIn.After(checkInOnOrBefore) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBookingRepo) LockOverstayCandidates(_ context.Context, hotelID string, checkOutOnOrBefore time.Time, _ int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.HotelID != hotelID || b.Status != booking.StatusInHouse {
			continue
		}
		if b.CheckOut.After(checkOutOnOrBefore) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBookingRepo) FindByPaymentRef(_ context.Context, _ string) (*booking.Booking, error) {
	return nil, booking.ErrNotFound
}

func (f *fakeBookingRepo) CreateExtension(_ context.Context, _ *booking.Extension) error { return nil }

func (f *fakeBookingRepo) ListExtensions(_ context.Context, _ string) ([]*booking.Extension, error) {
	return nil, nil
}

type fakeIncidentRepo struct {
	seq       int
	incidents map[string]*overstay.Incident // keyed booking id + expected checkout date
}

func newFakeIncidentRepo() *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: make(map[string]*overstay.Incident)}
}

func episodeKey(i *overstay.Incident) string {
	return i.BookingID + "|" + i.ExpectedCheckoutDate.Format("2006-01-02")
}

func (f *fakeIncidentRepo) CreateIfAbsent(_ context.Context, i *overstay.Incident) (bool, error) {
	if _, ok := f.incidents[episodeKey(i)]; ok {
		return false, nil
	}
	f.seq++
	i.ID = "inc-" + strconv.Itoa(f.seq)
	i.Status = overstay.StatusOpen
	i.DetectedAt = time.Now().UTC()
	cp := *i
	f.incidents[episodeKey(i)] = &cp
	return true, nil
}

func (f *fakeIncidentRepo) GetByID(_ context.Context, _ string) (*overstay.Incident, error) {
	return nil, overstay.ErrNotFound
}

func (f *fakeIncidentRepo) List(_ context.Context, _ overstay.Filter) ([]*overstay.Incident, int, error) {
	return nil, 0, nil
}

func (f *fakeIncidentRepo) LockByID(_ context.Context, _ string) (*overstay.Incident, error) {
	return nil, overstay.ErrNotFound
}

func (f *fakeIncidentRepo) LockActionableByBooking(_ context.Context, _ string) ([]*overstay.Incident, error) {
	return nil, nil
}

func (f *fakeIncidentRepo) Update(_ context.Context, _ *overstay.Incident) error { return nil }

type fakeLog struct {
	entries []*oplog.Entry
}

func (f *fakeLog) Append(_ context.Context, e *oplog.Entry) error {
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeLog) List(_ context.Context, _ oplog.Filter) ([]*oplog.Entry, int, error) {
	return nil, 0, nil
}

func (f *fakeLog) count(op string) int {
	n := 0
	for _, e := range f.entries {
		if e.Operation == op {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	events []event.Event
}

func (f *fakePublisher) Publish(_ context.Context, e event.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) count(eventType string) int {
	n := 0
	for _, e := range f.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	refunds []string
}

func (f *fakeGateway) Capture(_ context.Context, _ int64, _, _ string) (payment.CaptureResult, error) {
	return payment.CaptureConfirmed, nil
}

func (f *fakeGateway) Refund(_ context.Context, ref string) error {
	f.refunds = append(f.refunds, ref)
	return nil
}

type fixture struct {
	svc       *Service
	hotel     *hotel.Hotel
	bookings  *fakeBookingRepo
	incidents *fakeIncidentRepo
	logRepo   *fakeLog
	publisher *fakePublisher
	gateway   *fakeGateway
	marker    *fakeMarker
}

func newFixture() *fixture {
	h := &hotel.Hotel{
		ID:                    "11111111-1111-1111-1111-111111111111",
		Name:                  "Harbourview",
		Timezone:              "UTC",
		ApprovalSLAMinutes:    30,
		OverstayDetectionHour: 0,
	}
	f := &fixture{
		hotel:     h,
		bookings:  &fakeBookingRepo{bookings: make(map[string]*booking.Booking)},
		incidents: newFakeIncidentRepo(),
		logRepo:   &fakeLog{},
		publisher: &fakePublisher{},
		gateway:   &fakeGateway{},
		marker:    &fakeMarker{},
	}
	f.svc = NewService(Deps{
		HotelRepo:    &fakeHotelRepo{hotel: h},
		BookingRepo:  f.bookings,
		IncidentRepo: f.incidents,
		LogRepo:      f.logRepo,
		Tx:           passTx{},
		Events:       f.publisher,
		Gateway:      f.gateway,
		Marker:       f.marker,
	})
	return f
}

func (f *fixture) addBooking(b *booking.Booking) {
	b.HotelID = f.hotel.ID
	cp := *b
	f.bookings.bookings[b.ID] = &cp
}

func TestRunExpirySweepTwice(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	f.addBooking(&booking.Booking{
		ID:                 "b1",
		Status:             booking.StatusPendingApproval,
		PaidAt:             &past,
		ApprovalDeadlineAt: &past,
		PaymentRef:         "chrg_1",
		CheckIn:            now.AddDate(0, 0, 2),
		CheckOut:           now.AddDate(0, 0, 5),
	})

	res, err := f.svc.RunExpirySweep(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	first, err := f.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusExpired, first.Status)
	require.NotNil(t, first.ExpiredAt)
	assert.Equal(t, []string{"chrg_1"}, f.gateway.refunds)
	assert.Equal(t, 1, f.publisher.count(event.TypeBookingExpired))
	assert.Equal(t, 1, f.publisher.count(event.TypeRefundInitiated))

	// Same overdue set again: identical end state, nothing re-emitted.
	res, err = f.svc.RunExpirySweep(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)

	second, err := f.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"chrg_1"}, f.gateway.refunds)
	assert.Equal(t, 1, f.publisher.count(event.TypeBookingExpired))
	assert.Equal(t, 1, f.publisher.count(event.TypeRefundInitiated))
	assert.Equal(t, 1, f.logRepo.count(oplog.OpExpire))
	assert.Equal(t, 1, f.logRepo.count(oplog.OpRefundInitiate))
}

func TestRunExpirySweepPaymentTimeout(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	f.addBooking(&booking.Booking{
		ID:       "b1",
		Status:   booking.StatusPendingPayment,
		CheckIn:  now.AddDate(0, 0, -1),
		CheckOut: now.AddDate(0, 0, 2),
	})

	res, err := f.svc.RunExpirySweep(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	b, err := f.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusExpired, b.Status)
	// Never paid, so nothing to refund.
	assert.Empty(t, f.gateway.refunds)

	res, err = f.svc.RunExpirySweep(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, f.publisher.count(event.TypeBookingExpired))
}

func TestRunExpirySweepMarkerHeld(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	f.addBooking(&booking.Booking{
		ID:                 "b1",
		Status:             booking.StatusPendingApproval,
		ApprovalDeadlineAt: &past,
		CheckIn:            now.AddDate(0, 0, 2),
		CheckOut:           now.AddDate(0, 0, 5),
	})
	f.marker.held = true

	res, err := f.svc.RunExpirySweep(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.True(t, res.SkippedRun)
	assert.Equal(t, 0, res.Processed)

	b, err := f.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingApproval, b.Status)
	assert.Empty(t, f.publisher.events)
	assert.Empty(t, f.logRepo.entries)
}

func TestRunOverstayDetectionTwice(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	roomID := "r1"
	checkedIn := now.AddDate(0, 0, -3)
	f.addBooking(&booking.Booking{
		ID:          "b1",
		Status:      booking.StatusInHouse,
		RoomID:      &roomID,
		CheckedInAt: &checkedIn,
		CheckIn:     now.AddDate(0, 0, -3),
		CheckOut:    now.AddDate(0, 0, -1),
	})

	res, err := f.svc.RunOverstayDetection(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, f.incidents.incidents, 1)
	require.Equal(t, 1, f.publisher.count(event.TypeIncidentOpened))
	assert.NotEmpty(t, f.publisher.events[0].IncidentID)
	assert.Equal(t, "r1", f.publisher.events[0].RoomID)

	// Duplicate run for the same episode: no second incident, no second
	// event, no second log entry.
	res, err = f.svc.RunOverstayDetection(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Len(t, f.incidents.incidents, 1)
	assert.Equal(t, 1, f.publisher.count(event.TypeIncidentOpened))
	assert.Equal(t, 1, f.logRepo.count(oplog.OpIncidentOpen))
}

func TestRunOverstayDetectionSkipsCheckedOut(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	f.addBooking(&booking.Booking{
		ID:       "b1",
		Status:   booking.StatusCompleted,
		CheckIn:  now.AddDate(0, 0, -3),
		CheckOut: now.AddDate(0, 0, -1),
	})

	res, err := f.svc.RunOverstayDetection(context.Background(), f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Empty(t, f.incidents.incidents)
}

func TestRunNoShowSweep(t *testing.T) {
	t.Run("disabled without a cutoff", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.RunNoShowSweep(context.Background(), f.hotel.ID)
		require.NoError(t, err)
		assert.True(t, res.Disabled)
	})

	t.Run("marks unarrived confirmed bookings once", func(t *testing.T) {
		f := newFixture()
		cutoff := 0
		f.hotel.NoShowCutoffHour = &cutoff

		now := time.Now().UTC()
		f.addBooking(&booking.Booking{
			ID:       "b1",
			Status:   booking.StatusConfirmed,
			CheckIn:  now.AddDate(0, 0, -3),
			CheckOut: now.AddDate(0, 0, 1),
		})

		res, err := f.svc.RunNoShowSweep(context.Background(), f.hotel.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)

		b, err := f.bookings.GetByID(context.Background(), "b1")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusNoShow, b.Status)
		assert.NotNil(t, b.DecisionAt)

		res, err = f.svc.RunNoShowSweep(context.Background(), f.hotel.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Processed)
		assert.Equal(t, 1, f.publisher.count(event.TypeBookingNoShow))
		assert.Equal(t, 1, f.logRepo.count(oplog.OpNoShow))
	})
}

func TestLatestEligibleDate(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	t.Run("past the detection hour includes today", func(t *testing.T) {
		// 13:00 local with a 12:00 detection hour.
		now := time.Date(2026, 8, 28, 5, 0, 0, 0, time.UTC) // 13:00 Taipei
		d := latestEligibleDate(now, taipei, 12)
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("before the detection hour stops at yesterday", func(t *testing.T) {
		// 09:00 local with a 12:00 detection hour: today's checkouts are not
		// yet overdue, yesterday's are.
		now := time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC) // 09:00 Taipei
		d := latestEligibleDate(now, taipei, 12)
		assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("local date differs from UTC date", func(t *testing.T) {
		// 23:30 UTC on the 27th is already 07:30 on the 28th in Taipei; with
		// a detection hour of 6 today-in-Taipei qualifies.
		now := time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)
		d := latestEligibleDate(now, taipei, 6)
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), d)
	})
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2026, 8, 28, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), dateOf(ts))
}
