package overstay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
)

type memRepo struct {
	seq       int
	incidents map[string]*Incident
}

func newMemRepo() *memRepo {
	return &memRepo{incidents: make(map[string]*Incident)}
}

func (m *memRepo) add(i *Incident) *Incident {
	m.seq++
	cp := *i
	cp.ID = "inc-" + string(rune('0'+m.seq))
	if cp.Status == "" {
		cp.Status = StatusOpen
	}
	m.incidents[cp.ID] = &cp
	out := cp
	return &out
}

func (m *memRepo) CreateIfAbsent(_ context.Context, i *Incident) (bool, error) {
	for _, existing := range m.incidents {
		if existing.BookingID == i.BookingID && existing.ExpectedCheckoutDate.Equal(i.ExpectedCheckoutDate) {
			return false, nil
		}
	}
	created := m.add(i)
	i.ID = created.ID
	return true, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Incident, error) {
	i, ok := m.incidents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, _ Filter) ([]*Incident, int, error) {
	return nil, 0, nil
}

func (m *memRepo) LockByID(ctx context.Context, id string) (*Incident, error) {
	return m.GetByID(ctx, id)
}

func (m *memRepo) LockActionableByBooking(_ context.Context, bookingID string) ([]*Incident, error) {
	var out []*Incident
	for _, i := range m.incidents {
		if i.BookingID == bookingID && (i.Status == StatusOpen || i.Status == StatusAcked) {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, i *Incident) error {
	if _, ok := m.incidents[i.ID]; !ok {
		return ErrNotFound
	}
	cp := *i
	m.incidents[i.ID] = &cp
	return nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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

type memPublisher struct {
	events []event.Event
}

func (m *memPublisher) Publish(_ context.Context, e event.Event) error {
	m.events = append(m.events, e)
	return nil
}

var checkoutDate = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func newTestService() (Service, *memRepo, *memLog, *memPublisher) {
	repo := newMemRepo()
	logRepo := &memLog{}
	pub := &memPublisher{}
	return NewService(repo, logRepo, passTx{}, pub), repo, logRepo, pub
}

func openIncident(repo *memRepo, bookingID string) *Incident {
	return repo.add(&Incident{
		HotelID:              "h1",
		BookingID:            bookingID,
		RoomID:               "r1",
		ExpectedCheckoutDate: checkoutDate,
		DetectedAt:           checkoutDate.Add(12 * time.Hour),
		Status:               StatusOpen,
	})
}

func TestAcknowledge(t *testing.T) {
	t.Run("marks open incident acked without resolving", func(t *testing.T) {
		svc, repo, logRepo, pub := newTestService()
		inc := openIncident(repo, "b1")

		got, err := svc.Acknowledge(context.Background(), inc.ID, "s1")
		require.NoError(t, err)

		assert.Equal(t, StatusAcked, got.Status)
		assert.NotNil(t, got.AcknowledgedAt)
		assert.Equal(t, "s1", got.AcknowledgedBy)
		assert.Nil(t, got.ResolvedAt)

		require.Len(t, logRepo.entries, 1)
		assert.Equal(t, oplog.OpIncidentAck, logRepo.entries[0].Operation)
		require.Len(t, pub.events, 1)
		assert.Equal(t, event.TypeIncidentAcked, pub.events[0].Type)
		assert.Equal(t, got.ID, pub.events[0].IncidentID)
	})

	t.Run("second acknowledge conflicts", func(t *testing.T) {
		svc, repo, _, pub := newTestService()
		inc := openIncident(repo, "b1")

		_, err := svc.Acknowledge(context.Background(), inc.ID, "s1")
		require.NoError(t, err)
		_, err = svc.Acknowledge(context.Background(), inc.ID, "s2")
		assert.True(t, errors.Is(err, ErrNotOpen))
		assert.Len(t, pub.events, 1)
	})
}

func TestDismiss(t *testing.T) {
	t.Run("closes an acked incident", func(t *testing.T) {
		svc, repo, _, pub := newTestService()
		inc := openIncident(repo, "b1")
		_, err := svc.Acknowledge(context.Background(), inc.ID, "s1")
		require.NoError(t, err)

		got, err := svc.Dismiss(context.Background(), inc.ID, "s1")
		require.NoError(t, err)
		assert.Equal(t, StatusDismissed, got.Status)
		assert.NotNil(t, got.ResolvedAt)
		assert.Equal(t, event.TypeIncidentDismissed, pub.events[len(pub.events)-1].Type)
	})

	t.Run("dismissed incident stays closed", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		inc := openIncident(repo, "b1")
		_, err := svc.Dismiss(context.Background(), inc.ID, "s1")
		require.NoError(t, err)

		_, err = svc.Dismiss(context.Background(), inc.ID, "s2")
		assert.True(t, errors.Is(err, ErrAlreadyClosed))
	})
}

func TestResolveCovered(t *testing.T) {
	t.Run("covering extension resolves the incident", func(t *testing.T) {
		svc, repo, logRepo, _ := newTestService()
		inc := openIncident(repo, "b1")

		id, err := svc.ResolveCovered(context.Background(), "b1", checkoutDate.Add(48*time.Hour), "s1")
		require.NoError(t, err)
		assert.Equal(t, inc.ID, id)

		stored, err := repo.GetByID(context.Background(), inc.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusResolved, stored.Status)
		assert.Equal(t, "s1", stored.ResolvedBy)
		assert.Equal(t, oplog.OpIncidentResolve, logRepo.entries[0].Operation)
	})

	t.Run("extension short of the checkout date resolves nothing", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		inc := repo.add(&Incident{
			HotelID: "h1", BookingID: "b1", RoomID: "r1",
			ExpectedCheckoutDate: checkoutDate.Add(72 * time.Hour),
			Status:               StatusOpen,
		})

		id, err := svc.ResolveCovered(context.Background(), "b1", checkoutDate.Add(24*time.Hour), "s1")
		require.NoError(t, err)
		assert.Empty(t, id)

		stored, err := repo.GetByID(context.Background(), inc.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, stored.Status)
	})

	t.Run("no incident is a no-op", func(t *testing.T) {
		svc, _, logRepo, _ := newTestService()
		id, err := svc.ResolveCovered(context.Background(), "b1", checkoutDate, "s1")
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.Empty(t, logRepo.entries)
	})

	t.Run("resolves acked incidents too", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		inc := openIncident(repo, "b1")
		_, err := svc.Acknowledge(context.Background(), inc.ID, "s1")
		require.NoError(t, err)

		id, err := svc.ResolveCovered(context.Background(), "b1", checkoutDate.Add(time.Hour), "s2")
		require.NoError(t, err)
		assert.Equal(t, inc.ID, id)
	})
}
