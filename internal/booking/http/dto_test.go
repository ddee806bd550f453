package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
)

func bindJSON(t *testing.T, body string, dst any) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(dst)
}

func TestCreateBookingRequestBinding(t *testing.T) {
	t.Run("date-only payload binds to midnight UTC", func(t *testing.T) {
		var req CreateBookingRequest
		err := bindJSON(t, `{
			"hotel_id": "11111111-1111-1111-1111-111111111111",
			"guest_name": "Lin Wei",
			"check_in": "2026-09-01",
			"check_out": "2026-09-04",
			"amount_cents": 450000,
			"currency": "TWD"
		}`, &req)
		require.NoError(t, err)
		require.NoError(t, req.Validate())

		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), parseDate(req.CheckIn))
		assert.Equal(t, time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), parseDate(req.CheckOut))
	})

	t.Run("timestamp with a time component is rejected", func(t *testing.T) {
		var req CreateBookingRequest
		err := bindJSON(t, `{
			"hotel_id": "11111111-1111-1111-1111-111111111111",
			"guest_name": "Lin Wei",
			"check_in": "2026-09-01",
			"check_out": "2026-09-04T14:00:00Z",
			"amount_cents": 450000,
			"currency": "TWD"
		}`, &req)
		assert.Error(t, err)
	})

	t.Run("inverted dates fail validation", func(t *testing.T) {
		var req CreateBookingRequest
		err := bindJSON(t, `{
			"hotel_id": "11111111-1111-1111-1111-111111111111",
			"guest_name": "Lin Wei",
			"check_in": "2026-09-04",
			"check_out": "2026-09-01",
			"amount_cents": 450000,
			"currency": "TWD"
		}`, &req)
		require.NoError(t, err)
		assert.ErrorIs(t, req.Validate(), booking.ErrInvalidDateRange)
	})
}

func TestExtendStayRequestBinding(t *testing.T) {
	t.Run("date-only payload binds", func(t *testing.T) {
		var req ExtendStayRequest
		err := bindJSON(t, `{"new_check_out": "2026-09-06", "payment_ref": "chrg_1"}`, &req)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC), parseDate(req.NewCheckOut))
	})

	t.Run("time component is rejected", func(t *testing.T) {
		var req ExtendStayRequest
		err := bindJSON(t, `{"new_check_out": "2026-09-06T14:00:00Z"}`, &req)
		assert.Error(t, err)
	})
}
