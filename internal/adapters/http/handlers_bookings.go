package web

import (
	"net/http"

	"classbook/internal/application/orchestrators"

	"github.com/labstack/echo/v4"
)

// memberFor returns the member a request acts on: the body's member_id when
// given, otherwise the caller. The engine decides whether the caller may act for them.
func memberFor(c echo.Context) (string, error) {
	var req memberRequest
	if err := bindValid(c, &req); err != nil {
		return "", err
	}
	if req.MemberID != "" {
		return req.MemberID, nil
	}
	return currentActor(c).ID, nil
}

// handleBookClass reserves a seat (POST /api/classes/:id/bookings).
// PRE: caller is the member or staff acting for member_id
// POST: 201 with the booking, or a rejection
func (s *server) handleBookClass(c echo.Context) error {
	memberID, err := memberFor(c)
	if err != nil {
		return err
	}
	res, err := orchestrators.ExecuteBookClass(c.Request().Context(), orchestrators.BookClassInput{
		Actor:           currentActor(c),
		MemberID:        memberID,
		ClassInstanceID: c.Param("id"),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(res.Booking))
}

// handleCancelBooking cancels a booking (POST /api/bookings/:id/cancel).
func (s *server) handleCancelBooking(c echo.Context) error {
	res, err := orchestrators.ExecuteCancelBooking(c.Request().Context(), orchestrators.CancelBookingInput{
		Actor:     currentActor(c),
		BookingID: c.Param("id"),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cancelBookingResponse{
		Status:     res.Booking.Status,
		Late:       res.Late,
		Booking:    toBookingResponse(res.Booking),
		Promotions: toPromotionResponses(res.Promotions),
	})
}

// handleMarkAttendance records attendance (POST /api/bookings/:id/attendance).
func (s *server) handleMarkAttendance(c echo.Context) error {
	var req attendanceRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := orchestrators.ExecuteMarkAttendance(c.Request().Context(), orchestrators.MarkAttendanceInput{
		Actor:     currentActor(c),
		BookingID: c.Param("id"),
		Status:    req.Status,
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(res.Booking))
}

// handleJoinWaitlist queues the member for a full class (POST /api/classes/:id/waitlist).
func (s *server) handleJoinWaitlist(c echo.Context) error {
	memberID, err := memberFor(c)
	if err != nil {
		return err
	}
	res, err := orchestrators.ExecuteJoinWaitlist(c.Request().Context(), orchestrators.JoinWaitlistInput{
		Actor:           currentActor(c),
		MemberID:        memberID,
		ClassInstanceID: c.Param("id"),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toWaitlistEntryResponse(res.Entry))
}

// handleLeaveWaitlist removes a waiting entry (POST /api/waitlist/:id/leave).
func (s *server) handleLeaveWaitlist(c echo.Context) error {
	res, err := orchestrators.ExecuteLeaveWaitlist(c.Request().Context(), orchestrators.LeaveWaitlistInput{
		Actor:   currentActor(c),
		EntryID: c.Param("id"),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWaitlistEntryResponse(res.Entry))
}
