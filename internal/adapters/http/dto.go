package web

import (
	"time"

	"classbook/internal/application/orchestrators"
	"classbook/internal/application/projections"
	"classbook/internal/domain/access"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/capacity"
	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/waitlist"
)

// --- Requests ---

type createClassRequest struct {
	LocationID          string     `json:"location_id" validate:"required,max=64"`
	Title               string     `json:"title" validate:"required,max=200"`
	StartAt             *time.Time `json:"start_at" validate:"required"`
	EndAt               *time.Time `json:"end_at" validate:"required"`
	Capacity            *int       `json:"capacity" validate:"required"`
	CancelCutoffMinutes *int       `json:"cancel_cutoff_minutes" validate:"omitempty,min=0,max=10080"`
}

type memberRequest struct {
	MemberID string `json:"member_id" validate:"omitempty,max=64"`
}

type capacityRequest struct {
	Capacity *int `json:"capacity" validate:"required"`
}

type cancelClassRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type rescheduleRequest struct {
	StartAt *time.Time `json:"start_at" validate:"required"`
	EndAt   *time.Time `json:"end_at" validate:"required"`
}

type attendanceRequest struct {
	Status string `json:"status" validate:"required"`
}

type enrollmentCheckRequest struct {
	LocationID string `json:"location_id" validate:"required,max=64"`
	PlanID     string `json:"plan_id" validate:"max=64"`
}

// --- Responses ---

type classResponse struct {
	ID                  string    `json:"id"`
	LocationID          string    `json:"location_id"`
	ScheduleID          string    `json:"schedule_id,omitempty"`
	Title               string    `json:"title"`
	StartAt             time.Time `json:"start_at"`
	EndAt               time.Time `json:"end_at"`
	Capacity            int       `json:"capacity"`
	BookedCount         int       `json:"booked_count"`
	SeatsRemaining      int       `json:"seats_remaining"`
	Status              string    `json:"status"`
	CancelCutoffMinutes int       `json:"cancel_cutoff_minutes"`
	CancelReason        string    `json:"cancel_reason,omitempty"`
}

func toClassResponse(c classinstance.ClassInstance) classResponse {
	return classResponse{
		ID:                  c.ID,
		LocationID:          c.LocationID,
		ScheduleID:          c.ScheduleID,
		Title:               c.Title,
		StartAt:             c.StartAt,
		EndAt:               c.EndAt,
		Capacity:            c.Capacity,
		BookedCount:         c.BookedCount,
		SeatsRemaining:      c.RemainingSeats(),
		Status:              c.Status,
		CancelCutoffMinutes: int(c.CancelCutoff / time.Minute),
		CancelReason:        c.CancelReason,
	}
}

type bookingResponse struct {
	ID               string     `json:"id"`
	MemberID         string     `json:"member_id"`
	ClassInstanceID  string     `json:"class_instance_id"`
	Status           string     `json:"status"`
	AttendanceStatus string     `json:"attendance_status,omitempty"`
	LateCancel       bool       `json:"late_cancel"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	Source           string     `json:"source"`
	CreatedAt        time.Time  `json:"created_at"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`
}

func toBookingResponse(b booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		MemberID:         b.MemberID,
		ClassInstanceID:  b.ClassInstanceID,
		Status:           b.Status,
		AttendanceStatus: b.AttendanceStatus,
		LateCancel:       b.LateCancel,
		CancelReason:     b.CancelReason,
		Source:           b.Source,
		CreatedAt:        b.CreatedAt,
	}
	if !b.CanceledAt.IsZero() {
		at := b.CanceledAt
		resp.CanceledAt = &at
	}
	return resp
}

type waitlistEntryResponse struct {
	ID              string    `json:"id"`
	MemberID        string    `json:"member_id"`
	ClassInstanceID string    `json:"class_instance_id"`
	Position        int       `json:"position"`
	Status          string    `json:"status"`
	RemovedReason   string    `json:"removed_reason,omitempty"`
	BookingID       string    `json:"booking_id,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
}

func toWaitlistEntryResponse(e waitlist.Entry) waitlistEntryResponse {
	return waitlistEntryResponse{
		ID:              e.ID,
		MemberID:        e.MemberID,
		ClassInstanceID: e.ClassInstanceID,
		Position:        e.Position,
		Status:          e.Status,
		RemovedReason:   e.RemovedReason,
		BookingID:       e.BookingID,
		JoinedAt:        e.JoinedAt,
	}
}

type promotionResponse struct {
	Promoted  bool     `json:"promoted"`
	MemberID  string   `json:"member_id,omitempty"`
	BookingID string   `json:"booking_id,omitempty"`
	EntryID   string   `json:"waitlist_entry_id,omitempty"`
	Removed   []string `json:"removed,omitempty"`
}

func toPromotionResponses(results []orchestrators.PromotionResult) []promotionResponse {
	out := make([]promotionResponse, 0, len(results))
	for _, r := range results {
		out = append(out, promotionResponse(r))
	}
	return out
}

type cancelBookingResponse struct {
	Status     string              `json:"status"`
	Late       bool                `json:"late"`
	Booking    bookingResponse     `json:"booking"`
	Promotions []promotionResponse `json:"promotions"`
}

type accessResponse struct {
	MemberID   string `json:"member_id"`
	LocationID string `json:"location_id"`
	HasAccess  bool   `json:"has_access"`
	Status     string `json:"status"`
	State      string `json:"state"`
	InScope    bool   `json:"in_scope"`
}

func toAccessResponse(memberID, locationID string, d access.Decision) accessResponse {
	return accessResponse{
		MemberID:   memberID,
		LocationID: locationID,
		HasAccess:  d.HasAccess,
		Status:     d.Status,
		State:      d.State,
		InScope:    d.InScope,
	}
}

type evaluationResponse struct {
	Status            string `json:"status"`
	ActiveCount       int    `json:"active_count"`
	MaxAllowed        *int   `json:"max_allowed,omitempty"`
	SoftThreshold     *int   `json:"soft_threshold,omitempty"`
	HardLimitEnforced bool   `json:"hard_limit_enforced"`
}

func toEvaluationResponse(ev capacity.Evaluation) evaluationResponse {
	return evaluationResponse(ev)
}

type enrollmentCheckResponse struct {
	Allowed  bool                `json:"allowed"`
	Location evaluationResponse  `json:"location"`
	Plan     *evaluationResponse `json:"plan,omitempty"`
	Warnings []string            `json:"warnings"`
}

type enrollmentBlockedResponse struct {
	errorBody
	Result enrollmentCheckResponse `json:"result"`
}

type rosterBookingResponse struct {
	bookingResponse
	MemberName string `json:"member_name,omitempty"`
}

type rosterWaitlistResponse struct {
	waitlistEntryResponse
	MemberName string `json:"member_name,omitempty"`
}

type rosterResponse struct {
	Class          classResponse            `json:"class"`
	Bookings       []rosterBookingResponse  `json:"bookings"`
	Waitlist       []rosterWaitlistResponse `json:"waitlist"`
	SeatsRemaining int                      `json:"seats_remaining"`
	AttendedCount  int                      `json:"attended_count"`
}

func toRosterResponse(r projections.ClassRoster) rosterResponse {
	resp := rosterResponse{
		Class:          toClassResponse(r.Instance),
		Bookings:       make([]rosterBookingResponse, 0, len(r.Bookings)),
		Waitlist:       make([]rosterWaitlistResponse, 0, len(r.Waitlist)),
		SeatsRemaining: r.SeatsRemaining,
		AttendedCount:  r.AttendedCount,
	}
	for _, b := range r.Bookings {
		resp.Bookings = append(resp.Bookings, rosterBookingResponse{bookingResponse: toBookingResponse(b.Booking), MemberName: b.MemberName})
	}
	for _, e := range r.Waitlist {
		resp.Waitlist = append(resp.Waitlist, rosterWaitlistResponse{waitlistEntryResponse: toWaitlistEntryResponse(e.Entry), MemberName: e.MemberName})
	}
	return resp
}

type classSummaryResponse struct {
	classResponse
	Full bool `json:"full"`
}
