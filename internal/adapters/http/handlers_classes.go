package web

import (
	"net/http"
	"strconv"
	"time"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/application/orchestrators"
	"classbook/internal/application/projections"
	"classbook/internal/domain/actor"

	"github.com/labstack/echo/v4"
)

// bindValid binds the request body into req and validates it.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// currentActor returns the authenticated actor. Auth runs on every /api route.
func currentActor(c echo.Context) actor.Actor {
	a, _ := middleware.ActorFromContext(c)
	return a
}

// handleCreateClass creates a one-off class instance (POST /api/classes).
// PRE: caller is admin or staff
// POST: 201 with the scheduled class
func (s *server) handleCreateClass(c echo.Context) error {
	var req createClassRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	input := orchestrators.CreateClassInstanceInput{
		Actor:      currentActor(c),
		LocationID: req.LocationID,
		Title:      req.Title,
		StartAt:    req.StartAt.UTC(),
		EndAt:      req.EndAt.UTC(),
		Capacity:   *req.Capacity,
	}
	if req.CancelCutoffMinutes != nil {
		cutoff := time.Duration(*req.CancelCutoffMinutes) * time.Minute
		input.CancelCutoff = &cutoff
	}
	res, err := orchestrators.ExecuteCreateClassInstance(c.Request().Context(), input, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toClassResponse(res.Instance))
}

// handleUpdateCapacity changes a class's seat count (PUT /api/classes/:id/capacity).
func (s *server) handleUpdateCapacity(c echo.Context) error {
	var req capacityRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := orchestrators.ExecuteUpdateCapacity(c.Request().Context(), orchestrators.UpdateCapacityInput{
		Actor:           currentActor(c),
		ClassInstanceID: c.Param("id"),
		Capacity:        *req.Capacity,
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"class":      toClassResponse(res.Instance),
		"promotions": toPromotionResponses(res.Promotions),
	})
}

// handleCancelClass cancels a class and cascades to its bookings (POST /api/classes/:id/cancel).
func (s *server) handleCancelClass(c echo.Context) error {
	var req cancelClassRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := orchestrators.ExecuteCancelClassInstance(c.Request().Context(), orchestrators.CancelClassInstanceInput{
		Actor:           currentActor(c),
		ClassInstanceID: c.Param("id"),
		Reason:          req.Reason,
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"class":             toClassResponse(res.Instance),
		"already_canceled":  res.AlreadyCanceled,
		"canceled_bookings": res.CanceledBookings,
		"removed_entries":   res.RemovedEntries,
	})
}

// handleRescheduleClass moves a class to a new time window (POST /api/classes/:id/reschedule).
func (s *server) handleRescheduleClass(c echo.Context) error {
	var req rescheduleRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := orchestrators.ExecuteRescheduleClassInstance(c.Request().Context(), orchestrators.RescheduleClassInstanceInput{
		Actor:           currentActor(c),
		ClassInstanceID: c.Param("id"),
		StartAt:         req.StartAt.UTC(),
		EndAt:           req.EndAt.UTC(),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toClassResponse(res.Instance))
}

// handlePromote runs one promotion step for a class (POST /api/classes/:id/promote).
func (s *server) handlePromote(c echo.Context) error {
	res, err := orchestrators.ExecutePromoteFromWaitlist(c.Request().Context(), orchestrators.PromoteFromWaitlistInput{
		Actor:           currentActor(c),
		ClassInstanceID: c.Param("id"),
	}, s.opts.Engine)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, promotionResponse(res))
}

// handleClassRoster returns bookings and waitlist for staff (GET /api/classes/:id/roster).
func (s *server) handleClassRoster(c echo.Context) error {
	includeCanceled, _ := strconv.ParseBool(c.QueryParam("include_canceled"))
	roster, err := projections.QueryGetClassRoster(c.Request().Context(), projections.GetClassRosterQuery{
		ClassInstanceID: c.Param("id"),
		IncludeCanceled: includeCanceled,
	}, projections.GetClassRosterDeps{
		ClassStore:    s.stores.ClassStore,
		BookingStore:  s.stores.BookingStore,
		WaitlistStore: s.stores.WaitlistStore,
		MemberStore:   s.stores.MemberStore,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRosterResponse(roster))
}

// handleLocationClasses lists the timetable at a location (GET /api/locations/:id/classes).
// Query: from, to (RFC 3339), include_canceled
func (s *server) handleLocationClasses(c echo.Context) error {
	query := projections.GetLocationClassesQuery{LocationID: c.Param("id"), From: s.now()}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return invalidInput("from must be RFC 3339")
		}
		query.From = t.UTC()
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return invalidInput("to must be RFC 3339")
		}
		if !t.After(query.From) {
			return invalidInput("to must be after from")
		}
		query.To = t.UTC()
	}
	query.IncludeCanceled, _ = strconv.ParseBool(c.QueryParam("include_canceled"))

	classes, err := projections.QueryGetLocationClasses(c.Request().Context(), query,
		projections.GetLocationClassesDeps{ClassStore: s.stores.ClassStore})
	if err != nil {
		return err
	}
	out := make([]classSummaryResponse, 0, len(classes))
	for _, cs := range classes {
		out = append(out, classSummaryResponse{classResponse: toClassResponse(cs.Instance), Full: cs.Full})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *server) now() time.Time {
	if s.opts.Engine.Now != nil {
		return s.opts.Engine.Now().UTC()
	}
	return time.Now().UTC()
}
