package web

import (
	"errors"
	"net/http"

	"classbook/internal/application/orchestrators"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/capacity"
	"classbook/internal/domain/rejection"

	"github.com/labstack/echo/v4"
)

// handleMemberAccess resolves booking access (GET /api/members/:id/access?location_id=).
// Members may only query themselves.
func (s *server) handleMemberAccess(c echo.Context) error {
	memberID := c.Param("id")
	locationID := c.QueryParam("location_id")
	if locationID == "" {
		return invalidInput("location_id is required")
	}
	if !currentActor(c).CanActFor(memberID) {
		return booking.ErrForbidden
	}
	d, err := orchestrators.ExecuteResolveAccess(c.Request().Context(), orchestrators.ResolveAccessInput{
		MemberID:   memberID,
		LocationID: locationID,
	}, orchestrators.ResolveAccessDeps{Access: s.stores.AccessStore})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccessResponse(memberID, locationID, d))
}

func (s *server) enrollmentDeps() orchestrators.EnrollmentDeps {
	return orchestrators.EnrollmentDeps{Limits: s.stores.CapacityStore}
}

// handleLocationCapacity reports the membership verdict (GET /api/locations/:id/capacity[?plan_id=]).
func (s *server) handleLocationCapacity(c echo.Context) error {
	ctx := c.Request().Context()
	locationID := c.Param("id")
	var (
		ev  capacity.Evaluation
		err error
	)
	if planID := c.QueryParam("plan_id"); planID != "" {
		ev, err = orchestrators.ExecuteEvaluatePlanAtLocation(ctx, planID, locationID, s.enrollmentDeps())
	} else {
		ev, err = orchestrators.ExecuteEvaluateLocation(ctx, locationID, s.enrollmentDeps())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEvaluationResponse(ev))
}

// handleCheckEnrollment decides whether a new membership may start (POST /api/enrollments/check).
// A blocked enrollment answers 409 with the verdicts attached.
func (s *server) handleCheckEnrollment(c echo.Context) error {
	var req enrollmentCheckRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := orchestrators.ExecuteCheckEnrollment(c.Request().Context(), orchestrators.CheckEnrollmentInput{
		LocationID: req.LocationID,
		PlanID:     req.PlanID,
	}, s.enrollmentDeps())
	body := enrollmentCheckResponse{
		Allowed:  res.Allowed,
		Location: toEvaluationResponse(res.Location),
		Warnings: res.Warnings,
	}
	if body.Warnings == nil {
		body.Warnings = []string{}
	}
	if res.Plan != nil {
		plan := toEvaluationResponse(*res.Plan)
		body.Plan = &plan
	}
	if errors.Is(err, capacity.ErrEnrollmentBlocked) {
		return c.JSON(http.StatusConflict, enrollmentBlockedResponse{
			errorBody: errorBody{Error: string(rejection.EnrollmentBlocked), Message: capacity.ErrEnrollmentBlocked.Message},
			Result:    body,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, body)
}
