package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"classbook/internal/domain/capacity"
)

// LimitReader reads membership capacity configuration and counts.
type LimitReader interface {
	GetLimit(ctx context.Context, locationID, planID string) (*capacity.Limit, error)
	CountActiveMembers(ctx context.Context, locationID, planID string) (int, error)
}

// EnrollmentDeps holds dependencies for the capacity policy orchestrators.
type EnrollmentDeps struct {
	Limits LimitReader
}

// ExecuteEvaluateLocation derives the membership capacity verdict for a location.
// PRE: locationID is non-empty
// POST: Returns NO_LIMIT when nothing is configured
func ExecuteEvaluateLocation(ctx context.Context, locationID string, deps EnrollmentDeps) (capacity.Evaluation, error) {
	return evaluate(ctx, locationID, "", deps)
}

// ExecuteEvaluatePlanAtLocation derives the verdict for one plan at a location.
// PRE: planID and locationID are non-empty
// POST: Returns NO_LIMIT when no plan limit is configured
func ExecuteEvaluatePlanAtLocation(ctx context.Context, planID, locationID string, deps EnrollmentDeps) (capacity.Evaluation, error) {
	return evaluate(ctx, locationID, planID, deps)
}

func evaluate(ctx context.Context, locationID, planID string, deps EnrollmentDeps) (capacity.Evaluation, error) {
	limit, err := deps.Limits.GetLimit(ctx, locationID, planID)
	if err != nil {
		return capacity.Evaluation{}, fmt.Errorf("load capacity limit: %w", err)
	}
	if limit == nil {
		return capacity.Evaluate(nil, 0), nil
	}
	count, err := deps.Limits.CountActiveMembers(ctx, locationID, planID)
	if err != nil {
		return capacity.Evaluation{}, fmt.Errorf("count active members: %w", err)
	}
	return capacity.Evaluate(limit, count), nil
}

// CheckEnrollmentInput carries input for the CheckEnrollment orchestrator.
type CheckEnrollmentInput struct {
	LocationID string
	PlanID     string // optional
}

// CheckEnrollmentResult carries both verdicts and any advisory warnings.
type CheckEnrollmentResult struct {
	Location capacity.Evaluation
	Plan     *capacity.Evaluation
	Allowed  bool
	Warnings []string
}

// ExecuteCheckEnrollment decides whether a new membership may be sold.
// PRE: LocationID is non-empty
// POST: Allowed only when the location verdict and the plan verdict both pass;
// a blocked result is returned together with ErrEnrollmentBlocked
func ExecuteCheckEnrollment(ctx context.Context, input CheckEnrollmentInput, deps EnrollmentDeps) (CheckEnrollmentResult, error) {
	loc, err := ExecuteEvaluateLocation(ctx, input.LocationID, deps)
	if err != nil {
		return CheckEnrollmentResult{}, err
	}
	result := CheckEnrollmentResult{Location: loc, Allowed: !loc.Blocks()}
	if loc.Warns() {
		result.Warnings = append(result.Warnings, "location "+loc.Status)
	}

	if input.PlanID != "" {
		plan, err := ExecuteEvaluatePlanAtLocation(ctx, input.PlanID, input.LocationID, deps)
		if err != nil {
			return CheckEnrollmentResult{}, err
		}
		result.Plan = &plan
		if plan.Blocks() {
			result.Allowed = false
		}
		if plan.Warns() {
			result.Warnings = append(result.Warnings, "plan "+plan.Status)
		}
	}

	if !result.Allowed {
		slog.Info("enrollment_blocked", "location_id", input.LocationID, "plan_id", input.PlanID)
		return result, capacity.ErrEnrollmentBlocked
	}
	return result, nil
}
