package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"classbook/internal/domain/rejection"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a rejection code to its HTTP status.
func statusFor(code rejection.Code) int {
	switch code {
	case rejection.ClassNotFound, rejection.BookingNotFound, rejection.WaitlistEntryNotFound, rejection.LocationNotFound:
		return http.StatusNotFound
	case rejection.NoAccess, rejection.Forbidden:
		return http.StatusForbidden
	case rejection.InvalidCapacity, rejection.InvalidTimeRange, rejection.RescheduleInPast, rejection.InvalidAttendanceStatus:
		return http.StatusUnprocessableEntity
	case rejection.InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

// errorResponse converts err into a status and body. Unknown errors are logged
// and reported without detail.
func errorResponse(err error) (int, errorBody) {
	var r *rejection.Error
	if errors.As(err, &r) {
		return statusFor(r.Code), errorBody{Error: string(r.Code), Message: r.Message}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return http.StatusBadRequest, errorBody{Error: string(rejection.InvalidInput), Message: strings.Join(fields, "; ")}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := "HTTP_ERROR"
		switch he.Code {
		case http.StatusBadRequest:
			code = string(rejection.InvalidInput)
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusRequestEntityTooLarge:
			code = "BODY_TOO_LARGE"
		case http.StatusUnauthorized:
			code = "UNAUTHORIZED"
		case http.StatusConflict:
			code = "CONFLICT"
		case http.StatusServiceUnavailable:
			code = "UNAVAILABLE"
		}
		if he.Code >= http.StatusInternalServerError && he.Code != http.StatusServiceUnavailable {
			internalLog(err)
			return he.Code, errorBody{Error: "INTERNAL", Message: "internal server error"}
		}
		return he.Code, errorBody{Error: code, Message: fmt.Sprint(he.Message)}
	}

	internalLog(err)
	return http.StatusInternalServerError, errorBody{Error: "INTERNAL", Message: "internal server error"}
}

// handleError is the echo error handler.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorResponse(err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("error_response_failed", "error", err.Error())
	}
}

func internalLog(err error) {
	slog.Error("internal_error", "error", err.Error())
}

// invalidInput builds a 400 rejection for malformed parameters.
func invalidInput(msg string) error {
	return rejection.New(rejection.InvalidInput, msg)
}
