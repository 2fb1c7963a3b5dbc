package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/logging"
)

type errorBody struct {
	Errors []domain.FieldError `json:"errors"`
}

func single(typ, msg string) errorBody {
	return errorBody{Errors: []domain.FieldError{{Type: typ, Msg: msg, Path: "", Location: ""}}}
}

var statusTypes = map[int]string{
	http.StatusBadRequest:            "BadRequestError",
	http.StatusUnauthorized:          "UnauthorizedError",
	http.StatusForbidden:             "ForbiddenError",
	http.StatusNotFound:              "NotFoundError",
	http.StatusMethodNotAllowed:      "MethodNotAllowedError",
	http.StatusUnsupportedMediaType:  "UnsupportedMediaTypeError",
	http.StatusRequestEntityTooLarge: "PayloadTooLargeError",
	http.StatusServiceUnavailable:    "ServiceUnavailableError",
}

func typeFor(status int) string {
	if t, ok := statusTypes[status]; ok {
		return t
	}
	if status >= 500 {
		return "InternalServerError"
	}
	return strings.ReplaceAll(http.StatusText(status), " ", "") + "Error"
}

// render maps an error to its status and body. Internal details never reach
// the client on 5xx.
func render(err error) (int, errorBody) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorBody{Errors: ve.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= 500 {
			return he.Code, single("InternalServerError", "Internal Server Error")
		}
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, single(typeFor(he.Code), msg)
	}

	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, single(typeFor(http.StatusBadRequest), domain.ErrDuplicateEmail.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, single(typeFor(http.StatusBadRequest), domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, single(typeFor(http.StatusUnauthorized), domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized, single(typeFor(http.StatusUnauthorized), domain.ErrTokenRevoked.Error())
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, single(typeFor(http.StatusUnauthorized), domain.ErrTokenInvalid.Error())
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, single(typeFor(http.StatusForbidden), domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, single(typeFor(http.StatusNotFound), "Not Found")
	case errors.Is(err, domain.ErrSearchUnavailable):
		return http.StatusServiceUnavailable, single(typeFor(http.StatusServiceUnavailable), domain.ErrSearchUnavailable.Error())
	}
	return http.StatusInternalServerError, single("InternalServerError", "Internal Server Error")
}

// ErrorHandler is installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := render(err)
	if status >= 500 {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", status, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", err)
	}
}
