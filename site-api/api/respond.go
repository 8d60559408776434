package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Error: msg})
}

// failWith maps domain and storage errors onto HTTP responses.
func failWith(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, envelope{Success: false, Error: "validation failed", Details: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrUnknownKind):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidCategory), errors.Is(err, domain.ErrInvalidRole):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fail(c, http.StatusConflict, err.Error())
	}
	c.Logger().Error(err)
	return fail(c, http.StatusInternalServerError, "internal error")
}
