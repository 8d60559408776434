package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

const identityContextKey = "identity"

// GzipRequestMiddleware inflates gzip-encoded request bodies. Invalid gzip
// payloads are rejected with 400.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !acceptsGzip(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			gr, err := gzip.NewReader(req.Body)
			if err != nil {
				_ = req.Body.Close()
				return fail(c, http.StatusBadRequest, "invalid gzip body")
			}

			req.Body = &inflatedBody{Reader: gr, raw: req.Body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

func acceptsGzip(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type inflatedBody struct {
	*gzip.Reader
	raw io.Closer
}

func (b *inflatedBody) Close() error {
	err := b.Reader.Close()
	if cerr := b.raw.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the verified Identity on the context.
func RequireIdentity(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := auth.IdentityFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return fail(c, http.StatusUnauthorized, err.Error())
			}
			c.Set(identityContextKey, id)
			return next(c)
		}
	}
}

// RequireRole must run after RequireIdentity. Callers without a user record
// or with an insufficient role get 403.
func RequireRole(users UserStore, required domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := identityFrom(c)
			if !ok {
				return fail(c, http.StatusUnauthorized, errMissingAuthorization.Error())
			}
			role, err := users.RoleOf(c.Request().Context(), id.Subject)
			if errors.Is(err, domain.ErrNotFound) {
				return fail(c, http.StatusForbidden, domain.ErrForbidden.Error())
			}
			if err != nil {
				c.Logger().Errorf("role lookup failed: %v", err)
				return fail(c, http.StatusInternalServerError, "internal error")
			}
			if !role.Allows(required) {
				return fail(c, http.StatusForbidden, domain.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityContextKey).(Identity)
	return id, ok && id.Subject != ""
}
