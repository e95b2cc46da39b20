package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/parley-social/parley/gate"

	"github.com/labstack/echo/v4"
)

// Authentication itself happens upstream: the auth gateway verifies the
// session and injects the resulting principal as headers. This daemon
// only parses them.
const (
	authIDHeader   = "X-Parley-Auth-Id"
	authTypeHeader = "X-Parley-Auth-Type"
)

type ctxPrincipal struct{}

func withPrincipal(ctx context.Context, p *gate.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal{}, p)
}

func getPrincipal(ctx context.Context) *gate.Principal {
	p, _ := ctx.Value(ctxPrincipal{}).(*gate.Principal)
	return p
}

func (srv *Server) principalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idstr := c.Request().Header.Get(authIDHeader)
		if idstr == "" {
			return next(c)
		}
		id, err := strconv.ParseUint(idstr, 10, 64)
		if err != nil {
			// a malformed header from the gateway is treated as
			// unauthenticated, never as some other account
			srv.logger.Warn("unparseable auth id header", "val", idstr)
			return next(c)
		}
		p := &gate.Principal{
			ID:   id,
			Type: gate.PrincipalType(c.Request().Header.Get(authTypeHeader)),
		}
		if p.Type == "" {
			p.Type = gate.PrincipalTypeHuman
		}
		c.SetRequest(c.Request().WithContext(withPrincipal(c.Request().Context(), p)))
		return next(c)
	}
}

func (srv *Server) checkAdminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authheader := c.Request().Header.Get("Authorization")
		pref := "Bearer "
		if !strings.HasPrefix(authheader, pref) {
			return echo.ErrForbidden
		}
		token := authheader[len(pref):]
		if srv.adminPassword == "" || token != srv.adminPassword {
			return echo.ErrForbidden
		}
		return next(c)
	}
}
