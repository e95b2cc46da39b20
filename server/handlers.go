package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

type CapabilitiesResponse struct {
	UserID               uint64 `json:"userId"`
	PrivilegedAutomation bool   `json:"privilegedAutomation"`
	SystemAgent          bool   `json:"systemAgent"`
}

type BlockIPRequest struct {
	Address    string `json:"address"`
	TTLSeconds int    `json:"ttlSeconds,omitempty"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("parley-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "parley", Message: errorMessage})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "parley"})
}

// HandleCapabilities reports the access-control facts downstream
// authorization checks would use for the current caller.
func (srv *Server) HandleCapabilities(c echo.Context) error {
	ctx := c.Request().Context()
	p := getPrincipal(ctx)
	if p == nil {
		return echo.ErrUnauthorized
	}

	out := CapabilitiesResponse{UserID: p.ID}

	user, err := srv.users.FindUserByID(ctx, p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
	}
	if user != nil {
		out.PrivilegedAutomation = srv.allowlist.IsAllowed(ctx, user.Email)
	}

	isSys, err := srv.sysAccounts.IsSystemAgent(ctx, p)
	if err != nil {
		// cannot determine: deny rather than error, the response must
		// not be distinguishable from a plain non-system caller
		srv.logger.Warn("system agent check failed", "user", p.ID, "err", err)
		isSys = false
	}
	out.SystemAgent = isSys

	return c.JSON(200, out)
}

func (srv *Server) HandleAdminBlockIP(c echo.Context) error {
	var body BlockIPRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if body.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "must specify address")
	}
	srv.blocks.Block(c.Request().Context(), body.Address, time.Duration(body.TTLSeconds)*time.Second)
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "parley"})
}

func (srv *Server) HandleAdminResetCaches(c echo.Context) error {
	srv.allowlist.Reset()
	srv.sysAccounts.Reset()
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "parley"})
}

func (srv *Server) HandleAdminWarmAllowlist(c echo.Context) error {
	srv.allowlist.Warm(c.Request().Context())
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "parley"})
}
