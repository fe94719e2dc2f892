package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"educonnect/internal/auth"
	"educonnect/internal/errors"
	"educonnect/internal/guard"
	"educonnect/internal/session"
)

// HeaderTabID carries the browser tab a request belongs to.
const HeaderTabID = "X-Tab-ID"

const sessionContextKey = "session"

// GuardHandler exposes page verification and the tab session.
type GuardHandler struct {
	guard    *guard.Guard
	broker   *auth.Broker
	sessions session.Store
	log      *zap.Logger
}

// NewGuardHandler creates a new guard handler.
func NewGuardHandler(g *guard.Guard, broker *auth.Broker, sessions session.Store, log *zap.Logger) *GuardHandler {
	return &GuardHandler{guard: g, broker: broker, sessions: sessions, log: log}
}

// VerifyRequest names the page a tab is about to show.
type VerifyRequest struct {
	Path string `json:"path" validate:"required"`
}

// DeniedResponse is returned when a protected route refuses the caller.
type DeniedResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Redirect  string `json:"redirect,omitempty"`
	SignedOut bool   `json:"signed_out"`
}

// Verify godoc
// @Summary Verify access to a page
// @Description Runs one verification pass for the calling tab and returns the verdict.
// @Tags guard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tab-ID header string false "Tab id"
// @Param request body VerifyRequest true "Page path"
// @Success 200 {object} guard.Outcome
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /guard/verify [post]
func (h *GuardHandler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.guard.Verify(c.Request().Context(), h.request(c, req.Path))
	if err != nil {
		return h.verifyError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// Watch godoc
// @Summary Stream verdicts for a page
// @Description Server-sent events: one verdict now and one after every change to the caller's sign-in state or profile.
// @Tags guard
// @Produce text/event-stream
// @Param path query string true "Page path"
// @Param tab query string false "Tab id"
// @Param access_token query string false "Access token"
// @Success 200 {object} guard.Outcome
// @Failure 400 {object} errors.ErrorResponse
// @Router /guard/watch [get]
func (h *GuardHandler) Watch(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return badRequest("path is required", "VALIDATION_ERROR")
	}
	req := h.request(c, path)
	ctx := c.Request().Context()

	changes, unsubscribe := h.broker.Subscribe(ctx)
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	err := h.guard.Watch(ctx, req, changes, func(out guard.Outcome, err error) {
		if out.Superseded {
			return
		}
		name, payload := "verdict", any(out)
		if err != nil {
			he := h.verifyError(err)
			name, payload = "error", he.Message
		}
		data, merr := json.Marshal(payload)
		if merr != nil {
			h.log.Error("encode verdict", zap.Error(merr))
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
		w.Flush()
	})
	if err != nil && !stderrors.Is(err, context.Canceled) {
		h.log.Debug("watch ended", zap.String("tab", req.Tab), zap.Error(err))
	}
	return nil
}

// Session godoc
// @Summary Current tab session
// @Description Returns the caller's own session record for the tab.
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Param X-Tab-ID header string false "Tab id"
// @Success 200 {object} session.Record
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /session [get]
func (h *GuardHandler) Session(c echo.Context) error {
	claims, err := principal(c)
	if err != nil {
		return err
	}
	rec, err := h.sessions.Get(c.Request().Context(), tabID(c, claims))
	if err != nil {
		return respondError(err)
	}
	if rec == nil || rec.PrincipalID != claims.PrincipalID {
		return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
			Error: "no active session",
			Code:  "NO_SESSION",
		})
	}
	return c.JSON(http.StatusOK, rec)
}

// Protect runs the access guard for page in front of a route group. Allowed
// requests carry the published session record; see SessionFrom.
func (h *GuardHandler) Protect(page string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := h.request(c, page)
			req.Gate = true
			out, err := h.guard.Verify(c.Request().Context(), req)
			if err != nil {
				return h.verifyError(err)
			}
			if out.Superseded {
				return echo.NewHTTPError(http.StatusConflict, errors.ErrorResponse{
					Error: "verification superseded by a newer request",
					Code:  "VERIFICATION_SUPERSEDED",
				})
			}
			if !out.Allowed {
				msg := out.Alert
				if msg == "" {
					msg = "access denied"
				}
				return echo.NewHTTPError(http.StatusForbidden, DeniedResponse{
					Error:     msg,
					Code:      "ACCESS_DENIED",
					Redirect:  out.Redirect,
					SignedOut: out.SignedOut,
				})
			}
			if out.Session != nil {
				c.Set(sessionContextKey, out.Session)
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session record Protect attached to the request.
func SessionFrom(c echo.Context) (*session.Record, bool) {
	rec, ok := c.Get(sessionContextKey).(*session.Record)
	return rec, ok && rec != nil
}

func (h *GuardHandler) request(c echo.Context, path string) guard.Request {
	claims, _ := auth.CurrentPrincipal(c)
	req := guard.Request{Tab: tabID(c, claims), Path: path}
	if claims != nil {
		req.Principal = &guard.Principal{ID: claims.PrincipalID, Email: claims.Email}
	}
	return req
}

func (h *GuardHandler) verifyError(err error) *echo.HTTPError {
	if stderrors.Is(err, guard.ErrTransient) || stderrors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errors.ErrorResponse{
			Error: guard.ErrTransient.Error(),
			Code:  "VERIFICATION_UNAVAILABLE",
		}).SetInternal(err)
	}
	return respondError(err)
}

// tabID scopes the client's tab id to the caller, so one principal can never
// address another's tab.
func tabID(c echo.Context, claims *auth.Claims) string {
	owner := "anonymous/" + c.RealIP()
	if claims != nil {
		owner = claims.PrincipalID
	}
	tab := c.Request().Header.Get(HeaderTabID)
	if tab == "" {
		tab = c.QueryParam("tab")
	}
	if tab == "" {
		return owner
	}
	return owner + "/" + tab
}
