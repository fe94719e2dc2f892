// Package guard decides, per page path and tab, whether the calling principal may
// view a page, and keeps the tab's session record in step with that decision.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/metrics"
	"educonnect/internal/model"
	"educonnect/internal/rbac"
	"educonnect/internal/session"
)

// ErrTransient is returned when the profile could not be fetched for a
// retry-safe reason. The principal stays signed in.
var ErrTransient = errors.New("verification temporarily unavailable")

const (
	alertSignIn         = "Please sign in to continue."
	alertMissingProfile = "User data not found. Please contact administrator."
	alertInactive       = "Your account is inactive. Please contact administrator."
)

// ProfileSource reads principal profiles. It must never answer from a cache.
type ProfileSource interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SignOuter ends every session of a principal.
type SignOuter interface {
	ForceSignOut(ctx context.Context, principalID string) error
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Email string
}

// Request is one verification trigger: a tab loading or re-checking a page.
type Request struct {
	Tab       string
	Principal *Principal
	Path      string
	// Gate marks a pass that fronts a single API call. Gate passes are ordered
	// per tab and page and never supersede navigation. They only touch the
	// tab's session record when they sign the principal out.
	Gate bool
}

func (r Request) key() string {
	id := ""
	if r.Principal != nil {
		id = r.Principal.ID
	}
	kind := "nav"
	if r.Gate {
		kind = "gate"
	}
	return kind + "|" + r.Tab + "|" + id + "|" + r.Path
}

// slot is the key verification passes are ordered under.
func (r Request) slot() string {
	if r.Gate {
		return r.Tab + "#" + r.Path
	}
	return r.Tab
}

// Outcome is the result of a verification pass.
type Outcome struct {
	State       State             `json:"state"`
	Allowed     bool              `json:"allowed"`
	Category    string            `json:"category"`
	Redirect    string            `json:"redirect,omitempty"`
	SignedOut   bool              `json:"signed_out"`
	Alert       string            `json:"alert,omitempty"`
	Session     *session.Record   `json:"session,omitempty"`
	Affordances *rbac.Affordances `json:"affordances,omitempty"`
	// Superseded is set when a newer pass on the same tab started first; the
	// pass had no side effects and its verdict should be ignored.
	Superseded bool `json:"superseded,omitempty"`
	// Shared is set when the caller joined a pass already in flight.
	Shared bool `json:"-"`
}

// Config tunes the guard.
type Config struct {
	// VerifyTimeout bounds a single profile fetch.
	VerifyTimeout time.Duration
	// IdleTTL is how long a quiet tab's state is kept.
	IdleTTL time.Duration
}

// Guard is the access guard. It is safe for concurrent use.
type Guard struct {
	profiles ProfileSource
	signOut  SignOuter
	sessions session.Store
	pages    *rbac.Pages
	log      *zap.Logger
	cfg      Config

	group singleflight.Group

	mu        sync.Mutex
	tabs      map[string]*tabState
	lastPrune time.Time
	now       func() time.Time
}

// New creates a guard.
func New(profiles ProfileSource, signOut SignOuter, sessions session.Store, pages *rbac.Pages, log *zap.Logger, cfg Config) *Guard {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 5 * time.Second
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		profiles: profiles,
		signOut:  signOut,
		sessions: sessions,
		pages:    pages,
		log:      log,
		cfg:      cfg,
		tabs:     make(map[string]*tabState),
		now:      time.Now,
	}
}

// Pages exposes the page table the guard classifies with.
func (g *Guard) Pages() *rbac.Pages { return g.pages }

// Verify runs one verification pass. Concurrent calls with the same tab,
// principal and path share a single pass. The pass itself is detached from
// ctx so that a caller giving up does not abort side effects half way; ctx
// only bounds how long this caller waits.
func (g *Guard) Verify(ctx context.Context, req Request) (Outcome, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.group.DoChan(req.key(), func() (any, error) {
		return g.verify(detached, req)
	})

	select {
	case res := <-ch:
		out, _ := res.Val.(Outcome)
		out.Shared = res.Shared
		return out, res.Err
	case <-ctx.Done():
		return Outcome{State: g.State(req.slot())}, ctx.Err()
	}
}

func (g *Guard) verify(ctx context.Context, req Request) (Outcome, error) {
	gen := g.begin(req.slot())
	cat := g.pages.Classify(req.Path)
	base := Outcome{Category: cat.String()}

	if req.Principal == nil || req.Principal.ID == "" {
		return g.anonymous(ctx, req, gen, cat, base)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.cfg.VerifyTimeout)
	user, err := g.profiles.FindByID(fetchCtx, req.Principal.ID)
	cancel()

	log := g.log.With(zap.String("tab", req.Tab), zap.String("principal", req.Principal.ID), zap.String("path", req.Path))

	switch {
	case err == nil && user == nil:
		err = apperrors.ErrNotFound
		fallthrough
	case errors.Is(err, apperrors.ErrNotFound):
		log.Warn("profile missing, signing out")
		return g.terminate(ctx, req, gen, cat, base, alertMissingProfile)

	case err != nil && IsTransient(err):
		metrics.GuardTransientFailures.Inc()
		log.Warn("profile fetch failed transiently", zap.Error(err))
		if !g.settle(req.slot(), gen, Error) {
			return g.superseded(req.slot(), base), nil
		}
		g.count(cat, "", "error")
		base.State = Error
		return base, fmt.Errorf("%w: %v", ErrTransient, err)

	case err != nil:
		log.Error("profile fetch failed, signing out", zap.Error(err))
		return g.terminate(ctx, req, gen, cat, base, alertMissingProfile)
	}

	if !user.Active() {
		log.Warn("inactive account, signing out")
		return g.terminate(ctx, req, gen, cat, base, alertInactive)
	}

	role := g.resolveRole(log, user.Role)
	decision := rbac.Decide(role, cat)
	rec := session.Record{
		PrincipalID: user.ID,
		Email:       user.Email,
		Role:        role,
		DisplayName: session.DisplayName(user.FirstName, user.LastName, user.Username, user.Email, role),
		Username:    user.Username,
	}
	if role == rbac.ClientUser {
		rec.StudentID = user.StudentID
	}

	if decision.SignOut {
		log.Info("access denied, signing out", zap.String("role", role.String()), zap.String("category", cat.String()))
		out, err := g.terminate(ctx, req, gen, cat, base, decision.Alert)
		if !out.Superseded {
			out.Redirect = g.pages.Resolve(decision.Redirect)
		}
		return out, err
	}

	// Allowed and redirect-only verdicts keep the principal signed in, so the
	// session record is published either way.
	if !g.owns(req.slot(), gen) {
		return g.superseded(req.slot(), base), nil
	}
	if !req.Gate {
		if err := g.sessions.Put(ctx, req.Tab, rec); err != nil {
			log.Error("publish session", zap.Error(err))
		}
	}

	aff := rbac.AffordancesFor(role)
	base.Session = &rec
	base.Affordances = &aff

	if decision.Allow {
		if !g.settle(req.slot(), gen, Authorized) {
			return g.superseded(req.slot(), base), nil
		}
		g.count(cat, role.String(), "allow")
		base.State = Authorized
		base.Allowed = true
		return base, nil
	}

	log.Info("access denied, redirecting", zap.String("role", role.String()), zap.String("category", cat.String()))
	if !g.settle(req.slot(), gen, Denied) {
		return g.superseded(req.slot(), base), nil
	}
	g.count(cat, role.String(), "redirect")
	base.State = Denied
	base.Redirect = g.pages.Resolve(decision.Redirect)
	base.Alert = decision.Alert
	return base, nil
}

// anonymous handles a request without a principal: public pages pass, anything
// else is sent to the area's login page. Nobody is signed out.
func (g *Guard) anonymous(ctx context.Context, req Request, gen uint64, cat rbac.Category, base Outcome) (Outcome, error) {
	if !g.owns(req.slot(), gen) {
		return g.superseded(req.slot(), base), nil
	}
	g.clearSession(ctx, req)

	if cat == rbac.CategoryPublic {
		if !g.settle(req.slot(), gen, Authorized) {
			return g.superseded(req.slot(), base), nil
		}
		g.count(cat, "anonymous", "allow")
		base.State = Authorized
		base.Allowed = true
		return base, nil
	}

	if !g.settle(req.slot(), gen, Denied) {
		return g.superseded(req.slot(), base), nil
	}
	g.count(cat, "anonymous", "redirect")
	base.State = Denied
	base.Redirect = g.loginFor(cat)
	base.Alert = alertSignIn
	return base, nil
}

// terminate signs the principal out, clears the tab session and denies.
func (g *Guard) terminate(ctx context.Context, req Request, gen uint64, cat rbac.Category, base Outcome, alert string) (Outcome, error) {
	if !g.owns(req.slot(), gen) {
		return g.superseded(req.slot(), base), nil
	}
	if err := g.signOut.ForceSignOut(ctx, req.Principal.ID); err != nil {
		g.log.Error("force sign-out", zap.String("principal", req.Principal.ID), zap.Error(err))
	}

	if !g.owns(req.slot(), gen) {
		return g.superseded(req.slot(), base), nil
	}
	if err := g.sessions.Clear(ctx, req.Tab); err != nil {
		g.log.Error("clear session", zap.String("tab", req.Tab), zap.Error(err))
	}

	if !g.settle(req.slot(), gen, Denied) {
		return g.superseded(req.slot(), base), nil
	}
	g.count(cat, "", "signout")
	base.State = Denied
	base.SignedOut = true
	base.Redirect = g.loginFor(cat)
	base.Alert = alert
	return base, nil
}

func (g *Guard) clearSession(ctx context.Context, req Request) {
	if req.Gate {
		return
	}
	if err := g.sessions.Clear(ctx, req.Tab); err != nil {
		g.log.Error("clear session", zap.String("tab", req.Tab), zap.Error(err))
	}
}

func (g *Guard) superseded(tab string, base Outcome) Outcome {
	metrics.GuardDecisions.WithLabelValues(base.Category, "", "superseded").Inc()
	return Outcome{State: g.State(tab), Category: base.Category, Superseded: true}
}

// loginFor resolves the login page of an area, falling back to the anonymous
// entry point for pages outside any area.
func (g *Guard) loginFor(cat rbac.Category) string {
	return g.pages.Resolve(rbac.LoginFor(cat))
}

func (g *Guard) resolveRole(log *zap.Logger, label string) rbac.Role {
	role, ok, err := rbac.ParseRole(label)
	switch {
	case err != nil:
		log.Warn("unknown role on profile, treating as client user", zap.String("role", label))
		return rbac.ClientUser
	case !ok:
		log.Info("profile has no role, treating as client user")
	}
	return role
}

func (g *Guard) count(cat rbac.Category, role, result string) {
	metrics.GuardDecisions.WithLabelValues(cat.String(), role, result).Inc()
}
