package audit

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// UnknownOrigin is recorded when no origin address can be determined.
const UnknownOrigin = "Unknown"

type originKey struct{}

// WithOrigin attaches the caller's network address to ctx.
func WithOrigin(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, originKey{}, addr)
}

// OriginFrom returns the address attached by WithOrigin.
func OriginFrom(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(originKey{}).(string)
	return addr, ok && addr != ""
}

// OriginResolver finds an origin address for events raised outside an HTTP
// request, such as seeding or background jobs. Those originate on this host,
// so the resolver reports the host's own address. Resolve never fails; it
// returns UnknownOrigin instead.
type OriginResolver interface {
	Resolve(ctx context.Context) string
}

// LookupResolver asks an external "what is my address" service, such as
// https://api.ipify.org?format=json. Answers are cached for ttl, failures for
// failTTL so an unreachable service stalls the audit writer at most once per
// failTTL.
type LookupResolver struct {
	url     string
	client  *http.Client
	timeout time.Duration
	ttl     time.Duration
	failTTL time.Duration

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
	now      func() time.Time
}

// NewLookupResolver creates a resolver. An empty url always resolves to UnknownOrigin.
func NewLookupResolver(url string, timeout time.Duration) *LookupResolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LookupResolver{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		ttl:     10 * time.Minute,
		failTTL: time.Minute,
		now:     time.Now,
	}
}

func (r *LookupResolver) Resolve(ctx context.Context) string {
	if r == nil || r.url == "" {
		return UnknownOrigin
	}

	r.mu.Lock()
	if r.cached != "" {
		ttl := r.ttl
		if r.cached == UnknownOrigin {
			ttl = r.failTTL
		}
		if r.now().Sub(r.cachedAt) < ttl {
			addr := r.cached
			r.mu.Unlock()
			return addr
		}
	}
	r.mu.Unlock()

	addr := r.lookup(ctx)
	r.mu.Lock()
	r.cached, r.cachedAt = addr, r.now()
	r.mu.Unlock()
	return addr
}

func (r *LookupResolver) lookup(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return UnknownOrigin
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return UnknownOrigin
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UnknownOrigin
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return UnknownOrigin
	}
	return parseAddress(body)
}

// parseAddress accepts either {"ip": "..."} or a bare address.
func parseAddress(body []byte) string {
	var payload struct {
		IP string `json:"ip"`
	}
	candidate := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.IP != "" {
		candidate = strings.TrimSpace(payload.IP)
	}
	if net.ParseIP(candidate) == nil {
		return UnknownOrigin
	}
	return candidate
}
