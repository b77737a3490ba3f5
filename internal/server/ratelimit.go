package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/sitefront/tenant-gateway/internal/codec"
	"github.com/sitefront/tenant-gateway/internal/domain"
)

const (
	// maxTrackedClients bounds the limiter table.
	maxTrackedClients = 10_000
	// idleClientTTL evicts limiters for clients that went quiet.
	idleClientTTL = 10 * time.Minute
)

// RateLimiter hands out a token bucket per client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	clients  *expirable.LRU[string, *rate.Limiter]
	onReject func()
	trusted  []netip.Prefix
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst for each client. onReject, if set, is called for every rejection.
func NewRateLimiter(rps float64, burst int, onReject func()) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		clients:  expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, idleClientTTL),
		onReject: onReject,
	}
}

// TrustProxies sets the peers whose X-Forwarded-For and X-Real-IP headers are
// honored. Entries are CIDR prefixes or bare addresses.
func (rl *RateLimiter) TrustProxies(cidrs []string) error {
	trusted, err := ParsePrefixes(cidrs)
	if err != nil {
		return err
	}
	rl.trusted = trusted
	return nil
}

// ParsePrefixes parses CIDR prefixes, treating a bare address as a single host.
func ParsePrefixes(cidrs []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if p, err := netip.ParsePrefix(c); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", c)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.clients.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(key, l)
	return l
}

// Middleware rejects requests over the client's budget with 429 and the JSON
// error envelope. Every response carries the x-ratelimit-* headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := rl.limiter(ClientIP(r, rl.trusted))
		now := time.Now()
		allowed := l.AllowN(now, 1)

		h := w.Header()
		h.Set("x-ratelimit-limit-requests", strconv.Itoa(rl.burst))
		h.Set("x-ratelimit-remaining-requests", strconv.Itoa(int(math.Max(0, math.Floor(l.TokensAt(now))))))

		if !allowed {
			if rl.onReject != nil {
				rl.onReject()
			}
			retry := time.Second
			if rl.limit > 0 {
				retry = time.Duration(float64(time.Second) / float64(rl.limit))
			}
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			AddLogField(r.Context(), "rate_limited", "true")
			codec.WriteError(w, domain.ErrRateLimit("Too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the originating client address. Forwarding headers are
// only read when the direct peer is a trusted proxy; X-Forwarded-For is then
// walked from the right and the first untrusted hop wins.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !isTrusted(remote, trusted) {
		return remote
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !isTrusted(hops[i], trusted) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
