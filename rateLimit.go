package main

import (
	"errors"
	"net/netip"

	"golang.org/x/time/rate"

	"sharedcanvas/internal/config"
)

var (
	errTooManyClients = errors.New("too many clients from address")
	errRateLimited    = errors.New("rate limit exceeded")
)

type addrLimit struct {
	clients int
	limiter *rate.Limiter
}

// admission tracks connections and event budgets per remote address. It is
// owned by the server loop and does no locking.
type admission struct {
	maxPerAddr int
	every      rate.Limit
	burst      int
	addrs      map[netip.Addr]*addrLimit
}

func newAdmission(cfg config.LimitsConfig) *admission {
	return &admission{
		maxPerAddr: cfg.MaxConnsPerIP,
		every:      rate.Limit(cfg.EventsPerSecond),
		burst:      cfg.EventBurst,
		addrs:      make(map[netip.Addr]*addrLimit),
	}
}

// admit reserves a connection slot for addr.
func (a *admission) admit(addr netip.Addr) error {
	limit := a.addrs[addr]
	if limit == nil {
		limit = &addrLimit{limiter: rate.NewLimiter(a.every, a.burst)}
		a.addrs[addr] = limit
	}
	if a.maxPerAddr > 0 && limit.clients >= a.maxPerAddr {
		return errTooManyClients
	}
	limit.clients++
	return nil
}

func (a *admission) release(addr netip.Addr) {
	limit := a.addrs[addr]
	if limit == nil {
		return
	}
	limit.clients--
	if limit.clients <= 0 {
		delete(a.addrs, addr)
	}
}

// allow spends one event token from addr's shared bucket.
func (a *admission) allow(addr netip.Addr) bool {
	limit := a.addrs[addr]
	if limit == nil {
		return false
	}
	return limit.limiter.Allow()
}

func (a *admission) clients(addr netip.Addr) int {
	if limit := a.addrs[addr]; limit != nil {
		return limit.clients
	}
	return 0
}
