package routingcore

import "time"

// RFC7181 metric sentinels. A per-link metric of InfiniteMetric or higher
// means the link must be treated as unusable; MetricMax is the largest
// metric value Dijkstra is allowed to relax across.
const (
	InfiniteMetric uint32 = 0xffffff
	MetricMax      uint32 = 0xffff00

	// InfinitePath marks a cumulative path cost as "no path known".
	InfinitePath uint32 = 0xffffffff
)

// MaxDomains is the compile-time cap on the number of independent routing
// planes a RoutingCore can drive. Nominally 5, matching OONF's
// NHDP_MAXIMUM_DOMAINS.
const MaxDomains = 5

// DefaultRateLimit is the default width of the Dijkstra rate-limitation
// window (C7). A domain-parameter change always reschedules at
// ParameterChangeDelay regardless of this value.
const DefaultRateLimit = 1000 * time.Millisecond

// ParameterChangeDelay is the fixed delay (spec.md §4.1) between a
// domain-parameter teardown and the SPF run that repopulates the table
// with routes carrying the new (table, protocol, metric) identity.
const ParameterChangeDelay = 100 * time.Millisecond

// immediateDelay is the "next scheduler tick" delay trigger_update arms
// the rate-limit timer with when it was previously idle.
const immediateDelay = 1 * time.Millisecond
