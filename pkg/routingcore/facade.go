package routingcore

import (
	"context"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// This file is C8: the purely abstract interfaces the routing core depends
// on. Everything here is implemented by external collaborators — the
// topology-graph store, the neighbor-discovery database, the OS routing
// shim, and a timer service. The core never constructs these itself; see
// pkg/topograph and pkg/neighdb for reference (non-protocol) implementations
// used in tests and by cmd/olsrv2d's demo wiring.

// TCTargetKind distinguishes the two kinds of vertex the topology graph can
// hand Dijkstra: a node (an originator) or an attached endpoint.
type TCTargetKind uint8

const (
	TCTargetNode TCTargetKind = iota
	TCTargetEndpoint
)

// DijkstraNode is the transient per-target scratch data spec.md §3
// describes: valid only during one SPF invocation, re-initialized by
// prepare() before each. It lives embedded in the TCTarget it belongs to,
// so its lifetime is automatically tied to that TCTarget's (Design Note
// "Cyclic graph references").
type DijkstraNode struct {
	PathCost  uint32
	FirstHop  *Neighbor
	Distance  uint8
	SingleHop bool
	Local     bool
	Done      bool

	inQueue   bool // queue-membership bit (Design Note)
	heapIndex int  // workspace-owned, -1 when not inQueue
	seq       int  // workspace-owned insertion sequence, for stable tie-break
}

// TCTarget is a node or an attached endpoint in the topology graph.
type TCTarget struct {
	Kind     TCTargetKind
	Prefix   Prefix
	Dijkstra DijkstraNode
}

// TCEdge is a directed edge between two nodes in the topology graph.
type TCEdge struct {
	Dst     *TCNode
	Virtual bool
	Cost    [MaxDomains]uint32
}

// TCAttachment is a non-virtual edge from a node to an attached endpoint
// (an attached network or address) it advertises as reachable through
// itself.
type TCAttachment struct {
	Dst      *TCEndpoint
	Cost     [MaxDomains]uint32
	Distance [MaxDomains]uint8
}

// TCNode is a vertex of the topology graph representing another
// originator.
type TCNode struct {
	Target     *TCTarget
	Originator netip.Addr
	Edges      []*TCEdge
	Attached   []*TCAttachment
}

// TCEndpoint is a vertex of the topology graph representing an attached
// network or address, not itself an originator.
type TCEndpoint struct {
	Target *TCTarget
}

// TopologyGraph is the read-only view of the link-state topology the core
// walks during SPF. It is read-only for the duration of one SPF run; the
// collaborator contract requires external topology updates to arrive only
// through the scheduler, never concurrently with a running SPF (spec.md
// §5, "Shared resources").
type TopologyGraph interface {
	Nodes() []*TCNode
	Endpoints() []*TCEndpoint
	NodeByOriginator(addr netip.Addr) (*TCNode, bool)
}

// Link is one interface-level link to a Neighbor, carrying the 2-hop table
// reachable through it.
type Link struct {
	// IfAddr is the neighbor's address on this link — the value used as
	// route_new.gw when this link is the neighbor's best link.
	IfAddr  netip.Addr
	IfIndex int
	TwoHops []*TwoHop
}

// TwoHop is an address reachable one hop beyond a symmetric neighbor.
type TwoHop struct {
	Addr   netip.Addr
	Lost   bool
	Metric [MaxDomains]uint32 // per-domain out metric
}

// DomainMetric is a neighbor's per-domain link metric, plus the link
// currently selected as that neighbor's best path.
type DomainMetric struct {
	In, Out         uint32
	BestLink        *Link
	BestLinkIfIndex int
}

// Neighbor is one entry of the neighbor-discovery database.
type Neighbor struct {
	Symmetric  int // > 0 means a symmetric (bidirectional) link is established
	Originator netip.Addr
	Addresses  []netip.Addr
	Links      []*Link
	Metric     [MaxDomains]DomainMetric
}

// NeighborDatabase is the read-only view of the local neighborhood the
// core consults both to seed SPF and to run the single-hop pass.
type NeighborDatabase interface {
	Neighbors() []*Neighbor
	// Routable reports whether addr passes the routability ACL — the
	// single-hop pass only installs routes for addresses this predicate
	// accepts (spec.md §4.5).
	Routable(addr netip.Addr) bool
}

// RouteResultFunc is the kernel facade's completion callback. err==nil is
// success; errors.Is(err, ErrInterrupted) means the operation was
// cancelled by Interrupt; anything else (including unix.ESRCH, which the
// state machine treats as remove-success) is a kernel-reported failure.
type RouteResultFunc func(ctx context.Context, err error)

// OSRouting is the kernel routing shim (C8). Set either fails synchronously
// (returning a non-nil error; done is never called for that attempt) or
// accepts the operation and invokes done exactly once, synchronously or
// later, with the outcome (spec.md §6 and §5 "Suspension points").
type OSRouting interface {
	Set(ctx context.Context, op uuid.UUID, route KernelRoute, add bool, blocking bool, done RouteResultFunc) error
	// Interrupt cancels a pending operation identified by op. If it hasn't
	// already completed, its done callback is invoked with ErrInterrupted.
	// Interrupt on an unknown or already-finished op is a no-op.
	Interrupt(op uuid.UUID)
}

// Timer is an opaque, named one-shot timer handle. Its Fire field is set
// by the owner (trigger.go) before the timer is ever armed; TimerService
// implementations call it when the timer expires.
type Timer struct {
	name string
	Fire func(ctx context.Context)
}

func NewTimer(name string) *Timer { return &Timer{name: name} }

func (t *Timer) String() string { return t.name }

// TimerService is the scheduler's timer port (spec.md §6).
type TimerService interface {
	Set(timer *Timer, delay time.Duration)
	Stop(timer *Timer)
	IsActive(timer *Timer) bool
}

// LocalOriginatorChecker reports whether addr is one of the node's own
// originators (spec.md §4.5 "prepare", local flag).
type LocalOriginatorChecker func(addr netip.Addr) bool
