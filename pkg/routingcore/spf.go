package routingcore

import (
	"context"
	"net/netip"

	"github.com/datawire/dlib/dlog"
)

// spfEngine is C5: the Dijkstra shortest-path-first engine that turns a
// TopologyGraph/NeighborDatabase snapshot into routing-entry updates for
// one domain (spec.md §4.5). Its workspace (C4) is left empty by relax at
// the end of every run, and prepare() resets every target's Dijkstra
// scratch state at the start of the next.
type spfEngine struct {
	topo  TopologyGraph
	neigh NeighborDatabase
	table *routingEntryTable
	chain *filterChain
	doms  *domainParameterStore
	ws    *dijkstraWorkspace
	kq    *kernelQueue

	isLocal LocalOriginatorChecker
	// localIPv4, if valid, is the address written into route_new.src_ip
	// when a domain's UseSrcIPInRoute is set and the destination is v4.
	localIPv4 netip.Addr

	nodeByTarget map[*TCTarget]*TCNode
}

func newSPFEngine(topo TopologyGraph, neigh NeighborDatabase, table *routingEntryTable, chain *filterChain, doms *domainParameterStore, kq *kernelQueue, isLocal LocalOriginatorChecker) *spfEngine {
	return &spfEngine{
		topo:    topo,
		neigh:   neigh,
		table:   table,
		chain:   chain,
		doms:    doms,
		ws:      newDijkstraWorkspace(),
		kq:      kq,
		isLocal: isLocal,
	}
}

// run performs one full SPF pass for domain d: prepare (including the
// one-hop seed), the graph relaxation, the post-relax single-hop pass, and
// reconciliation against C2 (spec.md §4.5).
func (e *spfEngine) run(ctx context.Context, d DomainIndex) {
	e.prepare(d)
	e.relax(ctx, d)
	e.singleHopPass(d)
	e.reconcile(ctx, d)
}

// prepare clears every C2 entry's state_new, resets every TCTarget's
// Dijkstra scratch state, and seeds the workspace directly with every
// symmetric one-hop neighbor's matching TC node (spec.md §4.5 "prepare").
// The local node itself is never queued: relax() never walks its edges, so
// a seeded neighbor is always the true Dijkstra root, exactly as spec.md's
// prepare/relax split requires.
func (e *spfEngine) prepare(d DomainIndex) {
	for _, entry := range e.table.iter(d) {
		entry.StateNew = false
	}

	nodes := e.topo.Nodes()
	e.nodeByTarget = make(map[*TCTarget]*TCNode, len(nodes))
	for _, n := range nodes {
		n.Target.Dijkstra = DijkstraNode{PathCost: InfinitePath, heapIndex: -1}
		n.Target.Dijkstra.Local = e.isLocal(n.Originator)
		e.nodeByTarget[n.Target] = n
	}
	for _, ep := range e.topo.Endpoints() {
		ep.Target.Dijkstra = DijkstraNode{PathCost: InfinitePath, heapIndex: -1}
	}

	for _, n := range e.neigh.Neighbors() {
		if n.Symmetric <= 0 {
			continue
		}
		node, ok := e.topo.NodeByOriginator(n.Originator)
		if !ok {
			continue
		}
		t := node.Target
		if t.Dijkstra.Local {
			continue
		}
		dm := n.Metric[d]
		if dm.In > MetricMax || dm.Out > MetricMax {
			continue
		}
		t.Dijkstra.PathCost = dm.Out
		t.Dijkstra.FirstHop = n
		t.Dijkstra.Distance = 0
		t.Dijkstra.SingleHop = true
		e.ws.insert(t)
	}
}

// relax drains the workspace, the standard Dijkstra loop over the topology
// graph's edges and attachments (spec.md §4.5 "relax-step"). Every popped
// target is committed to C2 immediately through updateRoutingEntry, not
// deferred to a later pass — that's what lets the tie-break there see
// each candidate in the order Dijkstra actually discovered it.
func (e *spfEngine) relax(ctx context.Context, d DomainIndex) {
	for !e.ws.empty() {
		t := e.ws.popMin()
		t.Dijkstra.Done = true
		dlog.Tracef(ctx, "Dijkstra: pop %s/%d, cost=%d", t.Prefix, d, t.Dijkstra.PathCost)

		e.updateRoutingEntry(d, t.Prefix, t.Dijkstra.FirstHop, t.Dijkstra.Distance, t.Dijkstra.PathCost, t.Dijkstra.SingleHop)

		node, ok := e.nodeByTarget[t]
		if !ok {
			continue // an endpoint has no outgoing edges
		}
		for _, edge := range node.Edges {
			if edge.Virtual {
				continue
			}
			cost := edge.Cost[d]
			if cost > MetricMax {
				continue
			}
			e.relaxStep(edge.Dst.Target, t.Dijkstra.PathCost+cost, t.Dijkstra.FirstHop, 0, false)
		}
		for _, att := range node.Attached {
			cost := att.Cost[d]
			if cost > MetricMax {
				continue
			}
			e.relaxStep(att.Dst.Target, t.Dijkstra.PathCost+cost, t.Dijkstra.FirstHop, att.Distance[d], false)
		}
	}
}

// relaxStep is the inner relaxation test: if the candidate path to dst
// beats what's known so far, dst's Dijkstra fields are updated and it is
// (re)inserted into the workspace (spec.md §4.5 "relax"). A target already
// popped (done) or flagged local never re-enters the workspace — the local
// node is never a routable destination.
func (e *spfEngine) relaxStep(dst *TCTarget, cost uint32, firstHop *Neighbor, distance uint8, singleHop bool) {
	if cost > MetricMax {
		return
	}
	if dst.Dijkstra.Done || dst.Dijkstra.Local {
		return
	}
	if cost >= dst.Dijkstra.PathCost {
		return
	}
	dst.Dijkstra.PathCost = cost
	dst.Dijkstra.FirstHop = firstHop
	dst.Dijkstra.Distance = distance
	dst.Dijkstra.SingleHop = singleHop
	if dst.Dijkstra.inQueue {
		e.ws.remove(dst)
	}
	e.ws.insert(dst)
}

// singleHopPass runs after relax, the second data source spec.md §4.5
// describes as "single-hop-pass": unlike relax, which only ever sees
// originators that the topology graph gives a TC node, this walks NHDP's
// neighbor records directly, so every routable address a symmetric
// neighbor owns gets a route (single-hop), and so does every routable,
// non-lost 2-hop address reachable through one of its links (multi-hop,
// cost = neighbor's out-metric + the 2-hop link's out-metric).
func (e *spfEngine) singleHopPass(d DomainIndex) {
	for _, n := range e.neigh.Neighbors() {
		if n.Symmetric <= 0 {
			continue
		}
		dm := n.Metric[d]
		if dm.Out >= InfiniteMetric {
			continue
		}
		for _, addr := range n.Addresses {
			if !e.neigh.Routable(addr) {
				continue
			}
			e.updateRoutingEntry(d, PrefixFromAddr(addr), n, 0, dm.Out, true)
		}
		for _, link := range n.Links {
			for _, th := range link.TwoHops {
				if th.Lost || !e.neigh.Routable(th.Addr) {
					continue
				}
				e.updateRoutingEntry(d, PrefixFromAddr(th.Addr), n, 0, dm.Out+th.Metric[d], false)
			}
		}
	}
}

// updateRoutingEntry is spec.md §4.5's update_routing_entry: the single
// place that writes a Dijkstra or single-hop-pass result into C2.
//
// Its tie-break generalizes the spec's literal "if state_current &&
// entry.cost < pathcost, do not overwrite" to also cover entry.StateNew:
// the two candidates the rule is meant to arbitrate (a node's own prefix
// and a different node's attached-network announcement of that same
// prefix) are both discovered within the *same* SPF round, and Dijkstra
// pops targets in non-decreasing cost order, so the cheaper one always
// calls in first and marks state_new before the pricier one ever arrives.
// Guarding only on state_current would let that second call win whenever
// the prefix had never been installed before — exactly the bug this
// exists to close.
func (e *spfEngine) updateRoutingEntry(d DomainIndex, dst Prefix, firstHop *Neighbor, distance uint8, pathCost uint32, singleHop bool) {
	entry := e.table.upsert(d, dst)
	if (entry.StateCurrent || entry.StateNew) && entry.Cost < pathCost {
		return
	}
	if firstHop == nil {
		return
	}
	dm := firstHop.Metric[d]
	if dm.BestLink == nil {
		return
	}

	entry.Cost = pathCost
	entry.RouteNew.IfIndex = dm.BestLinkIfIndex
	entry.RouteNew.Metric = distance
	entry.StateNew = true
	if singleHop && dm.BestLink.IfAddr == dst.Addr() {
		entry.RouteNew.Gateway = netip.Addr{}
	} else {
		entry.RouteNew.Gateway = dm.BestLink.IfAddr
	}
}

// reconcile is the final step of C5: it stamps every entry's kernel route
// identity from C1 (overriding the per-target distance with the domain's
// fixed kernel metric), applies the filter chain, and enqueues whatever
// needs a kernel-visible change onto C6 (spec.md §4.5 "reconcile", §8 P5).
// It reads C2 directly rather than the Dijkstra result set, so a prefix
// singleHopPass touched but relax never saw (or vice versa) is reconciled
// exactly the same way.
func (e *spfEngine) reconcile(ctx context.Context, d DomainIndex) {
	params := e.doms.get(d)
	for _, entry := range e.table.iter(d) {
		entry.RouteNew.Table = params.Table
		entry.RouteNew.Protocol = params.Protocol
		entry.RouteNew.Metric = params.Distance
		entry.RouteNew.SrcIP = netip.Addr{}
		if params.UseSrcIPInRoute && entry.Destination.Family() == FamilyV4 && e.localIPv4.IsValid() {
			entry.RouteNew.SrcIP = e.localIPv4
		}

		if entry.StateNew && !e.chain.accept(d, entry.RouteNew) {
			entry.StateNew = false
		}

		if entry.StateNew && entry.StateCurrent && entry.RouteNew.Equal(entry.RouteCurrent) {
			continue
		}
		dlog.Debugf(ctx, "Route %s/%d scheduled for reconciliation, cost=%d", entry.Destination, d, entry.Cost)
		e.kq.enqueue(entry)
	}
}
