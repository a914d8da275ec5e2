package routingcore

import (
	"net/netip"
)

// Family distinguishes the two address families the core understands.
// A topology node or endpoint whose originator family is neither is a
// programming-contract violation on the part of the collaborator that
// presented it (spec.md §7, "fatal condition").
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV4 {
		return "v4"
	}
	return "v6"
}

// Prefix is a network address plus prefix length, used as the key of the
// routing entry table (C2). Equality is exact; ordering is lexicographic
// on (family, bytes, length), matching spec.md §3.
type Prefix struct {
	netip.Prefix
}

// PrefixFromAddr builds a host route (a /32 or /128) for addr.
func PrefixFromAddr(addr netip.Addr) Prefix {
	return Prefix{netip.PrefixFrom(addr.Unmap(), addr.BitLen())}
}

func (p Prefix) Family() Family {
	if p.Addr().Is4() {
		return FamilyV4
	}
	return FamilyV6
}

// Less implements the (family, bytes, length) ordering spec.md §3 requires
// of C2's key space. It is used only to give iter() a stable, deterministic
// order; the exact order has no protocol significance.
func (p Prefix) Less(o Prefix) bool {
	pf, of := p.Family(), o.Family()
	if pf != of {
		return pf < of
	}
	pb, ob := p.Addr().AsSlice(), o.Addr().AsSlice()
	for i := 0; i < len(pb) && i < len(ob); i++ {
		if pb[i] != ob[i] {
			return pb[i] < ob[i]
		}
	}
	return p.Bits() < o.Bits()
}

func (p Prefix) String() string {
	return p.Prefix.String()
}
