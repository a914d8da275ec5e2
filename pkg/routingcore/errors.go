package routingcore

import "errors"

// ErrInterrupted is the sentinel a RouteResultFunc receives when its
// operation was cancelled via OSRouting.Interrupt (spec.md §6, error==-1).
// It must never be logged or retried — the interrupter owns any follow-up
// (spec.md §7, error kind 5).
var ErrInterrupted = errors.New("routingcore: operation interrupted")
