// Package osroute is a reference routingcore.OSRouting implementation that
// drives the `ip route` CLI, the same os/exec shell-out idiom the nat
// package's iptablesRouter uses for firewall rules: no netlink library,
// just careful argument construction and stderr sniffing for the one error
// the state machine treats specially (spec.md §6, §7).
package osroute

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/saces/oonf/pkg/routingcore"
)

// Router shells out to the `ip` command to add and remove routes. Every
// call to Set spawns its own child process; Interrupt cancels it if it is
// still running.
type Router struct {
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func New() *Router {
	return &Router{cancels: make(map[uuid.UUID]context.CancelFunc)}
}

func (r *Router) Set(ctx context.Context, op uuid.UUID, route routingcore.KernelRoute, add bool, blocking bool, done routingcore.RouteResultFunc) error {
	cctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancels[op] = cancel
	r.mu.Unlock()

	run := func() {
		err := r.run(cctx, route, add)
		r.mu.Lock()
		delete(r.cancels, op)
		r.mu.Unlock()
		done(ctx, err)
	}
	if blocking {
		run()
		return nil
	}
	go run()
	return nil
}

func (r *Router) Interrupt(op uuid.UUID) {
	r.mu.Lock()
	cancel := r.cancels[op]
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Router) run(ctx context.Context, route routingcore.KernelRoute, add bool) error {
	args := buildArgs(route, add)
	dlog.Debugf(ctx, "running ip %s", strings.Join(args, " "))
	out, err := exec.CommandContext(ctx, "ip", args...).CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.Canceled {
		return routingcore.ErrInterrupted
	}
	if strings.Contains(string(out), "No such process") {
		return unix.ESRCH
	}
	return errors.Wrapf(err, "ip %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
}

func buildArgs(route routingcore.KernelRoute, add bool) []string {
	verb := "add"
	if !add {
		verb = "del"
	}
	family := "-4"
	if route.Dst.Family() == routingcore.FamilyV6 {
		family = "-6"
	}
	args := []string{family, "route", verb, route.Dst.String()}
	if route.Gateway.IsValid() {
		args = append(args, "via", route.Gateway.String())
	}
	if route.IfIndex > 0 {
		args = append(args, "dev", fmt.Sprintf("if%d", route.IfIndex))
	}
	if route.SrcIP.IsValid() {
		args = append(args, "src", route.SrcIP.String())
	}
	if route.Table > 0 {
		args = append(args, "table", strconv.Itoa(route.Table))
	}
	if route.Protocol > 0 {
		args = append(args, "proto", strconv.Itoa(route.Protocol))
	}
	if route.Metric > 0 {
		args = append(args, "metric", strconv.Itoa(int(route.Metric)))
	}
	return args
}
