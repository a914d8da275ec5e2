// Command olsrv2d is a small demonstration host for pkg/routingcore: it
// wires a synthetic topology and neighbor set to a RoutingCore, runs SPF to
// settle, and prints the resulting per-domain routing table. It is not a
// mesh routing daemon — NHDP and TC message parsing are out of scope
// (spec.md §1) — it exists to exercise the core the way a real daemon's
// outer layer would.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"text/tabwriter"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/saces/oonf/cmd/olsrv2d/internal/config"
	"github.com/saces/oonf/pkg/ostimer"
	"github.com/saces/oonf/pkg/routingcore"
)

const processName = "olsrv2d"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           processName,
		Short:         "demonstration host for the OLSRv2 routing core",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "settle a synthetic topology and print its routing table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), configPath)
		},
	})

	ctx := context.Background()
	ctx = dgroup.WithGoroutineName(ctx, "/"+processName)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(ctx context.Context, configPath string) error {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	ctx = makeBaseLogger(ctx, cfg.LogLevel)

	graph, neighbors, local := seedDemoTopology()

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout:  2 * time.Second,
		EnableSignalHandling: true,
		ShutdownOnNonError:   true,
	})

	timerSvc := ostimer.New(ctx)
	core := routingcore.NewRoutingCore(graph, neighbors, loggingRouter{}, timerSvc, func(addr netip.Addr) bool {
		return addr == local
	})

	grp.Go("routing-core", core.Run)
	grp.Go("demo", func(ctx context.Context) error {
		core.SetDomainParameter(ctx, 0, routingcore.DomainParams{
			Table:    cfg.Table,
			Protocol: cfg.Protocol,
			Distance: cfg.Distance,
		})
		core.ForceUpdate(ctx, true)

		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return nil
		}
		printTable(ctx, core.Snapshot(ctx, 0))

		<-ctx.Done()
		core.InitiateShutdown(ctx)
		core.Cleanup(ctx)
		return nil
	})

	return grp.Wait()
}

func printTable(ctx context.Context, entries []routingcore.RoutingEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DESTINATION\tGATEWAY\tIFINDEX\tCOST\tINSTALLED")
	for _, e := range entries {
		gw := "on-link"
		if e.RouteNew.Gateway.IsValid() {
			gw = e.RouteNew.Gateway.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", e.Destination, gw, e.RouteNew.IfIndex, e.Cost, e.StateCurrent)
	}
	w.Flush()
	dlog.Debugf(ctx, "printed %d entries", len(entries))
}

// loggingRouter is a trivial OSRouting that logs instead of touching the
// real kernel, so `olsrv2d run` works without root privileges. A real
// deployment wires pkg/osroute.Router here instead.
type loggingRouter struct{}

func (loggingRouter) Set(ctx context.Context, _ uuid.UUID, route routingcore.KernelRoute, add bool, _ bool, done routingcore.RouteResultFunc) error {
	verb := "add"
	if !add {
		verb = "remove"
	}
	dlog.Infof(ctx, "(demo) %s route %s via %s", verb, route.Dst, route.Gateway)
	done(ctx, nil)
	return nil
}

func (loggingRouter) Interrupt(uuid.UUID) {}
