/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Command merge-warden-server is the long-running service that wraps
// coordinate.Coordinator: it accepts already-verified ProcessEvent payloads
// (webhook transport and HMAC verification are explicitly out of core
// scope, per spec.md §1) and drives the policy-evaluation and
// reconciliation engine. Service wiring (signal handling, envconfig,
// profiler, duplex health/metrics) follows
// examples/github-pr-validator/cmd/reconciler/main.go's pattern.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chainguard.dev/go-grpc-kit/pkg/duplex"
	kmetrics "chainguard.dev/go-grpc-kit/pkg/metrics"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/pvandervelde/merge-warden/coordinate"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

type config struct {
	Port         int    `env:"PORT,default=8080"`
	EventPort    int    `env:"EVENT_PORT,default=8081"`
	MetricsPort  int    `env:"METRICS_PORT,default=2112"`
	EnablePprof  bool   `env:"ENABLE_PPROF,default=false"`
	OctoIdentity string `env:"OCTO_IDENTITY,required"`
	CacheTTL     time.Duration `env:"CONFIG_CACHE_TTL,default=5m"`
	Workers      int    `env:"WORKERS,default=16"`
}

// eventPayload is the wire shape accepted on the event-ingestion endpoint.
// It mirrors platform.ProcessEvent field-for-field; the webhook transport
// that produces it (signature verification, GitHub event-to-kind mapping)
// is explicitly out of core scope per spec.md §1.
type eventPayload struct {
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	PRNumber  uint64 `json:"pr_number"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
	Label     string `json:"label,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	rest, gql, err := platform.NewOctoSTSClients(ctx, cfg.OctoIdentity, platform.RepoRef{})
	if err != nil {
		clog.FatalContextf(ctx, "building initial GitHub clients: %v", err)
	}
	adapter := platform.NewGitHubAdapter(rest, gql)
	resolver := policy.NewResolver(nil, platform.NewGitHubRepoFileSource(rest), cfg.CacheTTL)
	coordinator := coordinate.New(coordinate.Config{
		Adapter:  adapter,
		Resolver: resolver,
		Workers:  cfg.Workers,
	})

	d := duplex.New(
		cfg.Port,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainStreamInterceptor(kmetrics.StreamServerInterceptor()),
		grpc.ChainUnaryInterceptor(
			kmetrics.UnaryServerInterceptor(),
			recovery.UnaryServerInterceptor(),
		),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)

	d.RegisterListenAndServeMetrics(cfg.MetricsPort, cfg.EnablePprof)
	healthgrpc.RegisterHealthServer(d.Server, health.NewServer())

	clog.InfoContextf(ctx, "Starting merge-warden server on grpc port %d, event port %d", cfg.Port, cfg.EventPort)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serveEvents(gctx, cfg.EventPort, coordinator) })
	g.Go(func() error { return d.ListenAndServe(gctx) })
	if err := g.Wait(); err != nil {
		clog.FatalContextf(ctx, "server failed: %v", err)
	}
}

// serveEvents runs the plain HTTP endpoint that accepts already-verified
// ProcessEvent payloads and hands them to the Coordinator. A real webhook
// front-end (HMAC verification, GitHub-event-to-ProcessEvent mapping) sits
// upstream of this and is out of core scope.
func serveEvents(ctx context.Context, port int, coordinator *coordinate.Coordinator) error {
	log := clog.FromContext(ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var p eventPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			log.Warnf("decoding event payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		coordinator.Submit(r.Context(), platform.ProcessEvent{
			Repo:      platform.RepoRef{Owner: p.Owner, Name: p.Repo},
			PRNumber:  p.PRNumber,
			Kind:      platform.EventKind(p.Kind),
			Actor:     p.Actor,
			Label:     p.Label,
			Timestamp: p.Timestamp,
		})
		w.WriteHeader(http.StatusAccepted)
	})

	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorf("event server failed: %v", err)
		return err
	}
	return nil
}
