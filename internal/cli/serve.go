package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vnykmshr/wareflow/internal/config"
	"github.com/vnykmshr/wareflow/pkg/engine"
	"github.com/vnykmshr/wareflow/pkg/metrics"
	"github.com/vnykmshr/wareflow/pkg/report"
	"github.com/vnykmshr/wareflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/wareflow/pkg/store"
)

// HealthService is the gRPC health service name that tracks pipeline runs.
const HealthService = "wareflow.Pipeline"

const pipelineTask = "pipeline"

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var immediate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a schedule",
		Long: `Runs the pipeline on the configured cron schedule and serves Prometheus
metrics on /metrics, the latest run summary on /runs/latest and a gRPC health
service. Config file changes are applied to subsequent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.newServer(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if a.v.ConfigFileUsed() != "" {
				config.Watch(a.v, s.reload)
			}
			if immediate {
				// A failed first run is recorded on the health service.
				_ = s.runOnce(ctx)
			}

			httpLn, err := net.Listen("tcp", a.cfg.Serve.MetricsAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.Serve.MetricsAddr, err)
			}
			var grpcLn net.Listener
			if a.cfg.Serve.GRPCAddr != "" {
				grpcLn, err = net.Listen("tcp", a.cfg.Serve.GRPCAddr)
				if err != nil {
					_ = httpLn.Close()
					return fmt.Errorf("listen %s: %w", a.cfg.Serve.GRPCAddr, err)
				}
			}
			return s.serve(ctx, httpLn, grpcLn)
		},
	}

	cmd.Flags().BoolVar(&immediate, "now", false, "run the pipeline once before the first scheduled run")
	return cmd
}

// server runs the pipeline on a schedule and exposes its state.
type server struct {
	log      *zap.Logger
	engine   *engine.Engine
	store    store.Store
	sched    *scheduler.Scheduler
	health   *health.Server
	gatherer prometheus.Gatherer

	mu     sync.RWMutex
	cron   string
	latest *report.Summary
}

func (a *app) newServer(ctx context.Context) (*server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.Config{Enabled: true, Registry: reg})

	eng, err := a.newEngine(m)
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	s := &server{
		log:      a.log,
		engine:   eng,
		store:    st,
		health:   health.NewServer(),
		gatherer: reg,
		cron:     a.cfg.Serve.Cron,
	}
	s.sched = scheduler.NewWithConfig(scheduler.Config{
		Logger: a.log,
		OnError: func(id string, err error) {
			s.log.Error("scheduled run failed", zap.String("task", id), zap.Error(err))
		},
	})
	if err := s.sched.ScheduleCron(pipelineTask, s.cron, scheduler.JobFunc(s.runOnce)); err != nil {
		_ = st.Close()
		return nil, err
	}

	if latest, err := st.Latest(ctx); err == nil {
		sum := latest.Summary()
		s.latest = &sum
	}
	s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

// runOnce executes and stores one pipeline run.
func (s *server) runOnce(ctx context.Context) error {
	r, runErr := s.engine.Run(ctx)
	if r != nil {
		if err := s.store.Save(ctx, r); err != nil {
			s.log.Warn("failed to save run", zap.String("run", r.ID), zap.Error(err))
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if runErr != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(HealthService, status)

	if runErr == nil {
		sum := r.Summary()
		s.mu.Lock()
		s.latest = &sum
		s.mu.Unlock()
	}
	return runErr
}

// reload applies a changed config file to subsequent runs.
func (s *server) reload(cfg *config.Config, err error) {
	if err != nil {
		s.log.Warn("config reload rejected", zap.Error(err))
		return
	}
	if err := s.engine.Reconfigure(cfg.Engine()); err != nil {
		s.log.Warn("config reload rejected", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Serve.Cron != s.cron {
		s.sched.Cancel(pipelineTask)
		if err := s.sched.ScheduleCron(pipelineTask, cfg.Serve.Cron, scheduler.JobFunc(s.runOnce)); err != nil {
			s.log.Error("reschedule failed", zap.String("cron", cfg.Serve.Cron), zap.Error(err))
			return
		}
		s.cron = cfg.Serve.Cron
	}
	s.log.Info("config reloaded", zap.String("cron", s.cron))
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.health.Check(r.Context(), &healthpb.HealthCheckRequest{Service: HealthService})
		if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
			http.Error(w, "last run failed", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		latest := s.latest
		s.mu.RUnlock()
		if latest == nil {
			http.Error(w, "no runs recorded", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(latest)
	})
	return mux
}

// serve blocks until ctx is cancelled or a listener fails. grpcLn may be nil.
func (s *server) serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := s.sched.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		<-s.sched.Stop()
		return nil
	})

	httpSrv := &http.Server{Handler: s.handler(), ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		s.log.Info("serving metrics", zap.String("addr", httpLn.Addr().String()))
		if err := httpSrv.Serve(httpLn); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if grpcLn != nil {
		grpcSrv := grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, s.health)
		g.Go(func() error {
			s.log.Info("serving health", zap.String("addr", grpcLn.Addr().String()))
			return grpcSrv.Serve(grpcLn)
		})
		g.Go(func() error {
			<-ctx.Done()
			s.health.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	s.mu.RLock()
	s.log.Info("scheduler started", zap.String("cron", s.cron))
	s.mu.RUnlock()

	err := g.Wait()
	s.log.Info("server stopped")
	return err
}

func (s *server) close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("failed to close store", zap.Error(err))
	}
}
