// Command essayjudge scores a YAML batch of essays and prints one JSON
// report per essay. With -leaderboard the batch is entered into a
// competition in the configured store, accepted, evaluated by the
// background worker, and the ranked leaderboard is printed instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-essay-judge/infrastructure/logging"
	"github.com/ahrav/go-essay-judge/infrastructure/storage/sqlite"
	"github.com/ahrav/go-essay-judge/internal/application"
	"github.com/ahrav/go-essay-judge/internal/domain"
)

type options struct {
	configPath  string
	inputPath   string
	metricsAddr string
	leaderboard bool
	timeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&opts.inputPath, "input", "", "Path to a YAML batch of essays")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.BoolVar(&opts.leaderboard, "leaderboard", false, "Run the batch through review and print the leaderboard")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-essay evaluation timeout")
	flag.Parse()

	if opts.inputPath == "" {
		fmt.Fprintln(os.Stderr, "essayjudge: -input is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := application.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger, prometheus.DefaultRegisterer, os.Stdout); err != nil {
		logger.Error("essayjudge failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg application.Config, opts options, logger *zap.Logger, reg prometheus.Registerer, out io.Writer) error {
	batch, err := application.LoadBatchFile(opts.inputPath)
	if err != nil {
		return err
	}

	rt, err := application.Bootstrap(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Failed to release resources", zap.Error(err))
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("Serving metrics", zap.String("address", cfg.Metrics.Addr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	enc := json.NewEncoder(out)
	if opts.leaderboard {
		return runLeaderboard(ctx, rt, batch, opts.timeout, enc)
	}
	return runReports(ctx, rt, batch, opts.timeout, enc)
}

type essayReport struct {
	ID     string              `json:"id"`
	Report *application.Report `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func runReports(ctx context.Context, rt *application.Runtime, batch *application.Batch, timeout time.Duration, enc *json.Encoder) error {
	failed := 0
	for i, e := range batch.Essays {
		if err := ctx.Err(); err != nil {
			return err
		}
		evalCtx, cancel := context.WithTimeout(ctx, timeout)
		r, err := rt.Evaluator.Analyze(evalCtx, batch.Input(i))
		cancel()

		line := essayReport{ID: e.ID}
		if err != nil {
			failed++
			line.Error = err.Error()
			rt.Logger.Warn("Essay could not be evaluated", zap.String("essay_id", e.ID), zap.Error(err))
		} else {
			line.Report = &r
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d essays failed", failed, len(batch.Essays))
	}
	return nil
}

func runLeaderboard(ctx context.Context, rt *application.Runtime, batch *application.Batch, timeout time.Duration, enc *json.Encoder) error {
	repo, err := rt.OpenStore(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	title := batch.Competition
	if title == "" {
		title = "Batch " + now.Format(time.DateOnly)
	}
	comp := domain.Competition{
		ID:        sqlite.NewID(),
		Title:     title,
		Topic:     batch.Topic,
		MinWords:  batch.MinWords,
		MaxWords:  batch.MaxWords,
		StartDate: now.Add(-time.Minute),
		EndDate:   now.Add(time.Hour),
	}
	if err := repo.CreateCompetition(ctx, comp); err != nil {
		return err
	}

	jobs := make(chan application.EvaluationJob, rt.Config.Worker.QueueSize)
	timed := timeoutEvaluator{next: rt.Evaluator, timeout: timeout}
	worker := application.NewEvaluationWorker(repo, timed, jobs, rt.Config.Worker.Concurrency, rt.Logger)
	reviews := application.NewReviewService(repo, timed, jobs, rt.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		defer close(jobs)
		for _, e := range batch.Essays {
			author := e.Author
			if author == "" {
				author = e.ID
			}
			essay, err := reviews.CreateDraft(gctx, comp.ID, author, e.Title, e.Content)
			if err != nil {
				return err
			}
			if _, err := reviews.Submit(gctx, essay.ID); err != nil {
				rt.Logger.Warn("Essay not submitted", zap.String("essay_id", e.ID), zap.Error(err))
				continue
			}
			if _, err := reviews.Accept(gctx, essay.ID, "essayjudge"); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	board, err := application.NewLeaderboardService(repo).Leaderboard(ctx, comp.ID, application.Viewer{Staff: true}, time.Now())
	if err != nil {
		return err
	}
	return enc.Encode(struct {
		Competition string                    `json:"competition"`
		Entries     []domain.LeaderboardEntry `json:"entries"`
	}{comp.Title, board})
}

// timeoutEvaluator bounds each evaluation run by the worker.
type timeoutEvaluator struct {
	next    application.Evaluator
	timeout time.Duration
}

func (t timeoutEvaluator) Evaluate(ctx context.Context, in domain.EvaluationInput) (domain.ScoreBreakdown, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Evaluate(ctx, in)
}
