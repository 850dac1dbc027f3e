package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/loom-ui/loom/pkg/reactive"
	"github.com/loom-ui/loom/pkg/server"
	"github.com/loom-ui/loom/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		debug    bool
		s3Bucket string
		s3Prefix string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session host",
		Long: `Run the HTTP/WebSocket session host with a demo counter app.

Sessions are created on first contact, mutated over /sessions/{id}/live,
and paused into the snapshot store via POST /sessions/{id}/snapshot.
Snapshots live in memory unless an S3 bucket is configured.

Examples:
  loom serve
  loom serve --addr=:9000
  loom serve --s3-bucket=my-bucket --s3-prefix=sessions/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, debug, s3Bucket, s3Prefix)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket for snapshots (default: in-memory)")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "sessions/", "S3 key prefix for snapshots")

	return cmd
}

func runServe(addr string, debug bool, s3Bucket, s3Prefix string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, logger, s3Bucket, s3Prefix)
	if err != nil {
		return err
	}

	metrics := reactive.NewMetrics()
	srv := server.New(demoApp(logger, metrics), store, &server.Config{
		Address: addr,
		Logger:  logger,
	})

	return srv.Start(ctx)
}

func buildStore(ctx context.Context, logger *slog.Logger, bucket, prefix string) (snapshot.Store, error) {
	if bucket == "" {
		return snapshot.NewMemoryStore(), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	logger.Info("using S3 snapshot store", "bucket", bucket, "prefix", prefix)
	return snapshot.NewS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// demoApp builds a small counter session: a "count" signal, a computed
// double, and a render task tracking both plus the document title.
func demoApp(logger *slog.Logger, metrics *reactive.Metrics) server.AppFactory {
	return func(id string) (*server.App, error) {
		sched := reactive.NewFlushScheduler()
		c := reactive.NewContainer(
			reactive.WithScheduler(sched),
			reactive.WithLogger(logger.With("session", id)),
			reactive.WithMetrics(metrics),
		)

		count := reactive.NewSignal(0)
		doc := reactive.NewStore(map[string]any{"title": "untitled"})

		el := c.NewElement("counter")
		_, double := el.NewComputed(reactive.NewBodyRef("counter.double", reactive.ComputedFunc(func() (any, error) {
			switch n := count.Value().(type) {
			case int:
				return n * 2, nil
			case float64:
				return n * 2, nil
			default:
				return 0, nil
			}
		})))

		el.NewTask(reactive.NewBodyRef("counter.render", reactive.TaskFunc(func(ctx *reactive.TaskCtx) (reactive.Cleanup, error) {
			n, err := ctx.TrackValue(count)
			if err != nil {
				return nil, err
			}
			d, err := ctx.TrackValue(double)
			if err != nil {
				return nil, err
			}
			title, err := ctx.TrackKey(doc, "title")
			if err != nil {
				return nil, err
			}
			c.Logger().Debug("render", "title", title, "count", n, "double", d)
			return nil, nil
		})))

		table := snapshot.NewTable()
		return &server.App{
			Container: c,
			Scheduler: sched,
			Table:     table,
			Targets: map[string]any{
				"count": count,
				"doc":   doc,
			},
		}, nil
	}
}
