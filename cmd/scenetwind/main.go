// Command scenetwind runs the tag replacement engine headless against a scene
// document: it mirrors the scene in memory, feeds live telemetry into the
// reconciler, publishes the resulting state changes and serves their status
// over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielorbach/go-component"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/databinding"
	"github.com/go-digitaltwin/go-scenetwin/internal/api"
	"github.com/go-digitaltwin/go-scenetwin/internal/config"
	"github.com/go-digitaltwin/go-scenetwin/internal/logging"
	"github.com/go-digitaltwin/go-scenetwin/internal/overrides"
	"github.com/go-digitaltwin/go-scenetwin/poll"
	"github.com/go-digitaltwin/go-scenetwin/scene"
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
	"github.com/go-digitaltwin/go-scenetwin/scenedoc"
	"github.com/go-digitaltwin/go-scenetwin/source"
	"github.com/go-digitaltwin/go-scenetwin/statefeed"
)

var version = "dev"

// frameInterval paces the frame loop of the scene mirror.
const frameInterval = time.Second / 30

func main() {
	configPath := flag.String("config", "scenetwind.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenetwind: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.Logging, version)
	slog.SetDefault(logger)

	ctx := component.InjectLogger(context.Background(), logger)
	d, err := setup(ctx, cfg)
	if err != nil {
		logger.Error("Startup failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The first signal stops the procedures gracefully, a second one kills the
	// process.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	stopping := make(chan struct{})
	go func() {
		<-sigCtx.Done()
		stop()
		logger.Info("Shutting down")
		close(stopping)
	}()
	component.RunProc(d.run,
		component.WithName("scenetwind"),
		component.WithContext(ctx),
		component.WithStopper(stopping),
	)
}

// daemon holds everything the running procedures share.
type daemon struct {
	cfg        *config.Config
	doc        *scenedoc.Document
	mirror     *memscene.Scene
	store      *databinding.Store
	reconciler *scenetwin.Reconciler
	task       *poll.Task
	feed       *statefeed.Publisher
	closers    []func(context.Context) error
}

func setup(ctx context.Context, cfg *config.Config) (*daemon, error) {
	logger := component.Logger(ctx)
	d := &daemon{cfg: cfg, store: databinding.NewStore(cfg.Data.Window)}

	bucket, err := blob.OpenBucket(ctx, cfg.Scene.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open scene bucket: %w", err)
	}
	d.closers = append(d.closers, func(context.Context) error { return bucket.Close() })
	d.doc, err = scenedoc.Load(ctx, bucket, cfg.Scene.Document)
	if err != nil {
		return nil, err
	}
	logger.Info("Scene document loaded", "nodes", len(d.doc.Nodes), "tags", d.doc.Tags())

	assets := bucket
	if cfg.Scene.Assets != "" {
		if assets, err = blob.OpenBucket(ctx, cfg.Scene.Assets); err != nil {
			return nil, fmt.Errorf("open asset bucket: %w", err)
		}
		d.closers = append(d.closers, func(context.Context) error { return assets.Close() })
	}
	d.mirror = memscene.New(memscene.WithAssets(assets))
	d.doc.Materialize(d.mirror)

	if cfg.Telemetry.InfluxDB.URL != "" {
		backfill, err := source.NewBackfill(source.InfluxConfig(cfg.Telemetry.InfluxDB))
		if err != nil {
			return nil, err
		}
		n, err := backfill.Run(ctx, cfg.Data.Window, d.store)
		backfill.Close()
		if err != nil {
			// Live feeders fill the window eventually.
			logger.Warn("History backfill failed", slog.Any("error", err))
		} else {
			logger.Info("History backfilled", "samples", n)
		}
	}

	resolve := func(ref scenetwin.NodeRef) (scene.Object, bool) { return d.mirror.Resolve(string(ref)) }
	var opts []scenetwin.Option
	if cfg.StateFeed.Topic != "" {
		topic, err := pubsub.OpenTopic(ctx, cfg.StateFeed.Topic)
		if err != nil {
			return nil, fmt.Errorf("open state feed topic: %w", err)
		}
		d.closers = append(d.closers, topic.Shutdown)
		d.feed = statefeed.New(topic)
		opts = append(opts, scenetwin.WithStateObserver(d.feed.Observe))
	}
	d.reconciler = scenetwin.NewReconciler(overrides.New(ctx, cfg.Overrides, resolve), opts...)

	d.task = &poll.Task{
		Reconciler: d.reconciler,
		Nodes:      d.doc.NodeMap(),
		Resolve:    resolve,
		Data:       d.store.Snapshot,
		Template:   databinding.Template(cfg.Scene.Template),
		Rules:      d.doc.RuleMap,
		Interval:   cfg.Poll.Interval,
		Locker:     d.mirror,
	}
	return d, nil
}

func (d *daemon) run(l *component.L) {
	for _, closer := range d.closers {
		l.CleanupContext(closer)
	}

	if d.cfg.Telemetry.Subscription != "" {
		sub, err := pubsub.OpenSubscription(l.Context(), d.cfg.Telemetry.Subscription)
		if err != nil {
			l.Fatal(fmt.Errorf("open telemetry subscription: %w", err))
		}
		l.CleanupContext(sub.Shutdown)
		l.Fork("telemetry stream", source.NewEventSource(sub).Stream(d.store))
	}
	if m := d.cfg.Telemetry.MQTT; m.Broker != "" {
		feeder := source.NewMQTT(source.MQTTConfig{
			Broker:      m.Broker,
			ClientID:    m.ClientID,
			Username:    m.Username,
			Password:    m.Password,
			Topic:       m.Topic,
			QoS:         byte(m.QoS),
			TopicPrefix: m.TopicPrefix,
		}, d.store)
		l.Fork("telemetry mqtt", feeder.Proc())
	}
	if d.feed != nil {
		l.Fork("state feed", d.feed.Proc())
	}

	d.mirror.OnFrame(d.reconciler.Animate)
	l.Fork("frames", component.Proc(d.frames))
	l.Fork("reconcile", d.task.Proc())

	if d.cfg.API.Addr != "" {
		srv := api.NewServer(d.reconciler, d.task.Mode, d.store)
		l.Fork("api", srv.Proc(d.cfg.API.Addr, d.cfg.API.ReadTimeout, d.cfg.API.WriteTimeout))
	}
}

// frames steps the scene mirror at a fixed rate, which drives every wrapper's
// per-frame hook.
func (d *daemon) frames(l *component.L) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	for l.Continue() {
		select {
		case <-l.GraceContext().Done():
			return
		case now := <-ticker.C:
			d.mirror.Step(scene.Frame{Delta: now.Sub(last)})
			last = now
		}
	}
}
