package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/avroflow/internal/runtime/avrocodec"
	configpkg "github.com/drblury/avroflow/internal/runtime/config"
	"github.com/drblury/avroflow/internal/runtime/consumer"
	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/avroflow/internal/runtime/logging"
	"github.com/drblury/avroflow/internal/runtime/metrics"
	"github.com/drblury/avroflow/internal/runtime/normalize"
	"github.com/drblury/avroflow/internal/runtime/pipeline"
	"github.com/drblury/avroflow/internal/runtime/producer"
	"github.com/drblury/avroflow/internal/runtime/record"
	"github.com/drblury/avroflow/internal/runtime/render"
	"github.com/drblury/avroflow/schemas"
	transportpkg "github.com/drblury/avroflow/transport"
	_ "github.com/drblury/avroflow/transport/transports"
)

const metricsShutdownTimeout = 5 * time.Second

// ServiceDependencies holds the optional collaborators of a Service. Leave
// fields nil to get the defaults.
type ServiceDependencies struct {
	// Transports defaults to transport.DefaultRegistry with every bundled
	// backend registered.
	Transports *transportpkg.Registry
	// Registry receives the ingestion collectors. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry
	// Renderer overrides the pongo2 template renderer.
	Renderer render.Renderer
	// Hooks run around every batch and record, after the built-in ones.
	Hooks consumer.Hooks
}

// Service wires the transport, codec, pipeline and consumer from one Config.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	transport transportpkg.Transport
	codec     *avrocodec.Codec
	pipeline  *pipeline.Pipeline
	consumer  *consumer.Consumer
	metrics   *metrics.IngestMetrics
	registry  *prometheus.Registry
	caps      transportpkg.Capabilities
	resources *resourceTracker

	stopWatch func()

	producerOnce sync.Once
	producer     *producer.Producer
	producerErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewService validates conf and builds every collaborator. Call Start to run
// the ingestion loop and Close to release the transport.
func NewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, err
	}

	log.Info("Creating ingestion service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"config":        conf.String(),
	})

	s := &Service{Conf: conf, Logger: log, registry: deps.Registry, resources: newResourceTracker()}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	codec, err := newCodec(conf)
	if err != nil {
		return nil, err
	}
	s.codec = codec

	renderer, err := s.newRenderer(deps.Renderer)
	if err != nil {
		return nil, err
	}

	ts, err := normalize.NewTimestampsFromName(conf.Timezone)
	if err != nil {
		s.closeWatch()
		return nil, err
	}
	s.pipeline, err = pipeline.New(pipeline.Options{
		Timestamps:   ts,
		Renderer:     renderer,
		TemplateDir:  conf.TemplateDir,
		TemplateFile: conf.TemplateFile,
		Logger:       log,
	})
	if err != nil {
		s.closeWatch()
		return nil, err
	}

	s.metrics = metrics.New(s.registry)
	if err := s.metrics.Register(); err != nil {
		s.closeWatch()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	registry := deps.Transports
	if registry == nil {
		registry = transportpkg.DefaultRegistry
	}
	s.transport, err = registry.Build(ctx, conf, loggingpkg.NewWatermillAdapter(log))
	if err != nil {
		s.closeWatch()
		return nil, fmt.Errorf("build %s transport: %w", conf.PubSubSystem, err)
	}
	s.caps = registry.GetCapabilities(conf.PubSubSystem)
	if provider, ok := s.transport.Subscriber.(transportpkg.CapabilitiesProvider); ok {
		s.caps = provider.Capabilities()
	}
	if s.caps.Lossy() {
		log.Info("Transport does not persist messages across restarts", loggingpkg.LogFields{"transport": s.caps.Name})
	}

	hooks := deps.Hooks
	if level, _ := loggingpkg.ParseLevel(conf.LogLevel); level <= slog.LevelDebug {
		hooks = consumer.LoggingHooks(log).Merge(hooks)
	}
	s.consumer, err = consumer.New(consumer.Options{
		Subscriber:  s.transport.Subscriber,
		Topic:       conf.KafkaTopic,
		Decoder:     codec,
		Processor:   s.pipeline,
		Logger:      log,
		Metrics:     s.metrics,
		Hooks:       hooks,
		BatchSize:   conf.BatchSize,
		PollTimeout: conf.PollTimeout,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newCodec(conf *configpkg.Config) (*avrocodec.Codec, error) {
	opt := avrocodec.WithPrefixLen(conf.SchemaIDPrefixLen)
	if conf.SchemaFile != "" {
		return avrocodec.Load(conf.SchemaFile, opt)
	}
	return avrocodec.New(schemas.Profile, opt)
}

func (s *Service) newRenderer(override render.Renderer) (render.Renderer, error) {
	if override != nil {
		return override, nil
	}
	renderer := render.New(render.DefaultOptions())
	if !s.Conf.TemplateWatch {
		return renderer, nil
	}

	stop, err := renderer.Watch(s.Conf.TemplateDir,
		func(ev fsnotify.Event) {
			s.Logger.Info("Template changed, reloading", loggingpkg.LogFields{"file": ev.Name, "op": ev.Op.String()})
		},
		func(err error) {
			s.Logger.Error("Template watcher failed", err, loggingpkg.LogFields{"dir": s.Conf.TemplateDir})
		},
	)
	if err != nil {
		return nil, err
	}
	s.stopWatch = stop
	return renderer, nil
}

// Start runs the consumer until ctx is cancelled. The metrics endpoint is
// served for the same lifetime when enabled.
func (s *Service) Start(ctx context.Context) error {
	if s.Conf.MetricsEnabled {
		srv := s.startMetricsServer()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return s.consumer.Run(ctx)
}

func (s *Service) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.MetricsHandler())
	mux.Handle("/api/stats", s.StatsHandler())

	addr := fmt.Sprintf(":%d", s.Conf.MetricsPort)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.Logger.Info("Starting metrics server", loggingpkg.LogFields{"address": addr})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("Failed to start metrics server", err, loggingpkg.LogFields{"address": addr})
		}
	}()
	return srv
}

// MetricsHandler serves the ingestion collectors.
func (s *Service) MetricsHandler() http.Handler {
	return metrics.Handler(s.registry)
}

// Metrics returns the ingestion statistics.
func (s *Service) Metrics() *metrics.IngestMetrics {
	return s.metrics
}

// Pipeline returns the pipeline records are handed to.
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Publish encodes profiles and publishes them to the configured topic.
func (s *Service) Publish(ctx context.Context, profiles ...record.Profile) error {
	if s == nil {
		return errors.New("ingestion service is nil")
	}
	s.producerOnce.Do(func() {
		s.producer, s.producerErr = producer.New(producer.Options{
			Publisher:   s.transport.Publisher,
			Topic:       s.Conf.KafkaTopic,
			Encoder:     s.codec,
			Logger:      s.Logger,
			Fingerprint: s.codec.Fingerprint(),
		})
	})
	if s.producerErr != nil {
		return s.producerErr
	}
	return s.producer.Publish(ctx, profiles...)
}

// Close stops the template watcher and closes the transport. Safe to call
// more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closeWatch()
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}

func (s *Service) closeWatch() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
}
