package avroflow

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	runtimepkg "github.com/drblury/avroflow/internal/runtime"
	"github.com/drblury/avroflow/internal/runtime/avrocodec"
	configpkg "github.com/drblury/avroflow/internal/runtime/config"
	"github.com/drblury/avroflow/internal/runtime/consumer"
	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	idspkg "github.com/drblury/avroflow/internal/runtime/ids"
	"github.com/drblury/avroflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/avroflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/avroflow/internal/runtime/metadata"
	"github.com/drblury/avroflow/internal/runtime/metrics"
	"github.com/drblury/avroflow/internal/runtime/normalize"
	"github.com/drblury/avroflow/internal/runtime/pipeline"
	"github.com/drblury/avroflow/internal/runtime/producer"
	"github.com/drblury/avroflow/internal/runtime/record"
	"github.com/drblury/avroflow/internal/runtime/render"
	"github.com/drblury/avroflow/schemas"
	"github.com/drblury/avroflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	Profile            = record.Profile
	Address            = record.Address
	History            = record.History
	Purchase           = record.Purchase
	NormalizedProfile  = record.NormalizedProfile
	NormalizedHistory  = record.NormalizedHistory
	NormalizedPurchase = record.NormalizedPurchase

	Codec           = avrocodec.Codec
	CodecOption     = avrocodec.Option
	Pipeline        = pipeline.Pipeline
	PipelineOptions = pipeline.Options
	PipelineResult  = pipeline.Result
	Renderer        = render.Renderer
	RendererFunc    = render.RendererFunc
	RenderOptions   = render.Options
	Timestamps      = normalize.Timestamps

	Consumer        = consumer.Consumer
	ConsumerOptions = consumer.Options
	Hooks           = consumer.Hooks
	BatchContext    = consumer.BatchContext
	RecordContext   = consumer.RecordContext
	Producer        = producer.Producer
	ProducerOptions = producer.Options

	IngestMetrics   = metrics.IngestMetrics
	MetricsRecorder = metrics.Recorder

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	InvalidInputError     = errspkg.InvalidInputError
	DecodeError           = errspkg.DecodeError
	RenderError           = errspkg.RenderError
	ConfigValidationError = errspkg.ConfigValidationError
	ErrorKind             = errspkg.ErrorKind

	Transport             = transport.Transport
	TransportBuilder      = transport.Builder
	TransportConfig       = transport.Config
	TransportRegistry     = transport.Registry
	TransportCapabilities = transport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	LoadConfig     = configpkg.Load
	DefaultConfig  = configpkg.Default
	ValidateConfig = configpkg.ValidateConfig

	NewCodec             = avrocodec.New
	LoadCodec            = avrocodec.Load
	WithPrefixLen        = avrocodec.WithPrefixLen
	WithPrefix           = avrocodec.WithPrefix
	ConfluentPrefix      = avrocodec.ConfluentPrefix
	NewPipeline          = pipeline.New
	NewRenderer          = render.New
	DefaultRenderOptions = render.DefaultOptions
	NewTimestamps        = normalize.NewTimestampsFromName
	Money                = normalize.Money
	Lower                = normalize.Lower
	NewConsumer          = consumer.New
	LoggingHooks         = consumer.LoggingHooks
	NewProducer          = producer.New
	ReadProfiles         = producer.ReadProfiles
	NewIngestMetrics     = metrics.New
	MetricsHandler       = metrics.Handler
	KindOf               = errspkg.Kind
	NewInvalidInput      = errspkg.NewInvalidInput

	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build
	GetCapabilities          = transport.GetCapabilities
	ErrUnknownTransport      = transport.ErrUnknownTransport

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrInvalidInput       = errspkg.ErrInvalidInput
	ErrDecode             = errspkg.ErrDecode
	ErrRender             = errspkg.ErrRender
	ErrSchemaRequired     = errspkg.ErrSchemaRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrSubscriberRequired = errspkg.ErrSubscriberRequired
	ErrRendererRequired   = errspkg.ErrRendererRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewServiceLogger     = loggingpkg.NewServiceLogger
	NewWatermillAdapter  = loggingpkg.NewWatermillAdapter

	NewMetadata = metadatapkg.New
	CreateULID  = idspkg.CreateULID
)

// ProfileSchema is the bundled Avro schema of profile events.
var ProfileSchema = schemas.Profile

// Metadata keys set on produced messages.
const (
	MetadataKeyContentType       = metadatapkg.KeyContentType
	MetadataKeySchemaFingerprint = metadatapkg.KeySchemaFingerprint
	MetadataKeyProfileID         = metadatapkg.KeyProfileID
	MetadataKeyProducedAt        = metadatapkg.KeyProducedAt
	MetadataKeyCorrelationID     = metadatapkg.KeyCorrelationID
	ContentTypeAvro              = metadatapkg.ContentTypeAvro
)

// Consume runs the ingestion loop on topic until ctx is cancelled or the
// process receives SIGINT or SIGTERM. Empty arguments keep the configured
// values, which default to topic "test", group "test_group" and broker
// "localhost:9092". brokers may list several addresses separated by commas.
// A nil logger logs to stderr at the configured level.
func Consume(ctx context.Context, topic, group, brokers string, logger ServiceLogger) error {
	conf, err := configpkg.Load()
	if err != nil {
		return err
	}
	if topic != "" {
		conf.KafkaTopic = topic
	}
	if group != "" {
		conf.KafkaConsumerGroup = group
	}
	if brokers != "" {
		conf.KafkaBrokers = splitBrokers(brokers)
	}
	return ConsumeWithConfig(ctx, conf, logger, ServiceDependencies{})
}

// ConsumeWithConfig is Consume for a prepared Config.
func ConsumeWithConfig(ctx context.Context, conf *Config, logger ServiceLogger, deps ServiceDependencies) error {
	if logger == nil {
		if conf == nil {
			return ErrConfigRequired
		}
		var err error
		logger, err = loggingpkg.NewServiceLogger(os.Stderr, conf.LogLevel, conf.LogFormat)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := runtimepkg.NewService(ctx, conf, logger, deps)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Error("Failed to close transport", cerr, nil)
		}
	}()
	return svc.Start(ctx)
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
