package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configpkg "github.com/drblury/avroflow/internal/runtime/config"
	loggingpkg "github.com/drblury/avroflow/internal/runtime/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "avroflow <command>",
		Short:         "Consume Avro profile events, normalize them and render templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("topic", "", "topic to consume from or publish to (env KAFKA_TOPIC)")
	root.PersistentFlags().String("transport", "", "kafka, channel, nats or rabbitmq (env AVROFLOW_PUBSUB_SYSTEM)")
	root.PersistentFlags().StringSlice("brokers", nil, "comma separated Kafka brokers (env KAFKA_BROKERS)")
	root.PersistentFlags().String("schema", "", "Avro schema file, the bundled profile schema when empty (env SCHEMA_FILE)")
	root.PersistentFlags().Int("schema-prefix", 0, "bytes to strip before decoding, 5 for Schema Registry framing (env SCHEMA_ID_PREFIX_LEN)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "text or json (env LOG_FORMAT)")

	root.AddCommand(newConsumeCmd())
	root.AddCommand(newProduceCmd())
	return root
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*configpkg.Config, error) {
	conf, err := configpkg.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyFlags(cmd *cobra.Command, conf *configpkg.Config) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	set("topic", func() (e error) { conf.KafkaTopic, e = flags.GetString("topic"); return })
	set("transport", func() (e error) { conf.PubSubSystem, e = flags.GetString("transport"); return })
	set("brokers", func() (e error) { conf.KafkaBrokers, e = flags.GetStringSlice("brokers"); return })
	set("schema", func() (e error) { conf.SchemaFile, e = flags.GetString("schema"); return })
	set("schema-prefix", func() (e error) { conf.SchemaIDPrefixLen, e = flags.GetInt("schema-prefix"); return })
	set("log-level", func() (e error) { conf.LogLevel, e = flags.GetString("log-level"); return })
	set("log-format", func() (e error) { conf.LogFormat, e = flags.GetString("log-format"); return })
	set("group", func() (e error) { conf.KafkaConsumerGroup, e = flags.GetString("group"); return })
	set("template-dir", func() (e error) { conf.TemplateDir, e = flags.GetString("template-dir"); return })
	set("template-file", func() (e error) { conf.TemplateFile, e = flags.GetString("template-file"); return })
	set("watch-templates", func() (e error) { conf.TemplateWatch, e = flags.GetBool("watch-templates"); return })
	set("timezone", func() (e error) { conf.Timezone, e = flags.GetString("timezone"); return })
	set("batch-size", func() (e error) { conf.BatchSize, e = flags.GetInt("batch-size"); return })
	set("poll-timeout", func() (e error) { conf.PollTimeout, e = flags.GetDuration("poll-timeout"); return })
	set("metrics", func() (e error) { conf.MetricsEnabled, e = flags.GetBool("metrics"); return })
	set("metrics-port", func() (e error) { conf.MetricsPort, e = flags.GetInt("metrics-port"); return })
	return err
}

func newLogger(cmd *cobra.Command, conf *configpkg.Config) (loggingpkg.ServiceLogger, error) {
	return loggingpkg.NewServiceLogger(cmd.ErrOrStderr(), conf.LogLevel, conf.LogFormat)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "avroflow:", err)
		os.Exit(1)
	}
}
