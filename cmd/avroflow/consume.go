package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	runtimepkg "github.com/drblury/avroflow/internal/runtime"
	configpkg "github.com/drblury/avroflow/internal/runtime/config"
	loggingpkg "github.com/drblury/avroflow/internal/runtime/logging"
)

func newConsumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume profile events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, conf)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConsume(ctx, conf, logger)
		},
	}

	cmd.Flags().String("group", "", "consumer group (env KAFKA_CONSUMER_GROUP)")
	cmd.Flags().String("template-dir", "", "template directory (env TEMPLATE_DIR)")
	cmd.Flags().String("template-file", "", "template file inside the template directory (env TEMPLATE_FILE)")
	cmd.Flags().Bool("watch-templates", false, "reload templates when they change on disk (env TEMPLATE_WATCH)")
	cmd.Flags().String("timezone", "", "IANA zone for naive timestamps (env TIMEZONE)")
	cmd.Flags().Int("batch-size", 0, "maximum messages per poll (env BATCH_SIZE)")
	cmd.Flags().Duration("poll-timeout", 0, "maximum wait per poll (env POLL_TIMEOUT)")
	cmd.Flags().Bool("metrics", false, "serve Prometheus metrics (env METRICS_ENABLED)")
	cmd.Flags().Int("metrics-port", 0, "metrics port (env METRICS_PORT)")
	return cmd
}

func runConsume(ctx context.Context, conf *configpkg.Config, logger loggingpkg.ServiceLogger) error {
	svc, err := runtimepkg.NewService(ctx, conf, logger, runtimepkg.ServiceDependencies{})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close transport", err, nil)
		}
	}()
	return svc.Start(ctx)
}
