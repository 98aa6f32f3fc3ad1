package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	runtimepkg "github.com/drblury/avroflow/internal/runtime"
	"github.com/drblury/avroflow/internal/runtime/producer"
	"github.com/drblury/avroflow/internal/runtime/record"
)

func newProduceCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Publish profiles from a JSON file as Avro messages",
		Long:  "Publish the profile, or array of profiles, in a JSON file. Use --file - to read standard input.",
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

			profiles, err := readProfiles(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, err := runtimepkg.NewService(ctx, conf, logger, runtimepkg.ServiceDependencies{})
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Publish(ctx, profiles...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d profile(s) to %s\n", len(profiles), conf.KafkaTopic)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding a profile or an array of profiles")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readProfiles(path string, stdin io.Reader) ([]record.Profile, error) {
	if path == "-" {
		return producer.ReadProfiles(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return producer.ReadProfiles(f)
}
