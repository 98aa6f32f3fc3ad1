/*
Package runtime wires the avroflow ingestion service.

# Flow

A Service subscribes to one topic through a transport built from the
transport registry. The consumer polls messages into batches of at most
BatchSize messages or whatever arrived within PollTimeout, and acks every
message as it is collected. Each batch is decoded with the Avro codec as a
unit; a single undecodable message drops the whole batch. Decoded profiles
go through the normalization pipeline one by one, in batch order:

  - profiles without a last login are passed through untouched
  - timestamps are shifted into the configured timezone
  - item names are lowercased
  - amounts are formatted as dollars

The normalized profile is then rendered with the configured pongo2 template.
Render failures are logged and counted but never stop the batch.

# Sub-packages

  - avrocodec/: Avro encoding and decoding of profile events
  - config/: environment backed configuration with validation
  - consumer/: batch polling, per-record handling and hooks
  - errors/: sentinel errors and error kinds
  - ids/: ULID generation for messages and batches
  - jsoncodec/: JSON helpers backed by sonic
  - logging/: ServiceLogger and its slog and Watermill adapters
  - metadata/: message metadata keys and helpers
  - metrics/: Prometheus collectors and in-process ingest totals
  - normalize/: timestamp, lowercase and money transforms
  - pipeline/: the per-profile normalize and render step
  - producer/: publishing profiles in the consumer's wire format
  - record/: the profile data model
  - render/: pongo2 template rendering and reloading

# Usage

	conf, err := config.Load()
	if err != nil {
		return err
	}
	svc, err := runtime.NewService(ctx, conf, logger, runtime.ServiceDependencies{})
	if err != nil {
		return err
	}
	defer svc.Close()
	return svc.Start(ctx)
*/
package runtime
