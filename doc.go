// Package avroflow consumes Avro encoded profile events from a message broker,
// normalizes their fields and renders each normalized record through a
// Jinja-style template.
//
// Each polled batch is decoded against the profile schema. A message that does
// not decode drops its whole batch. Every profile that has a last login then gets
// its timestamps stamped with the configured zone (Europe/Amsterdam by default),
// its item names lowercased and its amounts formatted as dollars. Profiles
// without a last login are passed through untouched. The normalized record is
// rendered with pongo2, and a template failure is logged without aborting the
// record.
//
// Consume is the shortest way in:
//
//	err := avroflow.Consume(ctx, "profiles", "profile-workers", "localhost:9092", nil)
//
// For more control fill a Config (or LoadConfig from the environment), build a
// Service with NewService and call Start. Service.Publish encodes profiles with
// the same codec, which is handy against local brokers.
//
// # Transports
//
// The transport is picked by Config.PubSubSystem:
//   - kafka: consumer groups, starting at the newest offset (default)
//   - channel: in-memory Go channels for tests and local runs
//   - nats: NATS core with queue groups
//   - rabbitmq: durable AMQP queues
//
// Custom transports can be added with RegisterTransport.
//
// # Observability
//
// Logging goes through ServiceLogger, backed by log/slog. Ingestion counters and
// per-record latency are exported as Prometheus collectors when
// METRICS_ENABLED is set, and batch and record handling open OpenTelemetry spans.
// Hooks observe every batch and record for custom alerting.
package avroflow
