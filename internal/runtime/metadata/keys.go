package metadata

// Reserved metadata keys set by the producer and read by the consumer.
const (
	// KeyContentType describes the payload encoding.
	KeyContentType = "content_type"

	// KeySchemaFingerprint is the hex CRC-64-AVRO fingerprint of the writer schema.
	KeySchemaFingerprint = "avroflow_schema_fingerprint"

	// KeyProfileID carries the profile id so consumers can log it before decoding.
	KeyProfileID = "avroflow_profile_id"

	// KeyProducedAt records when the message was published, in RFC 3339.
	KeyProducedAt = "avroflow_produced_at"

	// KeyCorrelationID tracks related messages across services.
	KeyCorrelationID = "correlation_id"
)

// ContentTypeAvro is the KeyContentType value for Avro binary payloads.
const ContentTypeAvro = "avro/binary"

// Get returns the value stored under key, or fallback when it is missing or empty.
func (m Metadata) Get(key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
