// Package avrocodec translates profile events between their Avro binary form
// and the typed records used by the pipeline.
package avrocodec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hamba/avro/v2"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	"github.com/drblury/avroflow/internal/runtime/record"
)

// ConfluentPrefixLen is the length of the Schema Registry wire prefix: one
// magic byte followed by a big-endian schema id.
const ConfluentPrefixLen = 5

// Codec decodes and encodes profiles against one parsed schema.
type Codec struct {
	schema    avro.Schema
	prefixLen int
	prefix    []byte
}

// Option customises a Codec.
type Option func(*Codec)

// WithPrefixLen strips n leading bytes from every buffer before decoding.
func WithPrefixLen(n int) Option {
	return func(c *Codec) {
		c.prefixLen = n
	}
}

// WithPrefix prepends prefix to encoded buffers and strips the same number of
// bytes when decoding.
func WithPrefix(prefix []byte) Option {
	return func(c *Codec) {
		c.prefix = append([]byte(nil), prefix...)
		c.prefixLen = len(prefix)
	}
}

// ConfluentPrefix builds the Schema Registry prefix for schemaID.
func ConfluentPrefix(schemaID uint32) []byte {
	prefix := make([]byte, ConfluentPrefixLen)
	binary.BigEndian.PutUint32(prefix[1:], schemaID)
	return prefix
}

// New parses schemaJSON and returns a Codec for it.
func New(schemaJSON string, opts ...Option) (*Codec, error) {
	if schemaJSON == "" {
		return nil, errspkg.ErrSchemaRequired
	}
	schema, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("parse avro schema: %w", err)
	}

	c := &Codec{schema: schema}
	for _, opt := range opts {
		opt(c)
	}
	if c.prefixLen < 0 {
		return nil, fmt.Errorf("schema id prefix length cannot be negative: %d", c.prefixLen)
	}
	return c, nil
}

// Load reads the schema at path and returns a Codec for it.
func Load(path string, opts ...Option) (*Codec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read avro schema %s: %w", path, err)
	}
	return New(string(raw), opts...)
}

// Schema returns the parsed schema.
func (c *Codec) Schema() avro.Schema {
	return c.schema
}

// Fingerprint returns the hex CRC-64-AVRO fingerprint of the schema.
func (c *Codec) Fingerprint() string {
	fp, err := c.schema.FingerprintUsing(avro.CRC64Avro)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(fp)
}

// PrefixLen reports how many bytes are stripped before decoding.
func (c *Codec) PrefixLen() int {
	return c.prefixLen
}

func (c *Codec) body(data []byte) ([]byte, error) {
	if c.prefixLen == 0 {
		return data, nil
	}
	if len(data) < c.prefixLen {
		return nil, &errspkg.DecodeError{
			Err: fmt.Errorf("buffer of %d bytes is shorter than the %d byte schema id prefix", len(data), c.prefixLen),
		}
	}
	return data[c.prefixLen:], nil
}

// unmarshal reads one value from body. Unlike avro.Unmarshal it reports running
// out of input as an error, so truncated buffers are not accepted as partial
// records. Trailing bytes are ignored.
func (c *Codec) unmarshal(body []byte, v any) error {
	r := avro.NewReader(nil, 0).Reset(body)
	r.ReadVal(c.schema, v)
	if errors.Is(r.Error, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return r.Error
}

// Decode decodes one profile.
func (c *Codec) Decode(data []byte) (record.Profile, error) {
	body, err := c.body(data)
	if err != nil {
		return record.Profile{}, err
	}

	var profile record.Profile
	if err := c.unmarshal(body, &profile); err != nil {
		return record.Profile{}, &errspkg.DecodeError{Err: err}
	}
	return profile, nil
}

// DecodeMap decodes one event into a generic mapping keyed by field name.
func (c *Codec) DecodeMap(data []byte) (map[string]any, error) {
	body, err := c.body(data)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := c.unmarshal(body, &out); err != nil {
		return nil, &errspkg.DecodeError{Err: err}
	}
	return out, nil
}

// DecodeAll decodes every buffer or none: the first failure is returned and
// the partial result discarded.
func (c *Codec) DecodeAll(payloads [][]byte) ([]record.Profile, error) {
	profiles := make([]record.Profile, 0, len(payloads))
	for i, payload := range payloads {
		profile, err := c.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// Encode encodes profile, prepending the configured prefix.
func (c *Codec) Encode(profile record.Profile) ([]byte, error) {
	body, err := avro.Marshal(c.schema, profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if len(c.prefix) == 0 {
		return body, nil
	}
	out := make([]byte, 0, len(c.prefix)+len(body))
	out = append(out, c.prefix...)
	return append(out, body...), nil
}
