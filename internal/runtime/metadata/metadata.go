// Package metadata holds the string headers carried alongside a message.
package metadata

import (
	"maps"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata is the set of headers of one event. Methods never modify the
// receiver.
type Metadata map[string]string

// New builds Metadata from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Clone returns a shallow copy, never nil.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// With returns a copy holding key=value.
func (m Metadata) With(key, value string) Metadata {
	out := make(Metadata, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}

// WithAll returns a copy with entries applied on top.
func (m Metadata) WithAll(entries Metadata) Metadata {
	out := make(Metadata, len(m)+len(entries))
	maps.Copy(out, m)
	maps.Copy(out, entries)
	return out
}

// ProducedAt parses KeyProducedAt. ok is false when the key is missing or
// malformed.
func (m Metadata) ProducedAt() (t time.Time, ok bool) {
	raw, found := m[KeyProducedAt]
	if !found {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	return t, err == nil
}

// FromWatermill copies Watermill message metadata.
func FromWatermill(md message.Metadata) Metadata {
	out := make(Metadata, len(md))
	maps.Copy(out, md)
	return out
}

// ToWatermill copies metadata into a Watermill map.
func ToWatermill(md Metadata) message.Metadata {
	out := make(message.Metadata, len(md))
	maps.Copy(out, md)
	return out
}
