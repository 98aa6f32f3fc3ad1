package avrocodec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	"github.com/drblury/avroflow/internal/runtime/record"
	"github.com/drblury/avroflow/schemas"
)

func strPtr(s string) *string { return &s }

func exampleProfile() record.Profile {
	return record.Profile{
		ID:       1,
		Name:     "John Doe",
		Email:    "john.doe@example.com",
		Age:      30,
		Gender:   "male",
		IsActive: true,
		Address: record.Address{
			Street:  "123 Main St",
			City:    "Anytown",
			State:   "CA",
			Zip:     "12345",
			Country: "USA",
		},
		History: &record.History{
			LastLogin: strPtr("2023-10-01T12:34:56Z"),
			PurchaseHistory: []record.Purchase{
				{ItemID: 101, ItemName: "Laptop", PurchaseDate: "2023-09-15T10:00:00Z", Amount: 999},
				{ItemID: 102, ItemName: "Mouse", PurchaseDate: "2023-09-16T11:30:00Z", Amount: 25},
			},
		},
	}
}

func newCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := New(schemas.Profile, opts...)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newCodec(t)
	original := exampleProfile()

	encoded, err := c.Encode(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestRoundTripWithoutHistory(t *testing.T) {
	c := newCodec(t)
	original := exampleProfile()
	original.History = nil

	encoded, err := c.Encode(original)
	require.NoError(t, err)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded.History)
	assert.Equal(t, original, decoded)
}

func TestRoundTripNullLastLogin(t *testing.T) {
	c := newCodec(t)
	original := exampleProfile()
	original.History.LastLogin = nil

	encoded, err := c.Encode(original)
	require.NoError(t, err)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded.History)
	assert.Nil(t, decoded.History.LastLogin)
	assert.False(t, decoded.HasLastLogin())
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := newCodec(t)
	first, err := c.Encode(exampleProfile())
	require.NoError(t, err)
	second, err := c.Encode(exampleProfile())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPrefixIsStripped(t *testing.T) {
	prefix := ConfluentPrefix(42)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x2a}, prefix)

	withPrefix := newCodec(t, WithPrefix(prefix))
	assert.Equal(t, ConfluentPrefixLen, withPrefix.PrefixLen())

	encoded, err := withPrefix.Encode(exampleProfile())
	require.NoError(t, err)
	assert.Equal(t, prefix, encoded[:ConfluentPrefixLen])

	plain, err := newCodec(t).Encode(exampleProfile())
	require.NoError(t, err)
	assert.Equal(t, plain, encoded[ConfluentPrefixLen:])

	stripping := newCodec(t, WithPrefixLen(ConfluentPrefixLen))
	decoded, err := stripping.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, exampleProfile(), decoded)
}

func TestDecodeShorterThanPrefix(t *testing.T) {
	c := newCodec(t, WithPrefixLen(ConfluentPrefixLen))
	_, err := c.Decode([]byte{0x00, 0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errspkg.ErrDecode))
}

func TestDecodeGarbage(t *testing.T) {
	c := newCodec(t)
	encoded, err := c.Encode(exampleProfile())
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"empty":     {},
		"truncated": encoded[:len(encoded)/2],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(data)
			require.Error(t, err)

			var decodeErr *errspkg.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, errspkg.KindDecode, errspkg.Kind(err))
		})
	}
}

func TestDecodeAll(t *testing.T) {
	c := newCodec(t)
	good, err := c.Encode(exampleProfile())
	require.NoError(t, err)

	profiles, err := c.DecodeAll([][]byte{good, good})
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	profiles, err = c.DecodeAll([][]byte{good, good[:3], good})
	require.Error(t, err)
	assert.Nil(t, profiles)
	assert.Contains(t, err.Error(), "message 1")
	assert.True(t, errors.Is(err, errspkg.ErrDecode))
}

func TestDecodeMap(t *testing.T) {
	c := newCodec(t)
	encoded, err := c.Encode(exampleProfile())
	require.NoError(t, err)

	m, err := c.DecodeMap(encoded)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", m["name"])
	assert.Contains(t, m, "history")

	_, err = c.DecodeMap(nil)
	assert.Error(t, err)
}

func TestNewRejectsBadSchemas(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, errspkg.ErrSchemaRequired)

	_, err = New(`{"type": "record"`)
	assert.Error(t, err)

	_, err = New(schemas.Profile, WithPrefixLen(-1))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.avsc")
	require.NoError(t, os.WriteFile(path, []byte(schemas.Profile), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, c.Schema())

	_, err = Load(filepath.Join(t.TempDir(), "missing.avsc"))
	assert.Error(t, err)
}

func TestFingerprintIsStable(t *testing.T) {
	a := newCodec(t)
	b := newCodec(t, WithPrefixLen(ConfluentPrefixLen))

	assert.Len(t, a.Fingerprint(), 16)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
