//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKrb5TokenPackUnpackRoundTrip(t *testing.T) {
	tok := &krb5Token{flags: 1, maxBufferSize: 65536}
	packed := tok.pack()
	require.Len(t, packed, 4)

	var decoded krb5Token
	require.NoError(t, decoded.unpack(packed))
	require.Equal(t, tok.flags, decoded.flags)
	require.Equal(t, tok.maxBufferSize, decoded.maxBufferSize)
}

func TestKrb5TokenUnpackRejectsShortInput(t *testing.T) {
	var tok krb5Token
	require.Error(t, tok.unpack([]byte{1, 2}))
}

func TestWrapUnwrapGSSAPITokenRoundTrip(t *testing.T) {
	inner := []byte("AP-REQ-placeholder-bytes")
	wrapped := wrapGSSAPIToken(inner)

	require.Equal(t, byte(gssAPIGenericTag), wrapped[0])

	unwrapped := unwrapGSSAPIToken(wrapped)
	require.Equal(t, inner, unwrapped)
}

func TestWrapGSSAPITokenLongBody(t *testing.T) {
	inner := make([]byte, 300)
	for i := range inner {
		inner[i] = byte(i)
	}
	wrapped := wrapGSSAPIToken(inner)
	unwrapped := unwrapGSSAPIToken(wrapped)
	require.Equal(t, inner, unwrapped)
}

func TestAsn1LengthBytesShortForm(t *testing.T) {
	require.Equal(t, []byte{42}, asn1LengthBytes(42))
}

func TestAsn1LengthBytesLongForm(t *testing.T) {
	encoded := asn1LengthBytes(300)
	require.Equal(t, byte(0x82), encoded[0])
	require.Len(t, encoded, 3)
}
