package wire_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/wire"
)

func TestFrameRoundTripSmall(t *testing.T) {
	payload := []byte("hello world")
	var buf bytes.Buffer
	require.NoError(t, wire.EncodeFrame(&buf, payload))
	require.Equal(t, len(payload)+4, buf.Len())

	got, err := wire.DecodeFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameCompressesAboveThreshold(t *testing.T) {
	payload := []byte(strings.Repeat("a", wire.CompressThreshold+1))
	var buf bytes.Buffer
	require.NoError(t, wire.EncodeFrame(&buf, payload))
	require.Less(t, buf.Len(), len(payload))

	got, err := wire.DecodeFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameBelowThresholdIsUncompressed(t *testing.T) {
	payload := make([]byte, wire.CompressThreshold-1)
	var buf bytes.Buffer
	require.NoError(t, wire.EncodeFrame(&buf, payload))
	require.Equal(t, len(payload)+4, buf.Len())
}

func TestDecodeFrameShortPayloadErrors(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, 0x10}) // declares 16 bytes, writes none
	_, err := wire.DecodeFrame(&buf)
	require.Error(t, err)
}

func TestValueRawRoundTrip(t *testing.T) {
	cases := []wire.Value{
		wire.StringValue("hello"),
		wire.BytesValue([]byte{1, 2, 3}),
		wire.IntValue(-42),
		wire.FloatValue(3.25),
		wire.BoolValue(true),
		{},
	}
	for _, v := range cases {
		raw := v.ToRaw()
		got, err := wire.ValueFromRaw(raw)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestMessageEncodeDecodeIdentity(t *testing.T) {
	req := &wire.CommandRequest{Hset: &wire.HsetRequest{Table: "t1", Pair: wire.Kvpair{Key: "k", Value: wire.StringValue("v")}}}
	b, err := req.Marshal()
	require.NoError(t, err)
	got, err := wire.UnmarshalRequest(b)
	require.NoError(t, err)
	require.Equal(t, req.Hset.Table, got.Hset.Table)
	require.Equal(t, req.Hset.Pair, got.Hset.Pair)

	resp := wire.OK(wire.IntValue(7))
	rb, err := resp.Marshal()
	require.NoError(t, err)
	gotResp, err := wire.UnmarshalResponse(rb)
	require.NoError(t, err)
	require.Equal(t, resp.Status, gotResp.Status)
	require.Equal(t, resp.Values, gotResp.Values)
}

func TestSentinelResponse(t *testing.T) {
	var resp wire.CommandResponse
	require.True(t, resp.IsSentinel())
	ok := wire.OK()
	require.False(t, ok.IsSentinel())
}
