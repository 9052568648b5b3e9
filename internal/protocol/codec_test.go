package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStartEvent(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"start","callSid":"CA1","streamSid":"ST1","outputSampleRate":24000}`))
	require.NoError(t, err)
	start, ok := msg.(StartEvent)
	require.True(t, ok)
	assert.Equal(t, "CA1", start.CallSid)
	assert.Equal(t, "ST1", start.StreamSid)
	assert.Equal(t, 24000, start.OutputSampleRate)
}

func TestDecodeAudioChunkRequiresAudio(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"audio_chunk"}`))
	require.Error(t, err)
	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, KindProtocol, protoErr.Kind)
}

func TestDecodeAudioChunkOK(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"audio_chunk","audio":"Zm9v"}`))
	require.NoError(t, err)
	chunk, ok := msg.(AudioChunkEvent)
	require.True(t, ok)
	assert.Equal(t, "Zm9v", chunk.Audio)
}

func TestDecodeCommitEvent(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"commit","reason":"dtmf"}`))
	require.NoError(t, err)
	commit, ok := msg.(CommitEvent)
	require.True(t, ok)
	assert.Equal(t, "dtmf", commit.Reason)
}

func TestDecodeTextRequiresNonEmpty(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"text","text":""}`))
	assert.Error(t, err)
}

func TestDecodeEndEvent(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"end"}`))
	require.NoError(t, err)
	_, ok := msg.(EndEvent)
	assert.True(t, ok)
}

func TestDecodeUnknownTypeIsProtocolError(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"bogus"}`))
	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, KindProtocol, protoErr.Kind)
}

func TestDecodeMissingTypeIsProtocolError(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeReadyEvent(t *testing.T) {
	data, err := EncodeServerMessage(ReadyEvent{InputSampleRate: 16000, OutputSampleRate: 24000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ready","inputSampleRate":16000,"outputSampleRate":24000}`, string(data))
}

func TestEncodeAudioDeltaEvent(t *testing.T) {
	data, err := EncodeServerMessage(AudioDeltaEvent{Audio: "abcd"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"audio_delta","audio":"abcd"}`, string(data))
}

func TestEncodeResponseCompletedEvent(t *testing.T) {
	data, err := EncodeServerMessage(ResponseCompletedEvent{ResponseID: "resp-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"response_completed","responseId":"resp-1"}`, string(data))
}

func TestEncodeErrorEvent(t *testing.T) {
	data, err := EncodeServerMessage(ErrorEvent{Error: "backend connection closed"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","error":"backend connection closed"}`, string(data))
}

func TestEncodeClientStartEvent(t *testing.T) {
	data, err := EncodeClientMessage(StartEvent{CallSid: "CA1", OutputSampleRate: 24000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start","callSid":"CA1","outputSampleRate":24000}`, string(data))
}

func TestEncodeClientAudioChunk(t *testing.T) {
	data, err := EncodeClientMessage(AudioChunkEvent{Audio: "Zm9v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"audio_chunk","audio":"Zm9v"}`, string(data))
}

func TestEncodeClientCommit(t *testing.T) {
	data, err := EncodeClientMessage(CommitEvent{Reason: "dtmf"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"commit","reason":"dtmf"}`, string(data))
}

func TestDecodeServerReadyEvent(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"type":"ready","inputSampleRate":16000,"outputSampleRate":24000}`))
	require.NoError(t, err)
	ready, ok := msg.(ReadyEvent)
	require.True(t, ok)
	assert.Equal(t, 16000, ready.InputSampleRate)
	assert.Equal(t, 24000, ready.OutputSampleRate)
}

func TestDecodeServerResponseCompleted(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"type":"response_completed","responseId":"r1"}`))
	require.NoError(t, err)
	rc, ok := msg.(ResponseCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "r1", rc.ResponseID)
}

func TestDecodeServerUnknownType(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{"type":"bogus"}`))
	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr))
}

func TestProtocolErrorMessage(t *testing.T) {
	err := newProtocolError("bad field %s", "audio")
	assert.Equal(t, "protocol: bad field audio", err.Error())
}
