package source

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietlog/internal/correlation"
	"quietlog/internal/logger"
)

const sample = "{\"trace_id\":\"a\",\"level\":\"info\"}\n{\"trace_id\":\"a\",\"level\":\"error\"}\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		name         string
		input        []byte
		wantEncoding string
	}{
		{name: "plain", input: []byte(sample), wantEncoding: EncodingPlain},
		{name: "gzip", input: gzipped(t, sample), wantEncoding: EncodingGzip},
		{name: "zstd", input: zstded(t, sample), wantEncoding: EncodingZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, encoding, closeFn, err := Decompress(bytes.NewReader(tt.input))
			require.NoError(t, err)
			defer closeFn()

			assert.Equal(t, tt.wantEncoding, encoding)
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(out))
		})
	}
}

func TestDecompress_ShortAndEmptyInput(t *testing.T) {
	for _, input := range []string{"", "x", "{}"} {
		r, encoding, closeFn, err := Decompress(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, EncodingPlain, encoding)

		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, input, string(out))
		closeFn()
	}
}

func TestDecompress_ConcatenatedGzipMembers(t *testing.T) {
	input := append(gzipped(t, "one\n"), gzipped(t, "two\n")...)

	r, _, closeFn, err := Decompress(bytes.NewReader(input))
	require.NoError(t, err)
	defer closeFn()

	sink := &recordingSink{}
	require.NoError(t, NewLineSource("stdin", r, sink, logger.NopLogger()).Run())

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, "one", events[0].Line)
	assert.Equal(t, "two", events[1].Line)
	assert.Equal(t, correlation.EventShutdown, events[2].Kind)
}
