package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	EncodingPlain = "plain"
	EncodingGzip  = "gzip"
	EncodingZstd  = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decompress sniffs the first bytes of r and, for gzip or zstd data,
// returns a reader over the decompressed stream. Anything else is returned
// unchanged along with EncodingPlain. The returned closer releases decoder
// resources and is never nil.
func Decompress(r io.Reader) (io.Reader, string, func(), error) {
	br := bufio.NewReader(r)
	head := sniff(br)

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", func() {}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		zr.Multistream(true)
		return zr, EncodingGzip, func() { _ = zr.Close() }, nil

	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", func() {}, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr, EncodingZstd, zr.Close, nil

	default:
		return br, EncodingPlain, func() {}, nil
	}
}

// sniff peeks only as far as the first byte requires, so a live stream that
// starts with a short plain-text line is never held back.
func sniff(br *bufio.Reader) []byte {
	first, err := br.Peek(1)
	if err != nil {
		return nil
	}
	switch first[0] {
	case gzipMagic[0]:
		head, _ := br.Peek(len(gzipMagic))
		return head
	case zstdMagic[0]:
		head, _ := br.Peek(len(zstdMagic))
		return head
	default:
		return first
	}
}
