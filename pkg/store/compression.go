package store

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// Codec identifies the per-chunk compression algorithm of a dataset.
// Every chunk is compressed independently so row ranges can be read
// without touching the rest of the file.
type Codec string

const (
	// CodecNone stores chunks uncompressed.
	CodecNone Codec = "none"
	// CodecZstd uses zstandard, the default: best ratio at good speed.
	CodecZstd Codec = "zstd"
	// CodecGzip uses gzip for wide compatibility.
	CodecGzip Codec = "gzip"
	// CodecLZ4 uses lz4 when speed matters more than ratio.
	CodecLZ4 Codec = "lz4"
)

// ParseCodec converts a codec name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case CodecNone, CodecZstd, CodecGzip, CodecLZ4:
		return Codec(name), nil
	default:
		return "", genoerrors.Newf(genoerrors.ErrorTypeConfig, "unknown codec %q", name)
	}
}

var (
	zstdEncoderOnce sync.Once
	zstdEncoder     *zstd.Encoder
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
)

func getZstdEncoder() *zstd.Encoder {
	zstdEncoderOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil)
	})
	return zstdEncoder
}

func getZstdDecoder() *zstd.Decoder {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, _ = zstd.NewReader(nil)
	})
	return zstdDecoder
}

// compress compresses data with the codec.
func compress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecZstd:
		return getZstdEncoder().EncodeAll(data, make([]byte, 0, len(data)/4)), nil
	case CodecGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecLZ4:
		var buf bytes.Buffer
		lw := lz4.NewWriter(&buf)
		if _, err := lw.Write(data); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, genoerrors.Newf(genoerrors.ErrorTypeConfig, "unknown codec %q", codec)
	}
}

// decompress decompresses data with the codec. expectedSize is the
// uncompressed chunk size recorded in the index, used to pre-size buffers
// and to detect truncated chunks.
func decompress(codec Codec, data []byte, expectedSize int) ([]byte, error) {
	var out []byte
	switch codec {
	case CodecNone:
		out = data
	case CodecZstd:
		decoded, err := getZstdDecoder().DecodeAll(data, make([]byte, 0, expectedSize))
		if err != nil {
			return nil, err
		}
		out = decoded
	case CodecGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		decoded, err := io.ReadAll(gr)
		if cerr := gr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		out = decoded
	case CodecLZ4:
		lr := lz4.NewReader(bytes.NewReader(data))
		decoded, err := io.ReadAll(lr)
		if err != nil {
			return nil, err
		}
		out = decoded
	default:
		return nil, genoerrors.Newf(genoerrors.ErrorTypeConfig, "unknown codec %q", codec)
	}

	if len(out) != expectedSize {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData,
			"chunk decompressed to %d bytes, expected %d", len(out), expectedSize)
	}
	return out, nil
}
