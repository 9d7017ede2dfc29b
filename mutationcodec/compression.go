package mutationcodec

import (
	"errors"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Size tiers and flag bytes mirror the teacher's compression.go: small
// envelopes aren't worth the CPU, medium ones favor snappy's speed, and
// only large patch payloads (e.g. a patch rewriting a big embedded map)
// pay for zstd's better ratio.
const (
	thresholdSmall  = 1024
	thresholdMedium = 10 * 1024

	flagUncompressed = byte(0)
	flagSnappy       = byte(1)
	flagZstd         = byte(2)
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}

func compress(data []byte) []byte {
	n := len(data)

	if n < thresholdSmall {
		return tagged(flagUncompressed, data)
	}

	if n < thresholdMedium {
		if c := snappy.Encode(nil, data); len(c) < n {
			return tagged(flagSnappy, c)
		}
		return tagged(flagUncompressed, data)
	}

	if c := zstdEncoder.EncodeAll(data, nil); len(c) < n {
		return tagged(flagZstd, c)
	}
	return tagged(flagUncompressed, data)
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("mutationcodec: empty data")
	}
	flag, payload := data[0], data[1:]
	switch flag {
	case flagUncompressed:
		return payload, nil
	case flagSnappy:
		return snappy.Decode(nil, payload)
	case flagZstd:
		return zstdDecoder.DecodeAll(payload, nil)
	default:
		return nil, errors.New("mutationcodec: unknown compression flag")
	}
}

func tagged(flag byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, flag)
	out = append(out, payload...)
	return out
}
