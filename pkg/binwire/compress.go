package binwire

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxBody caps decompressed bodies so a small frame cannot claim gigabytes.
const maxBody = 1 << 30

var (
	zenc     *zstd.Encoder
	zdec     *zstd.Decoder
	zencErr  error
	zdecErr  error
	zencOnce sync.Once
	zdecOnce sync.Once
)

func compress(raw []byte) ([]byte, error) {
	zencOnce.Do(func() {
		zenc, zencErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	if zencErr != nil {
		return nil, zencErr
	}
	return zenc.EncodeAll(raw, nil), nil
}

func decompress(body []byte) ([]byte, error) {
	zdecOnce.Do(func() {
		zdec, zdecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBody))
	})
	if zdecErr != nil {
		return nil, zdecErr
	}
	return zdec.DecodeAll(body, nil)
}
