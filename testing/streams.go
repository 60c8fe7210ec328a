package testing

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewOutputImage returns a fixed-size in-memory stream for capturing an
// emitted image, along with the backing slice for inspection.
//
//   - The stream's size is fixed to `pebSize * totalPEBs`; writing past the
//     end of it triggers an error, which makes oversized output fail tests
//     instead of silently growing.
//   - The backing slice aliases the stream, so it reflects everything written
//     so far.
func NewOutputImage(t *testing.T, pebSize, totalPEBs uint) (io.ReadWriteSeeker, []byte) {
	require.Greater(t, pebSize, uint(0), "PEB size must be positive")

	imageBytes := make([]byte, pebSize*totalPEBs)
	return bytesextra.NewReadWriteSeeker(imageBytes), imageBytes
}

// PayloadBytes returns n deterministic pseudo-random bytes to use as volume
// payload. The sequence is fixed across runs so failures are reproducible.
func PayloadBytes(n int) []byte {
	rng := rand.New(rand.NewSource(0x55424923))
	payload := make([]byte, n)
	rng.Read(payload)
	return payload
}

// SplitPEBs chops an emitted image into its physical-eraseblock chunks,
// failing the test if the image is not an exact multiple of the PEB size.
func SplitPEBs(t *testing.T, image []byte, pebSize uint) [][]byte {
	require.Greater(t, pebSize, uint(0), "PEB size must be positive")
	require.Zero(
		t,
		uint(len(image))%pebSize,
		"image size %d is not a multiple of the PEB size %d", len(image), pebSize)

	chunks := make([][]byte, 0, uint(len(image))/pebSize)
	for offset := uint(0); offset < uint(len(image)); offset += pebSize {
		chunks = append(chunks, image[offset:offset+pebSize])
	}
	return chunks
}
