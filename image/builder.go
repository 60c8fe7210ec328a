// Package image implements the eraseblock-by-eraseblock construction of a
// raw UBI flash image. A Builder owns one construction session: it chops the
// input stream into logical-eraseblock-sized chunks and emits one physical
// eraseblock per chunk, each carrying an EC header, a VID header, the
// payload, and zero padding out to the physical eraseblock boundary.
//
// Note that the images produced here do not contain a volume table; turning
// them into a complete flash image is a separate concern.
package image

import (
	"fmt"
	"io"

	"github.com/mtdtools/ubigen"
	"github.com/mtdtools/ubigen/header"
)

type sessionState int

const (
	stateInit sessionState = iota
	stateWriting
	stateDone
	stateFailed
)

// Builder drives one image-construction session. It borrows the input and
// output streams from the caller for the duration of WriteVolume and never
// closes them. A Builder must not be shared between goroutines.
type Builder struct {
	geom   ubigen.VolumeGeometry
	params ubigen.VolumeParams
	input  io.Reader
	output io.Writer

	state sessionState
	// lnum is the zero-based logical eraseblock number of the next block to
	// emit; sqnum is the session-wide sequence counter. Both advance by one
	// per emitted block and are never reset mid-image.
	lnum     uint32
	sqnum    uint64
	consumed uint64
}

// NewBuilder validates the geometry and volume parameters and returns a
// Builder ready to write one complete volume. Streams are borrowed, not
// owned: the caller opens and closes them.
func NewBuilder(
	geom ubigen.VolumeGeometry,
	params ubigen.VolumeParams,
	input io.Reader,
	output io.Writer,
) (*Builder, error) {
	geom = geom.Normalized()
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	params = params.Normalized()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		geom:   geom,
		params: params,
		input:  input,
		output: output,
	}, nil
}

// Geometry returns the normalized geometry the session was built with.
func (b *Builder) Geometry() ubigen.VolumeGeometry {
	return b.geom
}

// BlocksWritten returns the number of physical eraseblocks emitted so far.
func (b *Builder) BlocksWritten() uint32 {
	return b.lnum
}

// BytesConsumed returns the number of payload bytes read from the input so
// far. On an input-contract failure this is the count the error reports.
func (b *Builder) BytesConsumed() uint64 {
	return b.consumed
}

// WriteVolume reads the entire input and writes the complete image to the
// output. It can be called exactly once per Builder: afterwards the session
// is finished, successfully or not, and further calls fail. On failure,
// whatever was already written stays in the output; the caller owns
// truncation and cleanup.
func (b *Builder) WriteVolume() error {
	if b.state != stateInit {
		return ubigen.ErrSessionFinished
	}
	b.state = stateWriting

	leb := b.geom.LEBSize()
	payload := make([]byte, leb)
	peb := make([]byte, b.geom.PEBSize)

	// The EC header is identical for every block of the session.
	ecBytes := header.EncodeEC(header.EC{
		Version:      b.params.UBIVersion,
		EraseCounter: b.params.EraseCounter,
		VIDHdrOffset: b.geom.VIDHdrOffset,
		DataOffset:   b.geom.DataOffset(),
	})

	volType := header.VolTypeDynamic
	if b.params.Type == ubigen.VolumeStatic {
		volType = header.VolTypeStatic
	}

	for {
		want := uint64(leb)
		if b.params.Type == ubigen.VolumeStatic {
			if remaining := b.params.DataLength - b.consumed; remaining < want {
				want = remaining
			}
			if want == 0 {
				break
			}
		}

		n, err := io.ReadFull(b.input, payload[:want])
		switch err {
		case nil, io.ErrUnexpectedEOF:
			// A short final block is fine; the static length contract is
			// checked below.
		case io.EOF:
			n = 0
		default:
			return b.fail(ubigen.ErrIOFailed.Wrap(err))
		}

		if n == 0 && b.params.Type == ubigen.VolumeDynamic {
			break
		}
		if b.params.Type == ubigen.VolumeStatic && uint64(n) < want {
			return b.fail(ubigen.ErrInputTooShort.WithMessage(fmt.Sprintf(
				"consumed %d of %d declared bytes",
				b.consumed+uint64(n), b.params.DataLength)))
		}

		vid := header.VID{
			Version:  b.params.UBIVersion,
			VolType:  volType,
			Compat:   0,
			VolumeID: b.params.VolumeID,
			Lnum:     b.lnum,
			DataPad:  b.geom.DataPad(),
			Sqnum:    b.sqnum,
		}
		if b.params.Type == ubigen.VolumeStatic &&
			b.consumed+uint64(n) == b.params.DataLength {
			vid.DataSize = uint32(n)
			vid.UsedEBs = b.lnum + 1
			vid.DataCRC = header.Checksum(payload[:n])
		}

		for i := range peb {
			peb[i] = 0
		}
		copy(peb, ecBytes)
		copy(peb[b.geom.VIDHdrOffset:], header.EncodeVID(vid))
		copy(peb[b.geom.DataOffset():], payload[:n])

		if _, err := b.output.Write(peb); err != nil {
			return b.fail(ubigen.ErrIOFailed.Wrap(err))
		}

		b.consumed += uint64(n)
		b.lnum++
		b.sqnum++
	}

	b.state = stateDone
	return nil
}

func (b *Builder) fail(err error) error {
	b.state = stateFailed
	return err
}
