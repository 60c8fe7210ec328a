package ubigen

import (
	"fmt"

	"github.com/mtdtools/ubigen/header"
)

// VolumeType tells whether a volume's length is known up front.
type VolumeType uint8

const (
	// VolumeDynamic is a volume whose data length is not declared in advance.
	VolumeDynamic VolumeType = 1
	// VolumeStatic is a volume with a declared total length and a data
	// checksum on its final eraseblock.
	VolumeStatic VolumeType = 2
)

func (t VolumeType) String() string {
	switch t {
	case VolumeDynamic:
		return "dynamic"
	case VolumeStatic:
		return "static"
	}
	return fmt.Sprintf("VolumeType(%d)", uint8(t))
}

// VolumeGeometry describes the physical flash the image is generated for.
// Zero-valued optional fields are filled in by Normalized(); a geometry must
// be normalized before any of the derived-size methods are used.
//
// The exposed fields are informational once a build session holds the
// geometry and must not be changed.
type VolumeGeometry struct {
	// PEBSize is the size of one physical eraseblock, in bytes.
	PEBSize uint32
	// MinIOSize is the minimum input/output unit of the flash, e.g. the NAND
	// page size.
	MinIOSize uint32
	// SubPageSize is the minimum input/output unit used for headers, e.g. the
	// NAND sub-page size. Zero means MinIOSize.
	SubPageSize uint32
	// VIDHdrOffset is the offset of the VID header from the start of each
	// physical eraseblock. Zero means the second sub-page.
	VIDHdrOffset uint32
	// Alignment is the required alignment of the logical eraseblock size, in
	// bytes. Zero means 1.
	Alignment uint32
}

// Normalized returns a copy of the geometry with the optional fields
// defaulted: sub-page size falls back to the minimum I/O unit, the VID
// header offset to the second sub-page, and alignment to 1.
func (geom VolumeGeometry) Normalized() VolumeGeometry {
	if geom.SubPageSize == 0 {
		geom.SubPageSize = geom.MinIOSize
	}
	if geom.VIDHdrOffset == 0 && geom.SubPageSize > 0 {
		// Left at zero if the second sub-page is not representable; Validate
		// rejects a zero offset.
		if offset := uint64(geom.SubPageSize) * 2; offset <= 0xFFFFFFFF {
			geom.VIDHdrOffset = uint32(offset)
		}
	}
	if geom.Alignment == 0 {
		geom.Alignment = 1
	}
	return geom
}

// Validate checks a normalized geometry against the constraints of the UBI
// on-flash layout. It returns nil or a BuildError wrapping ErrBadGeometry.
func (geom VolumeGeometry) Validate() error {
	if geom.PEBSize == 0 {
		return ErrBadGeometry.WithMessage("physical eraseblock size must be positive")
	}
	if geom.MinIOSize == 0 {
		return ErrBadGeometry.WithMessage("minimum I/O unit size must be positive")
	}
	if geom.PEBSize%geom.MinIOSize != 0 {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"physical eraseblock size %d is not a multiple of the minimum I/O unit size %d",
			geom.PEBSize, geom.MinIOSize))
	}
	if geom.SubPageSize > geom.MinIOSize {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"sub-page size %d is larger than the minimum I/O unit size %d",
			geom.SubPageSize, geom.MinIOSize))
	}
	if geom.MinIOSize%geom.SubPageSize != 0 {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"minimum I/O unit size %d is not a multiple of the sub-page size %d",
			geom.MinIOSize, geom.SubPageSize))
	}
	if geom.VIDHdrOffset < header.ECHeaderSize {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"VID header at offset %d would overlap the EC header",
			geom.VIDHdrOffset))
	}
	if uint64(geom.VIDHdrOffset)+header.VIDHeaderSize > uint64(geom.PEBSize) {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"VID header at offset %d does not fit into a %d-byte physical eraseblock",
			geom.VIDHdrOffset, geom.PEBSize))
	}
	if geom.LEBSize() == 0 {
		return ErrBadGeometry.WithMessage(fmt.Sprintf(
			"no usable data area left: peb_size=%d vid_hdr_offset=%d alignment=%d",
			geom.PEBSize, geom.VIDHdrOffset, geom.Alignment))
	}
	return nil
}

// DataOffset returns the offset of volume data from the start of each
// physical eraseblock. Data follows the VID header immediately.
func (geom VolumeGeometry) DataOffset() uint32 {
	return geom.VIDHdrOffset + header.VIDHeaderSize
}

// LEBSize returns the usable payload capacity of one physical eraseblock:
// whatever remains after the headers, rounded down to the alignment.
func (geom VolumeGeometry) LEBSize() uint32 {
	usable := geom.PEBSize - geom.DataOffset()
	return usable - usable%geom.Alignment
}

// DataPad returns the number of bytes at the end of the data area that
// alignment makes unusable. This value goes into every VID header.
func (geom VolumeGeometry) DataPad() uint32 {
	return geom.PEBSize - geom.DataOffset() - geom.LEBSize()
}

// VolumeParams describes the volume the image belongs to, as opposed to the
// flash it is generated for. The zero value of the optional fields is mapped
// to the documented defaults by Normalized().
type VolumeParams struct {
	// VolumeID identifies the volume in every VID header.
	VolumeID uint32
	// Type is the volume type. Zero means VolumeDynamic.
	Type VolumeType
	// EraseCounter is the starting wear state written into every EC header.
	// It is a caller-declared value, not a per-write counter.
	EraseCounter uint64
	// UBIVersion is the format version tag stored in both headers. Zero
	// means 1.
	UBIVersion uint8
	// DataLength is the total payload size in bytes. Only meaningful for
	// static volumes, where it is required to finish the image.
	DataLength uint64
}

// Normalized returns a copy of the params with defaults applied.
func (params VolumeParams) Normalized() VolumeParams {
	if params.Type == 0 {
		params.Type = VolumeDynamic
	}
	if params.UBIVersion == 0 {
		params.UBIVersion = 1
	}
	return params
}

// Validate checks normalized params. It returns nil or a BuildError wrapping
// ErrBadVolumeParams.
func (params VolumeParams) Validate() error {
	if params.Type != VolumeDynamic && params.Type != VolumeStatic {
		return ErrBadVolumeParams.WithMessage(fmt.Sprintf(
			"unknown volume type %d", uint8(params.Type)))
	}
	if params.Type == VolumeDynamic && params.DataLength != 0 {
		return ErrBadVolumeParams.WithMessage(
			"data length is only meaningful for static volumes")
	}
	return nil
}
