package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mtdtools/ubigen"
	"github.com/mtdtools/ubigen/image"
	"github.com/mtdtools/ubigen/utilities/units"
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:  "ubigen",
		Usage: "Add UBI headers to a binary image",
		Description: "Note, the images generated by this program are not ready to be" +
			" used because they do not contain the volume table. If not sure about" +
			" one of the parameters, do not specify it and let the utility use a" +
			" default value.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "infile",
				Aliases:  []string{"i"},
				Usage:    "the input `FILE`",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "outfile",
				Aliases: []string{"o"},
				Usage:   "the output `FILE` (default is stdout)",
			},
			&cli.StringFlag{
				Name:    "peb-size",
				Aliases: []string{"b"},
				Usage: "size of the physical eraseblock of the flash this image is" +
					" created for, in `BYTES`, KiB or MiB",
				Required: true,
			},
			&cli.UintFlag{
				Name:     "vol-id",
				Aliases:  []string{"I"},
				Usage:    "volume `ID`",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "min-io-size",
				Aliases: []string{"m"},
				Usage: "minimum input/output unit size of the flash in `BYTES`, KiB" +
					" or MiB, e.g. the NAND page size",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "volume `TYPE`: dynamic or static",
				Value:   "dynamic",
			},
			&cli.StringFlag{
				Name:    "sub-page-size",
				Aliases: []string{"s"},
				Usage: "minimum input/output unit used for UBI headers in `BYTES`," +
					" KiB or MiB, e.g. the NAND sub-page size (default is the" +
					" minimum input/output unit size)",
			},
			&cli.StringFlag{
				Name:    "alignment",
				Aliases: []string{"a"},
				Usage:   "volume alignment in `BYTES`, KiB or MiB",
				Value:   "1",
			},
			&cli.StringFlag{
				Name:    "vid-hdr-offset",
				Aliases: []string{"O"},
				Usage: "`OFFSET` of the VID header from the start of the physical" +
					" eraseblock (default is the second sub-page)",
				Value: "0",
			},
			&cli.Uint64Flag{
				Name:    "erase-counter",
				Aliases: []string{"e"},
				Usage:   "the erase counter `VALUE` to put to EC headers",
			},
			&cli.UintFlag{
				Name:    "ubi-ver",
				Aliases: []string{"x"},
				Usage:   "UBI version `NUMBER` to put to EC headers",
				Value:   1,
			},
			&cli.StringFlag{
				Name: "hex-base",
				Usage: "write the image in the Intel HEX format based at `ADDR`" +
					" instead of raw bytes",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print progress information to stderr",
			},
		},
		Action: generateImage,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func generateImage(ctx *cli.Context) error {
	if ctx.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	geom, params, err := parseArgs(ctx)
	if err != nil {
		return cli.Exit(err.Error(), ubigen.ExitConfigFailure)
	}

	var hexBase uint32
	if ctx.IsSet("hex-base") {
		base, err := units.Parse(ctx.String("hex-base"))
		if err != nil || base > 0xFFFFFFFF {
			return cli.Exit(
				fmt.Sprintf("bad HEX base address %q", ctx.String("hex-base")),
				ubigen.ExitConfigFailure)
		}
		hexBase = uint32(base)
	}

	input, err := os.Open(ctx.String("infile"))
	if err != nil {
		return cli.Exit(
			fmt.Sprintf("cannot open %q: %s", ctx.String("infile"), err),
			ubigen.ExitConfigFailure)
	}
	defer input.Close()

	if params.Type == ubigen.VolumeStatic {
		info, err := input.Stat()
		if err != nil {
			return cli.Exit(
				fmt.Sprintf("cannot fetch the input file size: %s", err),
				ubigen.ExitConfigFailure)
		}
		params.DataLength = uint64(info.Size())
	}

	var destination io.WriteCloser = os.Stdout
	if path := ctx.String("outfile"); path != "" {
		destination, err = os.Create(path)
		if err != nil {
			return cli.Exit(
				fmt.Sprintf("cannot open %q: %s", path, err),
				ubigen.ExitConfigFailure)
		}
		defer destination.Close()
	}

	// In HEX mode the raw image is staged in memory so the whole of it can
	// be handed to the HEX encoder at once.
	output := io.Writer(destination)
	var staged *bytes.Buffer
	if ctx.IsSet("hex-base") {
		staged = &bytes.Buffer{}
		output = staged
	}

	builder, err := image.NewBuilder(geom, params, input, output)
	if err != nil {
		return cli.Exit(err.Error(), ubigen.ExitCode(err))
	}

	normalized := builder.Geometry()
	log.Debugf(
		"geometry: peb_size=%d vid_hdr_offset=%d leb_size=%d data_pad=%d",
		normalized.PEBSize, normalized.VIDHdrOffset,
		normalized.LEBSize(), normalized.DataPad())

	if err := builder.WriteVolume(); err != nil {
		return cli.Exit(err.Error(), ubigen.ExitCode(err))
	}
	log.Debugf(
		"wrote %d eraseblocks (%d payload bytes)",
		builder.BlocksWritten(), builder.BytesConsumed())

	if staged != nil {
		memory := gohex.NewMemory()
		if err := memory.AddBinary(hexBase, staged.Bytes()); err != nil {
			return cli.Exit(err.Error(), ubigen.ExitWriteFailure)
		}
		if err := memory.DumpIntelHex(destination, 16); err != nil {
			return cli.Exit(
				fmt.Sprintf("cannot write Intel HEX output: %s", err),
				ubigen.ExitWriteFailure)
		}
	}
	return nil
}

// parseArgs converts the flag set into geometry and volume parameters. Range
// and consistency validation beyond suffix parsing is left to the builder.
func parseArgs(ctx *cli.Context) (ubigen.VolumeGeometry, ubigen.VolumeParams, error) {
	var geom ubigen.VolumeGeometry
	var params ubigen.VolumeParams

	sizes := []struct {
		flag string
		dest *uint32
	}{
		{"peb-size", &geom.PEBSize},
		{"min-io-size", &geom.MinIOSize},
		{"sub-page-size", &geom.SubPageSize},
		{"alignment", &geom.Alignment},
		{"vid-hdr-offset", &geom.VIDHdrOffset},
	}
	for _, size := range sizes {
		if !ctx.IsSet(size.flag) && size.flag == "sub-page-size" {
			continue
		}
		value, err := units.Parse(ctx.String(size.flag))
		if err != nil {
			return geom, params, fmt.Errorf("bad --%s: %w", size.flag, err)
		}
		if value > 0xFFFFFFFF {
			return geom, params, fmt.Errorf(
				"bad --%s: %q does not fit into 32 bits", size.flag, ctx.String(size.flag))
		}
		*size.dest = uint32(value)
	}

	switch ctx.String("type") {
	case "dynamic":
		params.Type = ubigen.VolumeDynamic
	case "static":
		params.Type = ubigen.VolumeStatic
	default:
		return geom, params, fmt.Errorf(
			"bad volume type %q: should be dynamic or static", ctx.String("type"))
	}

	params.VolumeID = uint32(ctx.Uint("vol-id"))
	params.EraseCounter = ctx.Uint64("erase-counter")
	if ctx.Uint("ubi-ver") > 0xFF {
		return geom, params, fmt.Errorf(
			"bad UBI version %d: should fit into one byte", ctx.Uint("ubi-ver"))
	}
	params.UBIVersion = uint8(ctx.Uint("ubi-ver"))
	return geom, params, nil
}
