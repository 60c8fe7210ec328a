package main

import (
	"flag"
	"testing"

	"github.com/mtdtools/ubigen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// testContext builds a context carrying the app's flag defaults, with the
// given flags set explicitly on top.
func testContext(t *testing.T, overrides map[string]string) *cli.Context {
	defaults := map[string]string{
		"peb-size":       "65536",
		"min-io-size":    "2048",
		"sub-page-size":  "",
		"alignment":      "1",
		"vid-hdr-offset": "0",
		"type":           "dynamic",
		"vol-id":         "0",
		"erase-counter":  "0",
		"ubi-ver":        "1",
	}

	set := flag.NewFlagSet("ubigen", flag.ContinueOnError)
	for name, value := range defaults {
		set.String(name, value, "")
	}
	for name, value := range overrides {
		require.NoError(t, set.Set(name, value))
	}
	return cli.NewContext(nil, set, nil)
}

func TestParseArgs(t *testing.T) {
	geom, params, err := parseArgs(testContext(t, map[string]string{
		"peb-size":      "128KiB",
		"min-io-size":   "0x800",
		"vol-id":        "5",
		"type":          "static",
		"erase-counter": "3",
	}))
	require.NoError(t, err)

	assert.EqualValues(t, 128*1024, geom.PEBSize)
	assert.EqualValues(t, 2048, geom.MinIOSize)
	assert.Zero(t, geom.SubPageSize, "unset sub-page size is left for normalization")
	assert.EqualValues(t, 1, geom.Alignment)
	assert.Zero(t, geom.VIDHdrOffset)

	assert.Equal(t, ubigen.VolumeStatic, params.Type)
	assert.EqualValues(t, 5, params.VolumeID)
	assert.EqualValues(t, 3, params.EraseCounter)
	assert.EqualValues(t, 1, params.UBIVersion)
}

func TestParseArgsRejectsOversizeValues(t *testing.T) {
	_, _, err := parseArgs(testContext(t, map[string]string{
		"vid-hdr-offset": "0x100000000",
	}))
	assert.ErrorContains(t, err, "does not fit into 32 bits")

	_, _, err = parseArgs(testContext(t, map[string]string{
		"peb-size": "4GiB",
	}))
	assert.ErrorContains(t, err, "does not fit into 32 bits")

	_, _, err = parseArgs(testContext(t, map[string]string{
		"ubi-ver": "300",
	}))
	assert.ErrorContains(t, err, "should fit into one byte")
}

func TestParseArgsRejectsBadType(t *testing.T) {
	_, _, err := parseArgs(testContext(t, map[string]string{
		"type": "compressed",
	}))
	assert.ErrorContains(t, err, "should be dynamic or static")
}
