package imageio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"iris-caller/pkg/config"
)

func TestDecodeKeRequiresCycles(t *testing.T) {
	_, err := DecodeKe(nil, config.Default())
	require.ErrorIs(t, err, ErrNoCycles)
}

func TestDecodeLeeRequiresCycles(t *testing.T) {
	_, err := DecodeLee(nil, config.Default())
	require.ErrorIs(t, err, ErrNoCycles)
}

func TestDecodeEngRequiresGroupsOfFour(t *testing.T) {
	_, err := DecodeEng([]string{"r1.tif", "r2.tif"}, config.Default())
	require.ErrorIs(t, err, ErrChannelGrouping)

	_, err = DecodeEng(nil, config.Default())
	require.ErrorIs(t, err, ErrNoCycles)
}

func TestReadGrayMissingFile(t *testing.T) {
	_, err := ReadGray("does-not-exist.tif")
	require.Error(t, err)
}
