package regfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIntRegNamesByWidth(t *testing.T) {
	require.Equal(t, "w3", NewIntReg(3, 4).String())
	require.Equal(t, "x3", NewIntReg(3, 8).String())
}

func TestNewIntRegReportsIdAndType(t *testing.T) {
	r := NewIntReg(5, 8)
	require.Equal(t, 5, r.Id())
	require.Equal(t, IntType, r.Type())
}
