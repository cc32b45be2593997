package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32(t *testing.T) {
	tests := []struct {
		in   uint32
		want []byte
	}{
		{7, []byte{0x07, 0x00, 0x00, 0x00}},
		{0, []byte{0x00, 0x00, 0x00, 0x00}},
		{0x1a, []byte{0x1a, 0x00, 0x00, 0x00}},
		{0x01020304, []byte{0x04, 0x03, 0x02, 0x01}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Uint32(tt.in))
	}

	t.Run("deterministic", func(t *testing.T) {
		first := Uint32(7)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, Uint32(7))
		}
	})
}

func TestHex32(t *testing.T) {
	assert.Equal(t, "07000000", Hex32(7))
	assert.Equal(t, "0E000000", Hex32(14))
	assert.Equal(t, "04030201", Hex32(0x01020304))
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		want    uint32
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "port index", in: 7, want: 7},
		{name: "largest", in: math.MaxUint32, want: math.MaxUint32},
		{name: "negative", in: -1, wantErr: true},
		{name: "too large", in: math.MaxUint32 + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Index(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaddedName(t *testing.T) {
	assert.Equal(t, "SS01", PaddedName("SS", 1, 4))
	assert.Equal(t, "PRT3", PaddedName("PRT", 3, 4))
	assert.Equal(t, "HS12", PaddedName("HS", 12, 4))
	assert.Equal(t, "PRT12", PaddedName("PRT", 12, 4))
}
