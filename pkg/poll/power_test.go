package poll

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func xpLevel(t *testing.T, s string) *big.Float {
	t.Helper()
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		t.Fatalf("bad xp literal %q: %v", s, err)
	}
	return f
}

func TestPowerForXP(t *testing.T) {
	cases := []struct {
		name  string
		xp    string
		power int64
	}{
		{"zero", "0", 1},
		{"below lowest tier", "999999", 1},
		{"exactly 1e6", "1e6", 2},
		{"above 1e6", "5000000", 2},
		{"exactly 1e12", "1e12", 5},
		{"between 1e12 and 1e24", "1e20", 5},
		{"exactly 1e24", "1e24", 10},
		{"exactly 1e48", "1e48", 25},
		{"between 1e48 and 1e120", "1e100", 25},
		{"exactly 1e120", "1e120", 50},
		{"exactly 1e168", "1e168", 100},
		{"beyond the top tier", "1e200", 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.power, PowerForXP(xpLevel(t, tc.xp)))
		})
	}
}

func TestPowerForXPNil(t *testing.T) {
	assert.Equal(t, int64(1), PowerForXP(nil))
}

// 1e168 overflows float64 by hundreds of orders of magnitude; the big.Float
// tier table must still distinguish it from 1e120.
func TestPowerForXPBeyondFloat64(t *testing.T) {
	huge := xpLevel(t, "123456789e160")
	assert.Equal(t, int64(100), PowerForXP(huge))

	justUnder := xpLevel(t, "9.999e167")
	assert.Equal(t, int64(50), PowerForXP(justUnder))
}
