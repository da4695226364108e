package near_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

func TestParseNearAmount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			amount   string
			expected string
		}{
			{"0.1", "100000000000000000000000"},
			{"5", "5000000000000000000000000"},
			{"1,000", "1000000000000000000000000000"},
			{".5", "500000000000000000000000"},
			{"0.000000000000000000000001", "1"},
			{" 2.25 ", "2250000000000000000000000"},
		}
		for _, f := range fixtures {
			yocto, err := near.ParseNearAmount(f.amount)
			require.NoError(t, err)
			require.Equal(t, f.expected, yocto.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []string{
			"", "-1", "1.2.3", "abc", "1e5", "0.0000000000000000000000001",
		}
		for _, amount := range fixtures {
			_, err := near.ParseNearAmount(amount)
			require.Error(t, err, amount)
		}
	})
}

func TestFormatNearAmount(t *testing.T) {
	fixtures := []struct {
		yocto    string
		expected string
	}{
		{"0", "0"},
		{"1", "0.000000000000000000000001"},
		{"100000000000000000000000", "0.1"},
		{"5000000000000000000000000", "5"},
		{"1234500000000000000000000", "1.2345"},
		{"-2500000000000000000000000", "-2.5"},
	}
	for _, f := range fixtures {
		yocto, ok := new(big.Int).SetString(f.yocto, 10)
		require.True(t, ok)
		require.Equal(t, f.expected, near.FormatNearAmount(yocto))
	}
	require.Equal(t, "0", near.FormatNearAmount(nil))

	amount := "12.000000000000000000000345"
	yocto, err := near.ParseNearAmount(amount)
	require.NoError(t, err)
	require.Equal(t, amount, near.FormatNearAmount(yocto))
}

func TestParseYoctoAmount(t *testing.T) {
	yocto, err := near.ParseYoctoAmount("1250000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "0.00125", near.FormatNearAmount(yocto))

	for _, amount := range []string{"", "-1", "1.5", "abc"} {
		_, err := near.ParseYoctoAmount(amount)
		require.Error(t, err, amount)
	}
}
