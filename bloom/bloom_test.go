package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(0, 0.01)
	require.NotNil(t, err)

	_, err = New(100, 0)
	require.NotNil(t, err)
	_, err = New(100, 1)
	require.NotNil(t, err)
	_, err = New(100, 1.5)
	require.NotNil(t, err)
	_, err = New(100, -0.1)
	require.NotNil(t, err)

	f, err := New(100, 0.01)
	require.Nil(t, err)
	require.Greater(t, f.Bits(), uint64(0))
	require.Greater(t, f.K(), uint64(0))
}

func TestNoFalseNegatives(t *testing.T) {
	f, err := New(1000, 0.01)
	require.Nil(t, err)

	for i := 0; i < 1000; i++ {
		f.Add(fmt.Sprintf("key-%d", i))
	}
	for i := 0; i < 1000; i++ {
		require.True(t, f.Test(fmt.Sprintf("key-%d", i)))
	}
	require.Equal(t, uint64(1000), f.Count())
}

func TestFalsePositivesBounded(t *testing.T) {
	f, err := New(10000, 0.01)
	require.Nil(t, err)

	for i := 0; i < 10000; i++ {
		f.Add(fmt.Sprintf("member-%d", i))
	}
	falsePositives := 0
	for i := 0; i < 10000; i++ {
		if f.Test(fmt.Sprintf("stranger-%d", i)) {
			falsePositives++
		}
	}
	// sized for 1%, allow generous slack to keep the test deterministic
	require.Less(t, falsePositives, 500)
	require.Greater(t, f.EstimatedFillRatio(), 0.0)
	require.Greater(t, f.EstimatedFalsePositiveRate(), 0.0)
	require.Less(t, f.EstimatedFalsePositiveRate(), 0.1)
}

func TestAddIdempotent(t *testing.T) {
	f, err := New(100, 0.01)
	require.Nil(t, err)

	f.Add("same")
	ratio := f.EstimatedFillRatio()
	f.Add("same")
	require.Equal(t, ratio, f.EstimatedFillRatio())
	require.True(t, f.Test("same"))
}

func TestMarshalRoundTrip(t *testing.T) {
	f, err := New(500, 0.02)
	require.Nil(t, err)
	for i := 0; i < 250; i++ {
		f.Add(fmt.Sprintf("key-%d", i))
	}

	raw, err := f.MarshalBinary()
	require.Nil(t, err)

	loaded, err := UnmarshalBinary(raw)
	require.Nil(t, err)
	require.Equal(t, f.Bits(), loaded.Bits())
	require.Equal(t, f.K(), loaded.K())
	require.Equal(t, f.Count(), loaded.Count())
	for i := 0; i < 250; i++ {
		require.True(t, loaded.Test(fmt.Sprintf("key-%d", i)))
	}
	require.False(t, loaded.Test("never-added"))
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := UnmarshalBinary(nil)
	require.ErrorIs(t, err, ErrInvalidData)

	_, err = UnmarshalBinary([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidData)

	f, errNew := New(100, 0.01)
	require.Nil(t, errNew)
	raw, errMarshal := f.MarshalBinary()
	require.Nil(t, errMarshal)

	// truncated body
	_, err = UnmarshalBinary(raw[:len(raw)-1])
	require.ErrorIs(t, err, ErrInvalidData)

	// bad version
	bad := append([]byte{}, raw...)
	bad[0] = 99
	_, err = UnmarshalBinary(bad)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}
