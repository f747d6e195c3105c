package referencedata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPostcode(t *testing.T) {
	assert.True(t, ValidPostcode("00100"))
	assert.False(t, ValidPostcode("0010"))
	assert.False(t, ValidPostcode("00100a"))
	assert.False(t, ValidPostcode(""))
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	static := NewStatic(
		[]Postcode{
			{Code: "33100", Name: "Tampere", MunicipalityCode: "837", Active: true},
			{Code: "00100", Name: "Helsinki", MunicipalityCode: "091", Active: true},
			{Code: "99999", Name: "Korvatunturi", Active: false},
		},
		[]Municipality{{Code: "091", Name: "Helsinki", Region: "FI"}},
	)

	codes, err := static.ListPostcodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"00100", "33100"}, codes)

	p, err := static.GetPostcode(ctx, "00100")
	require.NoError(t, err)
	assert.Equal(t, "091", p.MunicipalityCode)

	_, err = static.GetPostcode(ctx, "12345")
	require.ErrorIs(t, err, ErrPostcodeNotFound)
	_, err = static.GetPostcode(ctx, "abc")
	require.ErrorIs(t, err, ErrInvalidPostcode)

	m, err := static.GetMunicipality(ctx, "091")
	require.NoError(t, err)
	assert.Equal(t, "FI", m.Region)
	_, err = static.GetMunicipality(ctx, "837")
	require.ErrorIs(t, err, ErrMunicipalityNotFound)
}

func TestNewStaticPostcodes(t *testing.T) {
	codes, err := NewStaticPostcodes("20100", "00100").ListPostcodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"00100", "20100"}, codes)
}
