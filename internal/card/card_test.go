package card

import (
	"encoding/json"
	"testing"

	"github.com/alovak/cardkit/internal/expiry"
	"github.com/stretchr/testify/require"
)

func TestBrandOf(t *testing.T) {
	cases := []struct {
		in   string
		want Brand
	}{
		{"4111111111111111", BrandVisa},
		{"5555555555554444", BrandMastercard},
		{"2223003122003222", BrandMastercard},
		{"378282246310005", BrandAmex},
		{"6011111111111117", BrandDiscover},
		{"6500000000000002", BrandDiscover},
		{"3530111333300000", BrandJCB},
		{"30569309025904", BrandDiners},
		{"6200000000000005", BrandUnionPay},
		{"9999999999999995", BrandUnknown},
		{"", BrandUnknown},
	}
	for _, c := range cases {
		if got := BrandOf(c.in); got != c.want {
			t.Fatalf("BrandOf(%q) = %s want %s", c.in, got, c.want)
		}
	}
}

func TestMask(t *testing.T) {
	require.Equal(t, "424242******4242", Mask("4242424242424242"))
	require.Equal(t, "***", Mask("123"))
	require.Equal(t, "****5678", Mask("12345678"))
	require.Equal(t, "", Mask(""))
}

func TestRecordJSON(t *testing.T) {
	rec := Record{Number: "4242424242424242", Expiry: expiry.New(12, 25), CVV: "123"}
	require.True(t, rec.HasExpiry())
	require.True(t, rec.HasCVV())

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{"number":"4242424242424242","expiry":"12/25","cvv":"123"}`, string(b))

	bare := Record{Number: "4242424242424242"}
	require.False(t, bare.HasExpiry())
	require.False(t, bare.HasCVV())
}
