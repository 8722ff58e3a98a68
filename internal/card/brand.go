package card

import "strconv"

// Brand is the card network inferred from the leading digits.
type Brand string

const (
	BrandUnknown    Brand = "unknown"
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandDiscover   Brand = "discover"
	BrandJCB        Brand = "jcb"
	BrandDiners     Brand = "diners"
	BrandUnionPay   Brand = "unionpay"
)

type prefixRange struct {
	lo, hi int // inclusive, compared against the first len(strconv.Itoa(lo)) digits
	brand  Brand
}

// longer prefixes are checked first
var brandRanges = []prefixRange{
	{2221, 2720, BrandMastercard},
	{3528, 3589, BrandJCB},
	{6011, 6011, BrandDiscover},
	{300, 305, BrandDiners},
	{644, 649, BrandDiscover},
	{34, 34, BrandAmex},
	{37, 37, BrandAmex},
	{36, 36, BrandDiners},
	{38, 38, BrandDiners},
	{51, 55, BrandMastercard},
	{62, 62, BrandUnionPay},
	{65, 65, BrandDiscover},
	{4, 4, BrandVisa},
}

// BrandOf returns the network for a PAN prefix. It never validates the number.
func BrandOf(number string) Brand {
	for _, r := range brandRanges {
		width := len(strconv.Itoa(r.lo))
		if len(number) < width {
			continue
		}
		p, err := strconv.Atoi(number[:width])
		if err != nil {
			return BrandUnknown
		}
		if p >= r.lo && p <= r.hi {
			return r.brand
		}
	}
	return BrandUnknown
}
