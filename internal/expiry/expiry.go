package expiry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var defaultLoc = time.UTC

// SetDefaultLocation sets the location used for expiry calculations (fallback UTC).
func SetDefaultLocation(loc *time.Location) {
	if loc != nil {
		defaultLoc = loc
	}
}

// Date is a card expiry month. The zero value means "no expiry".
type Date struct {
	Month int
	Year  int // full year, e.g. 2027
}

// New builds a Date; two-digit years are read as 20YY.
func New(month, year int) Date {
	if year >= 0 && year < 100 {
		year += 2000
	}
	return Date{Month: month, Year: year}
}

func (d Date) IsZero() bool { return d.Month == 0 && d.Year == 0 }

// Valid reports whether the month is 01..12.
func (d Date) Valid() bool { return d.Month >= 1 && d.Month <= 12 }

// CardFace returns MM/YY.
func (d Date) CardFace() string {
	return fmt.Sprintf("%02d/%02d", d.Month, d.Year%100)
}

// YYMM returns the ISO 8583 field 14 form.
func (d Date) YYMM() string {
	return fmt.Sprintf("%02d%02d", d.Year%100, d.Month)
}

func (d Date) MMYY() string {
	return fmt.Sprintf("%02d%02d", d.Month, d.Year%100)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.CardFace()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.CardFace())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// the parser keeps whatever month it finds, so decoding must too
	mm, yy, err := splitCardFace(s)
	if err != nil {
		return err
	}
	*d = New(mm, yy)
	return nil
}

// ParseCardFace accepts "MM/YY" or "MMYY".
func ParseCardFace(in string) (Date, error) {
	mm, yy, err := splitCardFace(in)
	if err != nil {
		return Date{}, err
	}
	if mm < 1 || mm > 12 {
		return Date{}, fmt.Errorf("month must be 01..12")
	}
	return New(mm, yy), nil
}

// splitCardFace checks the MM/YY or MMYY shape only.
func splitCardFace(in string) (mm, yy int, err error) {
	s := strings.TrimSpace(in)
	s = strings.ReplaceAll(s, "/", "")
	if len(s) != 4 {
		return 0, 0, fmt.Errorf("card face must be MM/YY or MMYY")
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, fmt.Errorf("card face must be digits")
		}
	}
	mm, _ = strconv.Atoi(s[:2])
	yy, _ = strconv.Atoi(s[2:])
	return mm, yy, nil
}

// ParseYYMM parses the ISO 8583 field 14 form.
func ParseYYMM(yymm string) (Date, error) {
	if err := ValidateYYMM(yymm); err != nil {
		return Date{}, err
	}
	yy, _ := strconv.Atoi(yymm[:2])
	mm, _ := strconv.Atoi(yymm[2:])
	return New(mm, yy), nil
}

// ValidateYYMM checks the YYMM shape and that the month is 01..12.
func ValidateYYMM(yymm string) error {
	if len(yymm) != 4 {
		return fmt.Errorf("expiry must be YYMM (4 digits)")
	}
	for i := 0; i < 4; i++ {
		if yymm[i] < '0' || yymm[i] > '9' {
			return fmt.Errorf("expiry must be digits: YYMM")
		}
	}
	mm := int(yymm[2]-'0')*10 + int(yymm[3]-'0')
	if mm < 1 || mm > 12 {
		return fmt.Errorf("expiry month must be 01..12")
	}
	return nil
}

// EndOfMonth returns the last instant of the expiry month in loc.
func EndOfMonth(d Date, loc *time.Location) (time.Time, error) {
	if !d.Valid() {
		return time.Time{}, fmt.Errorf("expiry month must be 01..12 (got %d)", d.Month)
	}
	if loc == nil {
		loc = defaultLoc
	}
	firstNext := time.Date(d.Year, time.Month(d.Month), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstNext.Add(-time.Nanosecond), nil
}

// IsExpired reports whether 'at' is strictly after the end of the expiry month.
func IsExpired(d Date, at time.Time, loc *time.Location) (bool, error) {
	end, err := EndOfMonth(d, loc)
	if err != nil {
		return false, err
	}
	return at.In(end.Location()).After(end), nil
}
