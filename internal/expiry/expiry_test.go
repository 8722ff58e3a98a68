package expiry

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormats(t *testing.T) {
	d := New(12, 2030)
	if got := d.YYMM(); got != "3012" {
		t.Fatalf("YYMM got %s want %s", got, "3012")
	}
	if got := d.MMYY(); got != "1230" {
		t.Fatalf("MMYY got %s want %s", got, "1230")
	}
	if got := d.CardFace(); got != "12/30" {
		t.Fatalf("CardFace got %s want %s", got, "12/30")
	}
}

func TestNew_TwoAndFourDigitYears(t *testing.T) {
	if got := New(3, 27); got.Year != 2027 {
		t.Fatalf("New(3, 27).Year = %d want 2027", got.Year)
	}
	if got := New(3, 2031); got.Year != 2031 {
		t.Fatalf("New(3, 2031).Year = %d want 2031", got.Year)
	}
	if got := New(1, 5).CardFace(); got != "01/05" {
		t.Fatalf("CardFace got %s want 01/05", got)
	}
}

func TestEndOfMonth(t *testing.T) {
	ts, err := EndOfMonth(New(2, 30), time.UTC)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := time.Date(2030, time.February, 28, 23, 59, 59, 999999999, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("got %v want %v", ts, want)
	}

	ts, err = EndOfMonth(New(4, 30), time.UTC)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want = time.Date(2030, time.April, 30, 23, 59, 59, 999999999, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("got %v want %v", ts, want)
	}

	if _, err := EndOfMonth(New(13, 30), time.UTC); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestValidateYYMM(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"3002", true}, {"9912", true}, {"0001", true},
		{"123", false}, {"12a4", false}, {"3013", false}, {"0000", false},
	}
	for _, c := range cases {
		err := ValidateYYMM(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ValidateYYMM(%s) ok=%v got err=%v", c.in, c.ok, err)
		}
	}
}

func TestParseYYMM(t *testing.T) {
	d, err := ParseYYMM("2712")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if d != (Date{Month: 12, Year: 2027}) {
		t.Fatalf("got %+v", d)
	}
}

func TestIsExpired(t *testing.T) {
	d := New(2, 30)
	end, _ := EndOfMonth(d, time.UTC)

	expired, err := IsExpired(d, end.Add(-time.Nanosecond), time.UTC)
	if err != nil || expired {
		t.Fatalf("expected not expired before end, got expired=%v err=%v", expired, err)
	}
	// the end instant itself is still valid
	expired, err = IsExpired(d, end, time.UTC)
	if err != nil || expired {
		t.Fatalf("expected not expired at end, got expired=%v err=%v", expired, err)
	}
	expired, err = IsExpired(d, end.Add(time.Nanosecond), time.UTC)
	if err != nil || !expired {
		t.Fatalf("expected expired after %v, got expired=%v err=%v", end, expired, err)
	}
}

func TestParseCardFace(t *testing.T) {
	d, err := ParseCardFace("10/30")
	if err != nil || d.YYMM() != "3010" {
		t.Fatalf("ParseCardFace 10/30 got %v err=%v", d, err)
	}
	d, err = ParseCardFace("1030")
	if err != nil || d.YYMM() != "3010" {
		t.Fatalf("ParseCardFace 1030 got %v err=%v", d, err)
	}
	if _, err := ParseCardFace("13/30"); err == nil {
		t.Fatalf("expected error for 13/30")
	}
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Exp Date `json:"exp"`
	}{New(7, 28)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"exp":"07/28"}` {
		t.Fatalf("got %s", b)
	}

	var out struct {
		Exp Date `json:"exp"`
	}
	if err := json.Unmarshal([]byte(`{"exp":"09/31"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Exp != New(9, 31) {
		t.Fatalf("got %+v", out.Exp)
	}
	if err := json.Unmarshal([]byte(`{"exp":""}`), &out); err != nil || !out.Exp.IsZero() {
		t.Fatalf("empty expiry: %+v err=%v", out.Exp, err)
	}
}

func TestJSON_KeepsOutOfRangeMonth(t *testing.T) {
	in := New(13, 25)
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"13/25"` {
		t.Fatalf("got %s", b)
	}

	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in || out.Valid() {
		t.Fatalf("got %+v valid=%v", out, out.Valid())
	}

	// the strict parser still refuses it
	if _, err := ParseCardFace("13/25"); err == nil {
		t.Fatalf("ParseCardFace accepted month 13")
	}
	if err := json.Unmarshal([]byte(`"1/25"`), &out); err == nil {
		t.Fatalf("accepted malformed card face")
	}
}
