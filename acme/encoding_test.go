package acme

import (
	"bytes"
	"errors"
	"testing"
)

func TestBase64URLRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xff, 0xfe},
		{0x01, 0x02, 0x03},
		[]byte("hello world, this is not a drill"),
		{0xfb, 0xff, 0xbf, 0xef},
	}
	for _, input := range inputs {
		encoded := Base64URLEncode(input)
		if bytes.ContainsAny([]byte(encoded), "+/=") {
			t.Errorf("Base64URLEncode(%x) = %q, contains forbidden characters", input, encoded)
		}
		decoded, err := Base64URLDecode(encoded)
		if err != nil {
			t.Errorf("Base64URLDecode(%q) failed: %v", encoded, err)
			continue
		}
		if !bytes.Equal(decoded, input) {
			t.Errorf("round trip of %x: got %x", input, decoded)
		}
	}
}

func TestBase64URLDecodeShortTails(t *testing.T) {
	// Unpadded encodings with 2 and 3 trailing characters must decode.
	cases := map[string][]byte{
		"AQ":   {0x01},
		"AQI":  {0x01, 0x02},
		"AQID": {0x01, 0x02, 0x03},
	}
	for encoded, want := range cases {
		got, err := Base64URLDecode(encoded)
		if err != nil {
			t.Errorf("Base64URLDecode(%q) failed: %v", encoded, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Base64URLDecode(%q) = %x, want %x", encoded, got, want)
		}
	}
}

func TestBase64URLDecodePadded(t *testing.T) {
	// Trailing padding from sloppy producers is tolerated.
	got, err := Base64URLDecode("AQI=")
	if err != nil {
		t.Fatalf("Base64URLDecode failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02}) {
		t.Errorf("Base64URLDecode(\"AQI=\") = %x, want 0102", got)
	}
}

func TestBase64URLDecodeErrors(t *testing.T) {
	for _, malformed := range []string{
		"A",     // length 1 mod 4 can never be valid
		"AQIDA", // same, longer
		"AQ+",   // standard alphabet character
		"AQ/B",
		"A Q",
	} {
		_, err := Base64URLDecode(malformed)
		if err == nil {
			t.Errorf("Base64URLDecode(%q): expected error, got none", malformed)
			continue
		}
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("Base64URLDecode(%q): error %v is not a FormatError", malformed, err)
		}
	}
}
