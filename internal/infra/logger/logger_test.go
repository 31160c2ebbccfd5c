package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "regular address", input: "john.doe@example.com", want: "joh***@example.com"},
		{name: "short local part", input: "jd@example.com", want: "jd***@example.com"},
		{name: "no at sign", input: "not-an-email", want: "***"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskEmail(tc.input); got != tc.want {
				t.Errorf("MaskEmail(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "international", input: "+12345678901", want: "+123***8901"},
		{name: "short number", input: "1234", want: "***"},
		{name: "fallback keeps last four", input: "five5", want: "***ive5"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskPhone(tc.input); got != tc.want {
				t.Errorf("MaskPhone(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ipv4", input: "192.168.1.100", want: "192.168.*.*"},
		{name: "ipv6", input: "2001:0db8:85a3:0000:0000:8a2e:0370:7334", want: "2001:0db8:85a3:0000:*:*:*:*"},
		{name: "garbage", input: "localhost", want: "***"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskIP(tc.input); got != tc.want {
				t.Errorf("MaskIP(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestMaskString(t *testing.T) {
	if got := MaskString("secret123"); got != "se***23" {
		t.Errorf("MaskString(\"secret123\") = %q", got)
	}
	if got := MaskString("abc"); got != "***" {
		t.Errorf("short strings must be fully masked, got %q", got)
	}
	if got := MaskString(""); got != "" {
		t.Errorf("empty input must stay empty, got %q", got)
	}
}
