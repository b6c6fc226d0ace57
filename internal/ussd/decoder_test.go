package ussd

import (
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"1", []string{"1"}},
		{"1*2*0541234567", []string{"1", "2", "0541234567"}},
		{"1**3", []string{"1", "", "3"}},
		{" 2*1 ", []string{"2", "1"}},
	}
	for _, tc := range cases {
		got := Decode(tc.text)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Decode(%q) = %#v, want %#v", tc.text, got, tc.want)
		}
	}
}
