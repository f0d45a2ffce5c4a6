package sharedserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGracePeriod(t *testing.T) {
	cases := []struct {
		in      string
		wantOK  bool
		wantErr bool
	}{
		{"", false, false},
		{"30m", true, false},
		{"2h30m", true, false},
		{"5s", true, false},
		{"0s", false, true},
		{"-5s", false, true},
		{"banana", false, true},
	}
	for _, c := range cases {
		_, ok, err := ParseGracePeriod(c.in)
		require.Equal(t, c.wantOK, ok, "ParseGracePeriod(%q) ok", c.in)
		if c.wantErr {
			require.Error(t, err, "ParseGracePeriod(%q)", c.in)
		} else {
			require.NoError(t, err, "ParseGracePeriod(%q)", c.in)
		}
	}
}
