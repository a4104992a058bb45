package etag_test

import (
	"testing"

	"linkbio/modules/etag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versioned string

func (v versioned) V() string { return string(v) }

func TestHeaderRoundTrip(t *testing.T) {
	h := etag.Header(versioned("7"))
	assert.Equal(t, `"v:7"`, h)

	v, err := etag.ParseVersion(h)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`"v:3"`, 3, true},
		{`v:3`, 3, true},
		{`W/"v:12"`, 12, true},
		{` "v:1" `, 1, true},
		{`*`, 0, false},
		{`"v:0"`, 0, false},
		{`"v:x"`, 0, false},
		{`"3"`, 0, false},
		{`"v:1", "v:2"`, 0, false},
		{``, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := etag.ParseVersion(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, etag.ErrInvalidETag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
