package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionAtLeast(t *testing.T) {
	cases := []struct {
		v    string
		want bool
	}{
		{"35.1", true},
		{"35.2", true},
		{"36.0", true},
		{"100.0", true},
		{"35.1.2", true}, // patch component ignored
		{"35.0", false},
		{"35", false},
		{"34.9", false},
		{"9.9", false},
		{"", false},
		{"dev", false},
		{"35.x", false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, versionAtLeast(c.v, actOnParentVersion), "version %q", c.v)
	}
}
