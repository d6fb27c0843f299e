package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want Role
	}{
		{name: "lowercase central", raw: "central", want: RoleCentral},
		{name: "uppercase central", raw: "CENTRAL", want: RoleCentral},
		{name: "padded central", raw: "  Central  ", want: RoleCentral},
		{name: "direct store with space", raw: "Direct Store", want: RoleDirectStore},
		{name: "direct store underscore", raw: "direct_store", want: RoleDirectStore},
		{name: "alliance store", raw: "Alliance Store", want: RoleAllianceStore},
		{name: "unrecognized role passes through lowercased", raw: "Regional Hub", want: Role("regional hub")},
		{name: "empty string", raw: "", want: RoleUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestIsCentral(t *testing.T) {
	assert.True(t, IsCentral(RoleCentral))
	assert.False(t, IsCentral(RoleDirectStore))
}

func TestIsBranch(t *testing.T) {
	assert.True(t, IsBranch(RoleDirectStore))
	assert.True(t, IsBranch(RoleAllianceStore))
	assert.True(t, IsBranch(Role("regional hub")))
	assert.False(t, IsBranch(RoleCentral))
	assert.False(t, IsBranch(RoleUnknown))
}
