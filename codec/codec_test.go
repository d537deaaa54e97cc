package codec

import (
	"testing"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainDeriver struct{ deriver.Deriver }

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("xml")
	assert.False(t, ok)
}

func TestIdentity_CodecsAgree(t *testing.T) {
	src := deriver.Source{Parent: []byte("c1ccccc1"), Aux: [][]byte{[]byte("x")}}

	a, err := Identity(JSON{}, plainDeriver{}, src)
	require.NoError(t, err)
	b, err := Identity(GoJSON{}, plainDeriver{}, src)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := Identity(nil, plainDeriver{}, deriver.Source{Parent: []byte("c1ccccc1")})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestIdentity_Canonicalizer(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostExpensive)
	a, err := Identity(nil, d, deriver.Source{Parent: []byte("n c")})
	require.NoError(t, err)
	b, err := Identity(nil, d, deriver.Source{Parent: []byte("c n n")})
	require.NoError(t, err)
	assert.Equal(t, "c n", a)
	assert.Equal(t, a, b)
}

func TestMustMarshal(t *testing.T) {
	assert.Equal(t, `{"p":"YQ=="}`, string(MustMarshal(nil, identity{Parent: []byte("a")})))
	assert.Panics(t, func() { MustMarshal(JSON{}, func() {}) })
}
