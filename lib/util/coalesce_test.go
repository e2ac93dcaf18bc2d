package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
)

func TestCoa(t *testing.T) {
	assert.Equal(t, "fallback", util.Coa("", "fallback"))
	assert.Equal(t, "value", util.Coa("value", "fallback"))
	assert.Equal(t, 42, util.Coa(0, 42))
	assert.Equal(t, 7, util.Coa(7, 42))
}

func TestPtr(t *testing.T) {
	p := util.Ptr("x")
	require.NotNil(t, p)
	assert.Equal(t, "x", *p)

	q := util.Ptr("")
	require.NotNil(t, q)
	assert.Empty(t, *q)
	assert.NotSame(t, p, q)
}
