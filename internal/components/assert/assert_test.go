package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var nilMap map[string]int
	var nilPtr *int

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(nilMap) })
	require.Panics(t, func() { NotNil(nilPtr) })
	require.NotPanics(t, func() { NotNil(3) })
	require.NotPanics(t, func() { NotNil(map[string]int{}) })
}

func TestNotEmptyStrAndTrue(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("a") })
	require.Panics(t, func() { True(false, "nope") })
	require.NotPanics(t, func() { True(true, "ok") })
}
