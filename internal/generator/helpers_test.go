package generator

import (
	"strconv"
	"testing"

	"dataset-service/internal/catalog"

	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	return c
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func mustGenerate(t *testing.T, opts Options) *Dataset {
	t.Helper()
	ds, err := Generate(mustCatalog(t), opts)
	require.NoError(t, err)
	return ds
}
