package engine_test

import (
	"testing"

	"db-transfer/internal/engine"

	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	refs, err := engine.ParseSelection([]string{"sales:Orders,sales:Events", " crm:Leads ", "sales:Orders", "hr", "erp:*"})
	require.NoError(t, err)
	require.Equal(t, []engine.TableRef{
		{Source: "sales", Table: "Orders"},
		{Source: "sales", Table: "Events"},
		{Source: "crm", Table: "Leads"},
		{Source: "hr"},
		{Source: "erp"},
	}, refs)

	require.Equal(t, "hr:*", refs[3].String())
	require.Equal(t, "crm:Leads", refs[2].String())
}

func TestParseSelection_Empty(t *testing.T) {
	refs, err := engine.ParseSelection(nil)
	require.NoError(t, err)
	require.Empty(t, refs)

	refs, err = engine.ParseSelection([]string{" , "})
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestParseSelection_Invalid(t *testing.T) {
	for _, item := range []string{":Orders", "sales:"} {
		_, err := engine.ParseSelection([]string{item})
		require.Error(t, err, item)
	}
}
