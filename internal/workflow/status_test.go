package workflow_test

import (
	"testing"

	"supplygw/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("accepts the four literals", func(t *testing.T) {
		for _, want := range workflow.Statuses() {
			got, err := workflow.Parse(want.String())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("canonicalizes case and whitespace", func(t *testing.T) {
		got, err := workflow.Parse("  shipped ")
		require.NoError(t, err)
		assert.Equal(t, workflow.StatusShipped, got)
	})

	t.Run("rejects anything else", func(t *testing.T) {
		for _, bad := range []string{"", "UNKNOWN", "DELIVERED", "ALL", "PENDING2"} {
			_, err := workflow.Parse(bad)
			require.Error(t, err, "input %q", bad)
			assert.ErrorIs(t, err, workflow.ErrUnknownStatus)
		}
	})
}

func TestParseFilter(t *testing.T) {
	t.Run("ALL is accepted case-insensitively", func(t *testing.T) {
		for _, in := range []string{"ALL", "all", " All "} {
			f, err := workflow.ParseFilter(in)
			require.NoError(t, err)
			assert.Equal(t, workflow.FilterAll, f)
		}
	})

	t.Run("status literals pass through", func(t *testing.T) {
		f, err := workflow.ParseFilter("cancelled")
		require.NoError(t, err)
		assert.Equal(t, workflow.Filter("CANCELLED"), f)
	})

	t.Run("unknown literal fails", func(t *testing.T) {
		_, err := workflow.ParseFilter("NONE")
		assert.ErrorIs(t, err, workflow.ErrUnknownStatus)
	})
}

func TestFilterQueryValue(t *testing.T) {
	t.Run("ALL omits the parameter", func(t *testing.T) {
		_, ok := workflow.FilterAll.QueryValue()
		assert.False(t, ok)
	})

	t.Run("zero value omits the parameter", func(t *testing.T) {
		_, ok := workflow.Filter("").QueryValue()
		assert.False(t, ok)
	})

	t.Run("statuses are transmitted verbatim", func(t *testing.T) {
		for _, st := range workflow.Statuses() {
			v, ok := workflow.Filter(st).QueryValue()
			require.True(t, ok)
			assert.Equal(t, st.String(), v)
		}
	})
}
