package shared

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("aa", "", "")
	flags.Bool("all", false, "")

	require.NoError(t, flags.Parse([]string{"prog"}))
	assert.False(t, HasFlags(flags))

	require.NoError(t, flags.Parse([]string{"--aa", "ds-aa"}))
	assert.True(t, HasFlags(flags))
}

func TestGenericLaunchesResultFailed(t *testing.T) {
	r := GenericLaunchesResult{Launches: []GenericResult{
		{Status: StatusOK},
		{Status: StatusFailed},
		{Status: StatusFailed},
	}}
	assert.Equal(t, 2, r.Failed())
	assert.Zero(t, GenericLaunchesResult{}.Failed())
}
