package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

func TestParsePoint(t *testing.T) {
	point, err := parsePoint("-1.2864", "36.8172")
	require.NoError(t, err)
	assert.Equal(t, entities.LatLng{Lat: -1.2864, Lng: 36.8172}, point)

	_, err = parsePoint("north", "36.8")
	assert.Error(t, err)
	_, err = parsePoint("-1.2", "181")
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("pretty", false, "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, printJSON(cmd, map[string]int{"count": 2}))
	assert.Equal(t, "{\"count\":2}\n", out.String())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "nearby", "cached", "geocode", "reverse", "directions"} {
		assert.True(t, names[want], want)
	}
}
