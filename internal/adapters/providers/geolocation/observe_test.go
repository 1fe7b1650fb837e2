package geolocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	previous := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = previous })
	return buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestObserveCall_LogsOutcome(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()

	observeCall(ctx, nil, sourceName, "geocode", time.Now(), nil)
	observeCall(ctx, nil, secondarySourceName, "update", time.Now(), errors.New("boom"))

	entries := logEntries(t, buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "Place source call completed", entries[0]["message"])
	assert.Equal(t, "geocode", entries[0]["operation"])

	assert.Equal(t, "warn", entries[1]["level"])
	assert.Equal(t, "Place source call failed", entries[1]["message"])
	assert.Equal(t, secondarySourceName, entries[1]["source"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestGoogleProvider_ReverseGeocodeLogsCompletion(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "OK", "results": [
			{"formatted_address": "Kenyatta Ave", "place_id": "k", "geometry": {"location": {"lat": -1.2864, "lng": 36.8172}}}
		]}`)
	})
	buf := captureLogs(t)

	_, err := provider.ReverseGeocode(context.Background(), entities.LatLng{Lat: -1.2864, Lng: 36.8172})
	require.NoError(t, err)

	var completed bool
	for _, entry := range logEntries(t, buf) {
		if entry["message"] == "Place source call completed" && entry["operation"] == "reverse_geocode" {
			completed = true
		}
	}
	assert.True(t, completed, "reverse geocode emits a completion event")
}
