package providers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testNow is 10:20 UTC; fixtures are built around it.
var testNow = time.Date(2026, 5, 1, 10, 20, 0, 0, time.UTC)

const testUserAgent = "weather-ensemble-test/1.0"

func fixClock(b *adapterBase) {
	b.now = func() time.Time { return testNow }
}

// specAt returns the registry entry for id pointed at a test server.
func specAt(t *testing.T, id, baseURL string) Spec {
	t.Helper()
	spec, ok := Lookup(id)
	require.True(t, ok, "registry has %s", id)
	spec.BaseURL = baseURL
	return spec
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type obj = map[string]interface{}
