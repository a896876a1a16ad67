package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	CleanupCounter.WithLabelValues(CleanupResultDeleted).Add(2)
	CMISRequestDurations.WithLabelValues("POST", "deleteTree", "200").Observe(0.5)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, `cmis_fixture_cleanup_total{result="deleted"}`)
	assert.Contains(t, out, `cmis_client_request_duration_count{action="deleteTree",code="200",method="POST"} 1`)
	assert.NotContains(t, out, "go_goroutines")
}
