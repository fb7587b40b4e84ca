package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/doctor"
)

func TestDoctorCommand(t *testing.T) {
	testEnv(t)
	t.Setenv("HONEYPOT_API_KEYS", "static-doctor-key")

	out, err := execute(t, "doctor", "--skip-upstream")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ session_db")
	assert.Contains(t, out, "⚠ llm_provider")
	assert.Contains(t, out, "0 failed")
}

func TestDoctorCommandJSONFailsWithoutKeys(t *testing.T) {
	testEnv(t)
	t.Cleanup(func() { doctorJSON = false })

	out, err := execute(t, "doctor", "--skip-upstream", "--json")
	require.Error(t, err)

	var report doctor.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, doctor.StatusFail, report.Status)
}
