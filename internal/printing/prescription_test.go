package printing

import (
	"bytes"
	"testing"
	"time"

	"healthcrm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescriptionPDF(t *testing.T) {
	p := models.Prescription{
		ID:          "rx-1",
		PatientName: "Ana Müller",
		Medication:  "Amoxicillin",
		Dosage:      "500mg",
		Frequency:   "3x daily",
		Refills:     1,
		Status:      "active",
		Prescriber:  "Dr. Grey",
		IssuedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	out, err := PrescriptionPDF(p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")
}
