// Package printing renders printable documents for clinical records.
package printing

import (
	"bytes"
	"fmt"
	"strconv"

	"healthcrm/internal/models"

	"github.com/jung-kurt/gofpdf"
)

const (
	marginX = 20.0
	marginY = 20.0
)

// PrescriptionPDF renders p as a single-page A4 prescription slip.
func PrescriptionPDF(p models.Prescription) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.Cell(0, 10, "PRESCRIPTION")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Reference: "+p.ID)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Issued: "+p.IssuedAt.Format("02-Jan-2006"))
	pdf.Ln(10)

	rows := [][2]string{
		{"Patient", p.PatientName},
		{"Medication", p.Medication},
		{"Dosage", p.Dosage},
		{"Frequency", p.Frequency},
		{"Refills", strconv.Itoa(p.Refills)},
		{"Status", p.Status},
	}
	pdf.SetFillColor(240, 240, 240)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(16)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Prescriber: "+tr(p.Prescriber))
	pdf.Ln(12)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 5, "This is a computer generated prescription.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render prescription: %w", err)
	}
	return buf.Bytes(), nil
}
