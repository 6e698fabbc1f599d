package infra

// Cash-close report rendered with go-pdf/fpdf.
// One A4 page per closed session with:
//   - Business header
//   - Register, cashier and open/close timestamps
//   - Opening, sales, expected and declared amounts
//   - Per-payment-method totals of completed sales
//
// The output file is saved to storagePath/cierre_{sesion_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"minisuper/internal/dto"
	"minisuper/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ReporteCierre is everything printed on a cash-close report.
type ReporteCierre struct {
	Empresa    string
	RIF        string
	NumeroCaja int
	NombreCaja string
	Cajero     string
	Sesion     *model.SesionCaja
	Resumen    []dto.ResumenMetodo
}

// GenerateReporteCierrePDF writes the report and returns the file path.
func GenerateReporteCierrePDF(r ReporteCierre, storagePath string) (string, error) {
	if r.Sesion == nil {
		return "", fmt.Errorf("pdf: sesion requerida")
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_%s.pdf", r.Sesion.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, r.Empresa, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, r.RIF, "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Cierre de Caja", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Session info ─────────────────────────────────────────────────────────
	s := r.Sesion
	pdf.SetFont("Helvetica", "", 9)
	fila(pdf, contentW, "Caja", fmt.Sprintf("%d - %s", r.NumeroCaja, r.NombreCaja))
	fila(pdf, contentW, "Cajero", r.Cajero)
	fila(pdf, contentW, "Apertura", s.FechaApertura.Format("02/01/2006 15:04"))
	if s.FechaCierre != nil {
		fila(pdf, contentW, "Cierre", s.FechaCierre.Format("02/01/2006 15:04"))
	}
	fila(pdf, contentW, "Transacciones", fmt.Sprintf("%d", s.TotalTransacciones))
	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Amounts ──────────────────────────────────────────────────────────────
	esperado := s.MontoInicialUSD.Add(s.TotalVentasUSD)
	fila(pdf, contentW, "Monto inicial USD", "$"+s.MontoInicialUSD.StringFixed(2))
	fila(pdf, contentW, "Monto inicial VES", "Bs "+s.MontoInicialVES.StringFixed(2))
	fila(pdf, contentW, "Ventas USD", "$"+s.TotalVentasUSD.StringFixed(2))
	fila(pdf, contentW, "Esperado USD", "$"+esperado.StringFixed(2))
	fila(pdf, contentW, "Declarado USD", "$"+opcional(s.MontoFinalUSD))
	fila(pdf, contentW, "Declarado VES", "Bs "+opcional(s.MontoFinalVES))
	pdf.SetFont("Helvetica", "B", 10)
	fila(pdf, contentW, "Diferencia USD", "$"+opcional(s.DiferenciaUSD))
	pdf.Ln(4)

	// ── Per-method table ─────────────────────────────────────────────────────
	col1 := contentW * 0.40
	col2 := contentW * 0.15
	col3 := contentW * 0.20
	col4 := contentW * 0.25

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Metodo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "USD", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "VES", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, m := range r.Resumen {
		pdf.CellFormat(col1, 5, m.Metodo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", m.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, m.TotalUSD.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, m.TotalVES.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if s.Observaciones != nil && *s.Observaciones != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(contentW, 4, "Observaciones: "+*s.Observaciones, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

func fila(pdf *fpdf.Fpdf, w float64, etiqueta, valor string) {
	pdf.CellFormat(w*0.5, 5, etiqueta+":", "", 0, "L", false, 0, "")
	pdf.CellFormat(w*0.5, 5, valor, "", 1, "R", false, 0, "")
}

func opcional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}
