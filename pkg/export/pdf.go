package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// FichaStudent carries the header fields of the evaluation form.
type FichaStudent struct {
	Name      string
	Matricula string
	Turno     string
	Semestre  string
}

// FichaRow is one activity line inside a category section.
type FichaRow struct {
	TypeName      string
	RawHours      float64
	CreditedHours float64
}

// FichaSection groups the rows of one category with its subtotal.
type FichaSection struct {
	Category   string
	LimitHours float64
	Rows       []FichaRow
	Subtotal   float64
}

// FichaData is the full dataset of the printable evaluation form.
type FichaData struct {
	Student       FichaStudent
	Sections      []FichaSection
	TotalCredited float64
	TargetHours   float64
}

// FichaExporter renders the complementary-activity evaluation form.
type FichaExporter struct{}

// NewFichaExporter constructs a ficha exporter.
func NewFichaExporter() *FichaExporter {
	return &FichaExporter{}
}

// Render produces the PDF document for the given dataset.
func (e *FichaExporter) Render(data FichaData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, tr("UNIVERSIDADE DO ESTADO DE MINAS GERAIS – UEMG"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, tr("CURSO DE ENGENHARIA DE COMPUTAÇÃO"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, tr("FICHA DE AVALIAÇÃO DE ATIVIDADES COMPLEMENTARES"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr("Estudante: "+data.Student.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Matrícula: "+data.Student.Matricula), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Turno: "+data.Student.Turno), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Ano/Semestre de Entrada: "+data.Student.Semestre), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, section := range data.Sections {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, tr(section.Category), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(100, 7, tr("Atividade"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, tr("Horas Informadas"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, tr("Horas Computadas"), "1", 1, "C", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Rows {
			pdf.CellFormat(100, 6, tr(row.TypeName), "1", 0, "", false, 0, "")
			pdf.CellFormat(40, 6, formatHours(row.RawHours), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, formatHours(row.CreditedHours), "1", 1, "C", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Subtotal: %s de %s horas", formatHours(section.Subtotal), formatHours(section.LimitHours))), "", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Total de Horas Computadas: %s de %s", formatHours(data.TotalCredited), formatHours(data.TargetHours))), "", 1, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 6, tr("Local e Data"), "T", 0, "L", false, 0, "")
	pdf.CellFormat(85, 6, tr("Assinatura"), "T", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render ficha pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatHours(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
