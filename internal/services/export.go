package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"baliance.com/gooxml/color"
	"baliance.com/gooxml/document"
	"baliance.com/gooxml/measurement"
	"baliance.com/gooxml/schema/soo/wml"
	"github.com/go-pdf/fpdf"

	"studyprep/internal/models"
)

// ExportMetrics counts rendered downloads by format. A nil value disables
// collection.
type ExportMetrics interface {
	RecordExport(format string)
}

// ExportService renders in-memory documents and question sets to DOCX and
// PDF. Both paths consume the same formatting schema so callers never need
// per-format logic.
type ExportService struct {
	metrics ExportMetrics
}

func NewExportService(m ExportMetrics) *ExportService {
	return &ExportService{metrics: m}
}

// normalizeFormatting fills unknown or missing fields with the documented
// defaults.
func normalizeFormatting(f models.Formatting) models.Formatting {
	def := models.DefaultFormatting()
	if strings.TrimSpace(f.FontFamily) == "" {
		f.FontFamily = def.FontFamily
	}
	if f.FontSize <= 0 {
		f.FontSize = def.FontSize
	}
	if parseHexColor(f.FontColor) == nil {
		f.FontColor = def.FontColor
	}
	if f.LineSpacing <= 0 {
		f.LineSpacing = def.LineSpacing
	}
	if f.Alignment == "" {
		f.Alignment = def.Alignment
	}
	if f.Margins.Top <= 0 {
		f.Margins.Top = def.Margins.Top
	}
	if f.Margins.Bottom <= 0 {
		f.Margins.Bottom = def.Margins.Bottom
	}
	if f.Margins.Left <= 0 {
		f.Margins.Left = def.Margins.Left
	}
	if f.Margins.Right <= 0 {
		f.Margins.Right = def.Margins.Right
	}
	return f
}

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// parseHexColor returns the six-digit hex string without its leading '#',
// or nil when the value is not a usable color.
func parseHexColor(s string) *string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if !hexColorPattern.MatchString(s) {
		return nil
	}
	return &s
}

// RenderDOCX builds a Word document from the editable document. Each
// newline-delimited line becomes one paragraph; blank lines become a
// single-space paragraph to preserve vertical spacing.
func (s *ExportService) RenderDOCX(edoc *models.EditorDocument) ([]byte, error) {
	f := normalizeFormatting(edoc.Formatting)

	doc := document.New()
	sect := doc.BodySection()
	sect.SetPageMargins(
		measurement.Distance(f.Margins.Top)*measurement.Inch,
		measurement.Distance(f.Margins.Right)*measurement.Inch,
		measurement.Distance(f.Margins.Bottom)*measurement.Inch,
		measurement.Distance(f.Margins.Left)*measurement.Inch,
		0.5*measurement.Inch,
		0.5*measurement.Inch,
		0,
	)

	for _, line := range strings.Split(edoc.Content, "\n") {
		text := strings.TrimRight(line, " \t")
		para := doc.AddParagraph()
		run := para.AddRun()
		if strings.TrimSpace(text) != "" {
			run.AddText(text)
		} else {
			run.AddText(" ")
		}
		applyRunFormatting(run, f)
		applyParagraphFormatting(para, f)
	}

	if f.PageNumbers {
		addPageNumberFooter(doc)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordExport("docx")
	}
	return buf.Bytes(), nil
}

func applyRunFormatting(run document.Run, f models.Formatting) {
	props := run.Properties()
	props.SetFontFamily(f.FontFamily)
	props.SetSize(measurement.Distance(f.FontSize) * measurement.Point)
	if hex := parseHexColor(f.FontColor); hex != nil {
		props.SetColor(color.FromHex(*hex))
	}
	if f.Bold {
		props.SetBold(true)
	}
	if f.Italic {
		props.SetItalic(true)
	}
	if f.Underline {
		props.SetUnderline(wml.ST_UnderlineSingle, color.Auto)
	}
}

func applyParagraphFormatting(para document.Paragraph, f models.Formatting) {
	props := para.Properties()
	props.SetAlignment(alignmentJc(f.Alignment))
	// Auto line-spacing rule measures in 240ths of a line.
	props.Spacing().SetLineSpacing(
		measurement.Distance(f.LineSpacing*240)*measurement.Twips,
		wml.ST_LineSpacingRuleAuto,
	)
}

func alignmentJc(alignment string) wml.ST_Jc {
	switch strings.ToLower(alignment) {
	case "center":
		return wml.ST_JcCenter
	case "right":
		return wml.ST_JcRight
	case "justify":
		return wml.ST_JcBoth
	default:
		return wml.ST_JcLeft
	}
}

// addPageNumberFooter inserts a centered footer with a dynamic PAGE field.
func addPageNumberFooter(doc *document.Document) {
	ftr := doc.AddFooter()
	para := ftr.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	para.AddRun().AddField(document.FieldCurrentPage)
	doc.BodySection().SetFooter(ftr, wml.ST_HdrFtrDefault)
}

// pdfFont maps the formatting schema onto the PDF base fonts. Only the
// Helvetica, Times and Courier families exist there; everything else falls
// back to Helvetica. Bold/italic/underline combine into the style string
// that selects the named variant.
func pdfFont(f models.Formatting) (family, style string) {
	switch strings.ToLower(strings.TrimSpace(f.FontFamily)) {
	case "times new roman", "georgia", "times":
		family = "Times"
	case "courier", "courier new":
		family = "Courier"
	default:
		family = "Helvetica"
	}
	if f.Bold {
		style += "B"
	}
	if f.Italic {
		style += "I"
	}
	if f.Underline {
		style += "U"
	}
	return family, style
}

// pdfMargins converts the inch-based margins to points.
func pdfMargins(f models.Formatting) (left, top, right, bottom float64) {
	return f.Margins.Left * 72, f.Margins.Top * 72, f.Margins.Right * 72, f.Margins.Bottom * 72
}

func pdfAlignment(alignment string) string {
	switch strings.ToLower(alignment) {
	case "center":
		return "C"
	case "right":
		return "R"
	case "justify":
		return "J"
	default:
		return "L"
	}
}

func hexRGB(s string) (r, g, b int) {
	hex := parseHexColor(s)
	if hex == nil {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(*hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// RenderPDF builds a PDF from the editable document. Blank lines become
// spacers sized from the font; paragraph leading derives from
// fontSize x lineSpacing.
func (s *ExportService) RenderPDF(edoc *models.EditorDocument) ([]byte, error) {
	f := normalizeFormatting(edoc.Formatting)

	pdf := fpdf.New("P", "pt", "Letter", "")
	left, top, right, bottom := pdfMargins(f)
	pdf.SetMargins(left, top, right)
	pdf.SetAutoPageBreak(true, bottom)

	family, style := pdfFont(f)
	if f.PageNumbers {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-bottom / 2)
			pdf.SetFont(family, "", 10)
			pdf.CellFormat(0, 10, strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
		})
	}

	pdf.AddPage()
	pdf.SetFont(family, style, f.FontSize)
	pdf.SetTextColor(hexRGB(f.FontColor))

	align := pdfAlignment(f.Alignment)
	lineHeight := f.FontSize * f.LineSpacing
	for _, line := range strings.Split(edoc.Content, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			pdf.Ln(f.FontSize * 0.6)
			continue
		}
		pdf.MultiCell(0, lineHeight, text, "", align, false)
		pdf.Ln(f.FontSize * 0.3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordExport("pdf")
	}
	return buf.Bytes(), nil
}

// RenderQuestionSetDOCX builds the downloadable exam-prep Word document for
// a generated question set.
func (s *ExportService) RenderQuestionSetDOCX(set *models.QuestionSet) ([]byte, error) {
	doc := document.New()

	title := doc.AddParagraph()
	title.SetStyle("Title")
	title.AddRun().AddText("Exam Preparation Questions")

	meta := doc.AddParagraph()
	meta.AddRun().AddText("Generated on: " + set.GeneratedAt.Format("2006-01-02 15:04:05"))
	doc.AddParagraph()

	for i, q := range set.Questions {
		heading := doc.AddParagraph()
		heading.SetStyle("Heading1")
		heading.AddRun().AddText(fmt.Sprintf("Question %d", i+1))

		addMultilineText(doc.AddParagraph(), q.Question)

		importance := doc.AddParagraph()
		label := importance.AddRun()
		label.AddText("Importance: ")
		label.Properties().SetBold(true)
		importance.AddRun().AddText(capitalize(q.Importance))

		answerHeading := doc.AddParagraph()
		answerHeading.SetStyle("Heading2")
		answerHeading.AddRun().AddText("Answer:")

		addMultilineText(doc.AddParagraph(), q.Answer)
		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("render question set docx: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordExport("docx")
	}
	return buf.Bytes(), nil
}

// addMultilineText writes text into one paragraph, converting embedded
// newlines to line breaks. Multiple-choice questions carry their options on
// separate lines.
func addMultilineText(para document.Paragraph, text string) {
	run := para.AddRun()
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			run.AddBreak()
		}
		run.AddText(line)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
