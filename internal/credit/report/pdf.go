package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont       = "Arial"
	pdfFontSize   = 9.0
	pdfLineHeight = 5.0
	pdfPageWidth  = 190.0
)

// PDF renders the markdown report with the core Arial font. Markers outside
// the cp1252 range are dropped and unbounded ratios are spelled "inf".
func PDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title), false)
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfFontSize)

	source := []byte(markdown)
	r := &pdfRenderer{pdf: pdf, source: source, tr: tr}
	if err := ast.Walk(md.Parser().Parse(text.NewReader(source)), r.walk); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string
	bold   bool
	italic bool
	lists  []int // next item number per open list, 0 for bullets
}

func (r *pdfRenderer) text(s string) string {
	return r.tr(latin(s))
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, pdfFontSize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.pdf.SetFont(pdfFont, "B", 14-float64(node.Level))
		} else {
			r.pdf.Ln(7)
			r.updateFont()
		}
	case *ast.Paragraph:
		if !entering && len(r.lists) == 0 {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(pdfLineHeight, r.text(string(node.Segment.Value(r.source))))
			if node.HardLineBreak() || node.SoftLineBreak() {
				r.pdf.Ln(pdfLineHeight)
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.List:
		if entering {
			next := 0
			if node.IsOrdered() {
				next = node.Start
			}
			r.lists = append(r.lists, next)
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			if len(r.lists) == 0 {
				r.pdf.Ln(pdfLineHeight + 2)
			}
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(pdfLineHeight)
			depth := len(r.lists)
			r.pdf.SetX(10 + float64(depth)*5)
			bullet := "- "
			if next := r.lists[depth-1]; next > 0 {
				bullet = strconv.Itoa(next) + ". "
				r.lists[depth-1]++
			}
			r.pdf.Write(pdfLineHeight, bullet)
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(10, r.pdf.GetY(), 200, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var row []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row = append(row, r.text(strings.TrimSpace(string(cell.Text(r.source)))))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	width := pdfPageWidth / float64(len(rows[0]))
	r.pdf.Ln(2)
	for i, row := range rows {
		style, fill := "", false
		if i == 0 {
			style, fill = "B", true
			r.pdf.SetFillColor(230, 230, 230)
		}
		r.pdf.SetFont(pdfFont, style, pdfFontSize-1)
		for _, cell := range row {
			r.pdf.CellFormat(width, pdfLineHeight+1, cell, "1", 0, "L", fill, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

// latin keeps the runes the cp1252 core fonts can draw.
func latin(s string) string {
	s = strings.ReplaceAll(s, infinity, "inf")
	var b strings.Builder
	dropped := false
	for _, c := range s {
		switch {
		case c == ' ' && dropped:
			// the space that followed a dropped marker
		case c < 0x80, c >= 0xA0 && c <= 0xFF, strings.ContainsRune("€–—‘’“”•", c):
			b.WriteRune(c)
		default:
			dropped = true
			continue
		}
		dropped = false
	}
	return b.String()
}
