// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres (A4 portrait).
const (
	marginLeft    = 20.0
	indentLeft    = 25.0
	contentTop    = 30.0
	contentBottom = 260.0
	footerY       = 285.0
)

type rgb struct{ r, g, b int }

var (
	colorText   = rgb{44, 62, 80}
	colorAccent = rgb{52, 152, 219}
	colorMuted  = rgb{128, 128, 128}
)

// pdfWriter tracks the vertical cursor and breaks pages when it passes the
// content area.
type pdfWriter struct {
	doc *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

func (p *pdfWriter) style(size float64, bold bool, c rgb) {
	styleStr := ""
	if bold {
		styleStr = "B"
	}
	p.doc.SetFont("Helvetica", styleStr, size)
	p.doc.SetTextColor(c.r, c.g, c.b)
}

// line writes s at x and advances the cursor by step, starting a new page
// first when the cursor is already below the content area.
func (p *pdfWriter) line(x float64, s string, step float64) {
	if p.y > contentBottom {
		p.doc.AddPage()
		p.y = contentTop
	}
	p.doc.Text(x, p.y, p.tr(s))
	p.y += step
}

func (p *pdfWriter) section(title string) {
	p.style(14, true, colorText)
	p.line(marginLeft, title, 15)
}

// WritePostReportPDF renders r as a PDF document and returns its page count.
func WritePostReportPDF(w io.Writer, r PostReport) (int, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Post Statistics Report: "+r.PostTitle, true)
	doc.SetCreator("oblog", true)
	doc.SetCreationDate(r.GeneratedAt)
	doc.SetAutoPageBreak(false, 0)
	doc.AliasNbPages("")

	p := &pdfWriter{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}

	doc.SetFooterFunc(func() {
		p.style(8, false, colorMuted)
		doc.Text(marginLeft, footerY, p.tr(fmt.Sprintf("Generated on %s  |  Report %s",
			r.GeneratedAt.Format("2006-01-02 15:04 UTC"), r.ID)))
		doc.Text(170, footerY, fmt.Sprintf("Page %d of {nb}", doc.PageNo()))
	})

	doc.AddPage()

	p.style(20, true, colorText)
	doc.Text(marginLeft, 30, "Post Statistics Report")
	p.style(16, false, colorAccent)
	doc.Text(marginLeft, 50, p.tr("Post: "+r.PostTitle))
	p.y = 70

	p.section("Statistics Overview:")
	for _, s := range r.Overview {
		p.style(11, false, colorText)
		p.line(indentLeft, "• "+s, 8)
	}
	p.y += 10

	if len(r.Excerpt) > 0 {
		p.section("Content Excerpt:")
		for _, s := range r.Excerpt {
			p.style(10, false, colorText)
			p.line(indentLeft, s, 6)
		}
		p.y += 10
	}

	if len(r.Activity) > 0 {
		p.section("Recent Activity:")
		for _, s := range r.Activity {
			p.style(10, false, colorText)
			p.line(indentLeft, "• "+s, 8)
		}
	}

	pages := doc.PageCount()
	if err := doc.Output(w); err != nil {
		return 0, fmt.Errorf("rendering PDF: %w", err)
	}
	return pages, nil
}
