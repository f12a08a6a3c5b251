// Package journal renders a game's encounter history as a PDF.
package journal

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/textfmt"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// Write renders the journal for gs to w.
func Write(w io.Writer, gs *state.GameState, lib *content.Library) error {
	if gs == nil {
		return fmt.Errorf("gamestate is required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Druid's Journal", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	name := gs.DruidID
	if lib != nil && lib.Druid.ID == gs.DruidID && lib.Druid.Name != "" {
		name = lib.Druid.Name
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Journal of %s", textfmt.Title(name))), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, lineHeight, fmt.Sprintf("Game %s", gs.ID), "", 1, "L", false, 0, "")
	if gs.Clock != nil {
		pdf.CellFormat(0, lineHeight, fmt.Sprintf("Day %d, %02d:00 (%s)", gs.Clock.Day, gs.Clock.Hour, gs.Clock.Phase()), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	var records []history.Record
	if gs.History != nil {
		records = gs.History.Records()
	}
	writeStats(pdf, history.Summarize(records))
	writeRecords(pdf, tr, records, lib)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render journal: %w", err)
	}
	return nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func writeStats(pdf *gofpdf.Fpdf, s history.Stats) {
	heading(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 10)

	rows := [][2]string{
		{"Encounters", fmt.Sprint(s.Total)},
		{"Peaceful", fmt.Sprintf("%d (%s)", s.ByResult["peaceful"], textfmt.Percent(s.ByResult["peaceful"], s.Total))},
		{"Current streak", fmt.Sprint(s.CurrentStreak)},
		{"Best streak", fmt.Sprint(s.BestStreak)},
	}
	for _, result := range sortedKeys(s.ByResult) {
		if result == "peaceful" {
			continue
		}
		rows = append(rows, [2]string{textfmt.Title(result), fmt.Sprint(s.ByResult[result])})
	}
	for _, r := range rows {
		pdf.CellFormat(50, lineHeight, r[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, lineHeight, r[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func writeRecords(pdf *gofpdf.Fpdf, tr func(string) string, records []history.Record, lib *content.Library) {
	heading(pdf, "Encounters")
	if len(records) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, lineHeight, "No encounters yet.", "", 1, "L", false, 0, "")
		return
	}
	for i, r := range records {
		pdf.SetFont("Helvetica", "B", 11)
		title := fmt.Sprintf("%d. %s: %s", i+1, zoneName(lib, r.ZoneID), textfmt.Title(r.Result))
		pdf.CellFormat(0, 7, tr(title), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		details := fmt.Sprintf("Day %d, %s, %s. %d turns.", r.Day, r.TimePhase, r.Weather, r.Turns)
		if len(r.NPCs) > 0 {
			names := make([]string, len(r.NPCs))
			for j, n := range r.NPCs {
				names[j] = textfmt.Title(n)
			}
			details += " Between " + strings.Join(names, " and ") + "."
		}
		if r.HarmDone {
			details += " Blood was drawn."
		}
		pdf.MultiCell(0, lineHeight, tr(details), "", "L", false)
		if len(r.Actions) > 0 {
			actions := make([]string, len(r.Actions))
			for j, a := range r.Actions {
				actions[j] = textfmt.Title(a)
			}
			pdf.MultiCell(0, lineHeight, tr("Actions: "+strings.Join(actions, ", ")), "", "L", false)
		}
		if lib != nil {
			if text := lib.Narrative(r.ZoneID, r.Result); text != "" {
				pdf.SetFont("Helvetica", "I", 10)
				pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
			}
		}
		pdf.Ln(3)
	}
}

func zoneName(lib *content.Library, id string) string {
	if lib != nil {
		if z, ok := lib.Zone(id); ok && z.Name != "" {
			return z.Name
		}
	}
	return textfmt.Title(id)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
