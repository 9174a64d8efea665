// Package export writes the ranked shortlist to local spreadsheet files.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/gauguri/NobelPrediction/internal/viewstate"
)

// Sheet names in the exported workbook.
const (
	ShortlistSheet = "Shortlist"
	BacktestSheet  = "Backtest"
)

// DriverCount is how many attribution names are listed per candidate.
const DriverCount = 3

var shortlistHeader = []string{"Rank", "Candidate", "Affiliation", "Field", "Horizon", "Target Year", "Probability", "Top Drivers"}

var backtestHeader = []string{"Field", "K", "Hit@K", "AUC-PR", "Brier Score", "Years"}

// WriteXLSX renders the shortlist and canonical backtest of s as a workbook.
func WriteXLSX(w io.Writer, s viewstate.ViewState) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(ShortlistSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add shortlist sheet")
	}
	addHeader(sheet, shortlistHeader)
	for _, r := range s.Shortlist {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Rank)
		row.AddCell().SetString(r.Candidate.Name)
		row.AddCell().SetString(r.Candidate.Affiliation)
		row.AddCell().SetString(r.Field)
		row.AddCell().SetString(r.Horizon)
		row.AddCell().SetInt(r.TargetYear)
		row.AddCell().SetFloatWithFormat(r.Probability, "0.0%")
		row.AddCell().SetString(driverNames(r))
	}

	sheet, err = f.AddSheet(BacktestSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add backtest sheet")
	}
	addHeader(sheet, backtestHeader)
	if m := s.CanonicalBacktest(); m != nil {
		row := sheet.AddRow()
		row.AddCell().SetString(m.Field)
		row.AddCell().SetInt(m.K)
		row.AddCell().SetFloat(m.HitAtK)
		row.AddCell().SetFloat(m.AUCPR)
		row.AddCell().SetFloat(m.BrierScore)
		row.AddCell().SetString(fmt.Sprintf("%d-%d", m.YearsCovered.From, m.YearsCovered.To))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, s viewstate.ViewState) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "xlsx: create %s", path)
	}
	if err := WriteXLSX(out, s); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(out.Close(), "xlsx: close %s", path)
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func driverNames(r viewstate.RankedPrediction) string {
	drivers := viewstate.TopDrivers(r.PredictionRecord, DriverCount)
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
