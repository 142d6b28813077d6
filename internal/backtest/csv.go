package backtest

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// WriteLedgerCSV writes one row per game with a column per factor, in
// factorNames order.
func WriteLedgerCSV(path string, ledger []LedgerRow, factorNames []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"game_id",
		"game_date",
		"opponent",
		"venue",
		"home",
	}
	for _, n := range factorNames {
		header = append(header, "factor_"+n)
	}
	header = append(header,
		"predicted",
		"actual_points",
		"actual_normalized",
		"recommendation",
	)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			r.GameID,
			fmtDate(r.Date),
			r.Opponent,
			r.Venue,
			strconv.FormatBool(r.IsHome),
		}
		for _, n := range factorNames {
			row = append(row, fmtFloat(r.Factors[n]))
		}
		row = append(row,
			fmtFloat(r.Predicted),
			fmtFloat(r.Actual),
			fmtFloat(r.ActualNormalized),
			string(r.Recommendation),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
