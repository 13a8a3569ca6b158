package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/pkg/util"

	"github.com/shopspring/decimal"
)

const (
	TagHistory  = "История"
	TagForecast = "Прогноз"
)

var header = []string{"Дата", "Тип", "Цена"}

// WriteCSV writes one row per history point, then one per forecast point.
func WriteCSV(w io.Writer, r *models.ForecastResult) error {
	if r == nil {
		return fmt.Errorf("nothing to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, block := range []struct {
		tag    string
		points []models.SeriesPoint
	}{
		{TagHistory, r.History},
		{TagForecast, r.Forecast},
	} {
		for _, p := range block.points {
			row := []string{util.FormatDate(p.Date), block.tag, decimal.NewFromFloat(p.Value).String()}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename is {ticker}_forecast_{YYYY-MM-DD}.csv for the export date.
func Filename(ticker string, at time.Time) string {
	return fmt.Sprintf("%s_forecast_%s.csv", ticker, util.FormatDate(at))
}
