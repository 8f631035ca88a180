package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"retradeBot/internal/domain"
)

// WriteSimulationResultsToCSV exports sweep results for spreadsheet analysis.
// Symbols are resolved through the given market lookup so the file is readable
// without the database at hand.
func WriteSimulationResultsToCSV(results []*domain.SimulationResult, symbols map[int64]string, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"symbol", "min_profit", "window_len", "samples", "roi_min", "roi_avg", "roi_max", "start_at", "end_at"})

	for _, r := range results {
		symbol := symbols[r.MarketID]
		if symbol == "" {
			symbol = strconv.FormatInt(r.MarketID, 10)
		}
		writer.Write([]string{
			symbol,
			r.MinProfit.String(),
			strconv.Itoa(r.WindowLen),
			strconv.Itoa(r.Samples),
			r.ROIMin.String(),
			r.ROIAvg.String(),
			r.ROIMax.String(),
			r.StartAt.Format(time.RFC3339),
			r.EndAt.Format(time.RFC3339),
		})
	}
	return writer.Error()
}

// WriteCandlesToCSV exports a candle series, oldest first.
func WriteCandlesToCSV(candles []*domain.Candle, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"timestamp", "timeframe", "open", "high", "low", "close", "volume"})

	for _, c := range candles {
		writer.Write([]string{
			c.Timestamp.Format(time.RFC3339),
			string(c.Timeframe),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
		})
	}
	return writer.Error()
}
