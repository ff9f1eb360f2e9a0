// Package forecast renders a daily forecast series into the text block
// embedded in chat prompts.
package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-chat-service/internal/models"
	"github.com/kjstillabower/weather-chat-service/internal/outfit"
)

// MaxDays is the number of days rendered into a forecast block.
const MaxDays = 7

// DateLabelLayout renders dates as zero-padded day-month, e.g. "05-03".
const DateLabelLayout = "02-01"

// Format builds one line per day for at most MaxDays entries of days. Day i is
// labelled today+i; its mean temperature is rounded to one decimal and
// classified together with its precipitation.
func Format(days []models.DailyForecast, today time.Time) []models.ForecastLine {
	n := min(len(days), MaxDays)
	lines := make([]models.ForecastLine, 0, n)
	for i := 0; i < n; i++ {
		d := days[i]
		mean := roundOneDecimal((d.TempMax + d.TempMin) / 2)
		lines = append(lines, models.ForecastLine{
			DateLabel:    today.AddDate(0, 0, i).Format(DateLabelLayout),
			MeanTemp:     mean,
			OutfitAdvice: outfit.Classify(mean, d.Precipitation),
		})
	}
	return lines
}

// Line renders a single forecast line.
func Line(l models.ForecastLine) string {
	return fmt.Sprintf("%s: %.1f°C – %s", l.DateLabel, l.MeanTemp, l.OutfitAdvice)
}

// Block joins the rendered lines with newlines.
func Block(lines []models.ForecastLine) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Line(l)
	}
	return strings.Join(out, "\n")
}

// roundOneDecimal rounds the exact binary value of v to one decimal, ties to
// even, so 17.95 (stored just below) rounds down to 17.9.
func roundOneDecimal(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}
