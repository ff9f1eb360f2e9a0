package models

import "time"

// DailyForecast is one calendar day of forecast data. TempMax >= TempMin is
// expected from upstream but not enforced.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	TempMax       float64   `json:"tempMax"`
	TempMin       float64   `json:"tempMin"`
	Precipitation float64   `json:"precipitation"`
}

// ForecastLine is the per-day summary rendered into the chat prompt.
type ForecastLine struct {
	DateLabel    string  `json:"dateLabel"`
	MeanTemp     float64 `json:"meanTemp"`
	OutfitAdvice string  `json:"outfitAdvice"`
}

// ChatReply is the body returned by POST /api/chat on success.
type ChatReply struct {
	Reply string `json:"reply"`
	City  string `json:"city"`
	Type  string `json:"type"`
}
