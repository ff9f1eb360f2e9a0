package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-chat-service/internal/client"
	"github.com/kjstillabower/weather-chat-service/internal/clientip"
	"github.com/kjstillabower/weather-chat-service/internal/config"
	"github.com/kjstillabower/weather-chat-service/internal/forecast"
)

var forecastIP string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print the forecast block the chat prompt would use for an IP",
	Long: `Geolocates --ip, fetches its forecast and prints the formatted lines
with outfit advice. No text generation is performed.`,
	Args: cobra.NoArgs,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastIP, "ip", clientip.DefaultIP, "public IP address to geolocate")
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	geo := client.NewIPAPIClient(cfg.GeoAPIURL, cfg.GeoAPITimeout, cfg.GeoDefaultTimezone)
	forecasts := client.NewOpenMeteoClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout, cfg.ForecastWindowDays)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GeoAPITimeout+cfg.ForecastAPITimeout)
	defer cancel()

	loc, err := geo.Locate(ctx, forecastIP)
	if err != nil {
		return fmt.Errorf("locate %s: %w", forecastIP, err)
	}
	zone, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		zone = time.UTC
	}
	today := time.Now().In(zone)

	days, err := forecasts.DailyForecast(ctx, loc, today)
	if err != nil {
		return fmt.Errorf("forecast for %s: %w", loc.City, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%.4f, %.4f, %s)\n", loc.City, loc.Latitude, loc.Longitude, zone)
	fmt.Fprintln(out, forecast.Block(forecast.Format(days, today)))
	return nil
}
