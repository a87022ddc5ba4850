// Command soilicdd is the soilicd HTTP service. It loads the reference
// dataset once at startup and serves the scoring endpoints, a health check
// and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/soilicd/soilicd/internal/api"
	"github.com/soilicd/soilicd/internal/log"
	"github.com/soilicd/soilicd/internal/source"
	"github.com/soilicd/soilicd/pkg/config"
	"github.com/soilicd/soilicd/pkg/scoring"
)

type serviceConfig struct {
	Port        string
	ConfigPath  string
	DatasetURI  string
	ForecastURI string
	APIKey      string
	Debug       bool
	S3          source.S3Config
}

func loadServiceConfig() serviceConfig {
	debug, _ := strconv.ParseBool(os.Getenv("SOILICD_DEBUG"))
	return serviceConfig{
		Port:        envOrDefault("PORT", "8080"),
		ConfigPath:  os.Getenv("SOILICD_CONFIG"),
		DatasetURI:  os.Getenv("SOILICD_DATASET"),
		ForecastURI: os.Getenv("SOILICD_FORECAST"),
		APIKey:      os.Getenv("SOILICD_API_KEY"),
		Debug:       debug,
		S3: source.S3Config{
			Region:    os.Getenv("AWS_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	}
}

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := loadServiceConfig()
	if err := log.Init(cfg.Debug); err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := buildHandler(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("starting soilicdd", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown error", "error", err)
	}
}

// buildHandler loads configuration and reference data and assembles the
// middleware chain.
func buildHandler(ctx context.Context, cfg serviceConfig) (http.Handler, error) {
	appCfg := config.DefaultConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		appCfg = loaded
	}

	simOpts, err := appCfg.SimulatorOptions()
	if err != nil {
		return nil, err
	}
	valOpts, err := appCfg.ValidationOptions()
	if err != nil {
		return nil, err
	}

	fetcher := source.NewFetcher(cfg.S3)
	datasetURI := cfg.DatasetURI
	if datasetURI == "" {
		datasetURI = appCfg.Data.Dataset
	}
	if datasetURI == "" {
		return nil, errors.New("no reference dataset: set SOILICD_DATASET or data.dataset")
	}
	d, warnings, err := fetcher.LoadDataset(ctx, datasetURI)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warnw("dataset cell skipped", "detail", w)
	}

	var forecast scoring.Forecaster
	forecastURI := cfg.ForecastURI
	if forecastURI == "" {
		forecastURI = appCfg.Data.Forecast
	}
	if forecastURI != "" {
		fc, err := fetcher.LoadForecast(ctx, forecastURI)
		if err != nil {
			return nil, err
		}
		forecast = fc
	}

	metrics := api.NewMetrics()
	refs := api.NewReferenceCacheFromEnv(d, metrics)
	engine, err := appCfg.NewEngine(refs, forecast)
	if err != nil {
		return nil, err
	}

	h := api.NewHandler(engine, api.Options{Simulator: simOpts, Validation: valOpts}, metrics)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return api.RequestLog(api.CORS(api.APIKeyAuth(cfg.APIKey)(mux))), nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
