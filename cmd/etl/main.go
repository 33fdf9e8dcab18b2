package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/ymakhloufi/banks-etl/internal/app/etl"
	"github.com/ymakhloufi/banks-etl/internal/pkg/config"
	"github.com/ymakhloufi/banks-etl/internal/pkg/store"
	"go.uber.org/zap"
)

func main() {
	verify := flag.Bool("verify", false, "re-read the CSV output after the run and report its row count")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	noErr(err)
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	openStore := func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, logger.Named("Store"))
	}

	svc := etl.NewService(cfg, client, openStore, os.Stdout, logger.Named("ETL"))
	if err := svc.Run(ctx); err != nil {
		logger.Error("banks etl failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	if *verify {
		banks, err := etl.ReadCSV(cfg.CSVPath)
		if err != nil {
			logger.Error("failed to verify csv output", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("verified csv output", zap.String("path", cfg.CSVPath), zap.Int("rows", len(banks)))
	}
}

func noErr(err error) {
	if err != nil {
		panic("failed to initialize something important: " + err.Error())
	}
}
