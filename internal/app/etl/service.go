package etl

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/ymakhloufi/banks-etl/internal/pkg/config"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"github.com/ymakhloufi/banks-etl/internal/pkg/store"
	"go.uber.org/zap"
)

// Opener connects to the relational sink. It is called once per run, after
// the CSV file has been written.
type Opener func(ctx context.Context) (store.Store, error)

type Service struct {
	cfg         *config.Config
	extractor   *Extractor
	transformer *Transformer
	progress    *ProgressLog
	openStore   Opener
	out         io.Writer
	logger      *zap.Logger
}

func NewService(cfg *config.Config, client *http.Client, openStore Opener, out io.Writer, logger *zap.Logger) *Service {
	return &Service{
		cfg:         cfg,
		extractor:   NewExtractor(client, logger.Named("Extractor")),
		transformer: NewTransformer(logger.Named("Transformer")),
		progress:    NewProgressLog(cfg.LogPath, logger.Named("Progress")),
		openStore:   openStore,
		out:         out,
		logger:      logger,
	}
}

// Run executes extract, transform, both loads and the query, strictly in
// that order. The first failure aborts the run; progress lines written
// before it stay in the log file.
func (s Service) Run(ctx context.Context) (err error) {
	logger := s.logger.With(zap.String("run_id", uuid.NewString()))

	if err := s.progress.Log(msgPreliminaries); err != nil {
		return err
	}

	records, err := s.extractor.Extract(ctx, s.cfg.SourceURL, model.ExtractColumns)
	if err != nil {
		return fmt.Errorf("failed to extract banks: %w", err)
	}
	logger.Info("extracted banks",
		zap.Int("rows", records.Len()),
		zap.String("extracted_on", records.ExtractedOn.String()))

	if err := s.progress.Log(msgExtracted); err != nil {
		return err
	}

	records, err = s.transformer.Transform(records, s.cfg.RateTablePath)
	if err != nil {
		return fmt.Errorf("failed to transform banks: %w", err)
	}
	if err := s.progress.Log(msgTransformed); err != nil {
		return err
	}

	if err := LoadToCSV(records, s.cfg.CSVPath); err != nil {
		return fmt.Errorf("failed to load banks to csv: %w", err)
	}
	logger.Debug("wrote csv", zap.String("path", s.cfg.CSVPath))
	if err := s.progress.Log(msgSavedCSV); err != nil {
		return err
	}

	db, err := s.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database", zap.Error(closeErr))
			if err == nil {
				err = fmt.Errorf("%w: failed to close database: %w", model.ErrStorage, closeErr)
			}
			return
		}
		if err == nil {
			err = s.progress.Log(msgConnectionClose)
		}
	}()
	if err := s.progress.Log(msgConnected); err != nil {
		return err
	}

	if err := db.ReplaceBanks(ctx, s.cfg.DB.Table, records.Banks); err != nil {
		return fmt.Errorf("failed to load banks to database: %w", err)
	}
	logger.Debug("loaded table", zap.String("table", s.cfg.DB.Table))
	if err := s.progress.Log(msgLoadedDB); err != nil {
		return err
	}

	if err := RunQuery(ctx, s.out, s.cfg.Query, db); err != nil {
		return fmt.Errorf("failed to run query: %w", err)
	}

	return s.progress.Log(msgComplete)
}
