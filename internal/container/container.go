package container

import (
	"fmt"
	"net/http"

	"go-face-verifier/internal/analyzer"
	"go-face-verifier/internal/config"
	"go-face-verifier/internal/detector"
	"go-face-verifier/internal/document"
	"go-face-verifier/internal/factory"
	"go-face-verifier/internal/logger"
	"go-face-verifier/internal/observer"
	"go-face-verifier/internal/repository"
	"go-face-verifier/internal/service"
	"go-face-verifier/internal/transport"
)

// Options selects optional parts of the graph.
type Options struct {
	// AllowLocalFiles lets image locations be filesystem paths.
	AllowLocalFiles bool
	// EnableOCR opens the Tesseract reader for document reconciliation.
	EnableOCR bool
}

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	analyzer analyzer.FaceAnalyzer
	reader   document.TextReader
	repo     repository.ImageRepository
	metrics  *observer.MetricsObserver
	service  service.VerificationService
	handler  http.Handler
}

// NewContainer builds the dependency graph from cfg.
func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	f := factory.NewComponentFactory(cfg)

	models, err := f.CreateModels()
	if err != nil {
		return nil, fmt.Errorf("failed to load detector models: %w", err)
	}
	fa, err := f.CreateAnalyzer(models)
	if err != nil {
		models.Close()
		return nil, err
	}

	c := &Container{config: cfg, analyzer: fa}
	if err := c.build(f, opts, models.Availability()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(f *factory.ComponentFactory, opts Options, avail detector.Availability) error {
	repo, err := f.CreateRepository(opts.AllowLocalFiles)
	if err != nil {
		return fmt.Errorf("failed to create image repository: %w", err)
	}
	c.repo = repo
	store, err := f.CreateFaceStore()
	if err != nil {
		return fmt.Errorf("failed to create face sink: %w", err)
	}
	if opts.EnableOCR {
		reader, err := f.CreateTextReader()
		if err != nil {
			logger.WithError(err).Warn("OCR unavailable, reconciliation needs ocr_fields")
		} else {
			c.reader = reader
		}
	}

	c.metrics = observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(c.metrics)

	deps := service.Dependencies{
		Analyzer:     c.analyzer,
		Repository:   repo,
		Validator:    f.Validator(),
		Options:      f.ComparisonOptions(),
		FaceStore:    store,
		Publisher:    publisher,
		Metrics:      c.metrics,
		Availability: avail,
		BatchWorkers: c.config.BatchWorkers,
	}
	if c.reader != nil {
		deps.TextReader = c.reader
	}
	c.service = service.NewVerificationService(deps)
	c.handler = transport.NewHandler(c.service, c.config)
	return nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

func (c *Container) Service() service.VerificationService {
	return c.service
}

func (c *Container) Repository() repository.ImageRepository {
	return c.repo
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the detector models and the OCR client.
func (c *Container) Close() error {
	var firstErr error
	if c.reader != nil {
		firstErr = c.reader.Close()
	}
	if c.analyzer != nil {
		if err := c.analyzer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
