package factory

import (
	"fmt"

	"go-face-verifier/internal/analyzer"
	"go-face-verifier/internal/config"
	"go-face-verifier/internal/detector"
	"go-face-verifier/internal/document"
	"go-face-verifier/internal/preprocess"
	"go-face-verifier/internal/repository"
	"go-face-verifier/internal/similarity"
	"go-face-verifier/internal/storage"
	"go-face-verifier/pkg/validation"
)

// ComponentFactory builds the pipeline and its collaborators from config.
type ComponentFactory struct {
	cfg       *config.Config
	validator *validation.QualityValidator
	blob      *storage.BlobStorage
}

func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	thresholds := validation.DefaultQualityThresholds()
	thresholds.MaxFileBytes = cfg.MaxRequestBodySize
	return &ComponentFactory{
		cfg:       cfg,
		validator: validation.NewQualityValidatorWithThresholds(thresholds),
	}
}

func (f *ComponentFactory) Validator() *validation.QualityValidator {
	return f.validator
}

// ComparisonOptions returns the configured default options.
func (f *ComponentFactory) ComparisonOptions() analyzer.ComparisonOptions {
	opts := analyzer.DefaultOptions().
		WithMethod(f.cfg.ComparisonMethod).
		WithThreshold(f.cfg.MatchThreshold).
		WithPadding(f.cfg.FacePadding).
		WithCanonicalSize(f.cfg.CanonicalFaceSize)
	if !f.cfg.PreprocessEnabled {
		opts = opts.WithoutPreprocessing()
	}
	return opts
}

// CreateModels loads the detector resources. A missing frontal cascade is
// fatal, the other resources are optional.
func (f *ComponentFactory) CreateModels() (*detector.Models, error) {
	models := detector.NewModels(detector.ModelConfig{
		FrontalCascadePath: f.cfg.FaceCascadePath,
		ProfileCascadePath: f.cfg.ProfileCascadePath,
		DNNConfigPath:      f.cfg.DNNConfigPath,
		DNNModelPath:       f.cfg.DNNModelPath,
		SearchDirs:         detector.DefaultCascadeDirs,
	})
	if err := models.Load(); err != nil {
		models.Close()
		return nil, err
	}
	return models, nil
}

// CreateAnalyzer wires the full pipeline over models. The analyzer owns
// models and closes them.
func (f *ComponentFactory) CreateAnalyzer(models *detector.Models) (analyzer.FaceAnalyzer, error) {
	engineOpts := similarity.DefaultOptions()
	engineOpts.StructuralSimilarity = f.cfg.SSIMEnabled

	return analyzer.NewFaceAnalyzer(analyzer.Dependencies{
		Preprocessor: preprocess.New(preprocess.DefaultOptions()),
		Locator:      detector.NewLocalizer(detector.DefaultChain(models, float32(f.cfg.DNNConfidence))...),
		Engine:       similarity.NewEngine(engineOpts),
		Quality:      analyzer.NewQualityCalculator(),
		Validator:    f.validator,
		Resources:    models,
	})
}

// BlobStorage returns the shared Azure client, or nil when no credentials
// are configured.
func (f *ComponentFactory) BlobStorage() (*storage.BlobStorage, error) {
	if f.blob != nil || !f.cfg.AzureConfigured() {
		return f.blob, nil
	}
	blob, err := storage.NewAzureStorage(f.cfg.AzureStorageAccountName, f.cfg.AzureStorageAccountKey, f.cfg.AzureStorageContainer)
	if err != nil {
		return nil, err
	}
	f.blob = blob
	return blob, nil
}

// CreateRepository registers the http(s) fetcher, the blob source when
// configured and, if allowFiles is set, the local filesystem.
func (f *ComponentFactory) CreateRepository(allowFiles bool) (*repository.SourceRepository, error) {
	httpOpts := storage.DefaultHTTPOptions()
	httpOpts.Timeout = f.cfg.ImageFetchTimeout
	httpOpts.MaxBytes = f.cfg.MaxRequestBodySize
	fetcher := storage.NewHTTPImageFetcher(httpOpts)

	repo := repository.NewSourceRepository(validation.NewURLValidator(), f.validator).
		Register("http", fetcher).
		Register("https", fetcher)

	blob, err := f.BlobStorage()
	if err != nil {
		return nil, err
	}
	if blob != nil {
		repo.Register(validation.SchemeBlob, blob)
	}
	if allowFiles {
		repo.Register(repository.SchemeFile, storage.NewFileSource())
	}
	return repo, nil
}

// CreateFaceStore returns the configured face sink, nil for none.
func (f *ComponentFactory) CreateFaceStore() (storage.FaceStore, error) {
	switch f.cfg.FaceSink {
	case config.SinkNone:
		return nil, nil
	case config.SinkLocal:
		return storage.NewLocalFaceStore(f.cfg.FaceSinkDir), nil
	case config.SinkAzure:
		blob, err := f.BlobStorage()
		if err != nil {
			return nil, err
		}
		if blob == nil {
			return nil, fmt.Errorf("azure face sink requires storage credentials")
		}
		return blob, nil
	default:
		return nil, fmt.Errorf("unsupported face sink: %s", f.cfg.FaceSink)
	}
}

// CreateTextReader opens a Tesseract reader for the configured language.
func (f *ComponentFactory) CreateTextReader() (document.TextReader, error) {
	reader, err := document.NewTesseractReader(f.cfg.OCRLanguage)
	if err != nil {
		return nil, err
	}
	return reader, nil
}
