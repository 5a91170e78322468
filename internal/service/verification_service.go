package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-face-verifier/internal/analyzer"
	"go-face-verifier/internal/detector"
	"go-face-verifier/internal/document"
	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/extract"
	"go-face-verifier/internal/observer"
	"go-face-verifier/internal/raster"
	"go-face-verifier/internal/reconcile"
	"go-face-verifier/internal/repository"
	"go-face-verifier/internal/storage"
	"go-face-verifier/internal/strategy"
	"go-face-verifier/pkg/models"
	"go-face-verifier/pkg/validation"
)

// VerificationService is the use-case layer shared by the HTTP API and the
// CLI.
type VerificationService interface {
	CompareImages(ctx context.Context, portrait, document []byte, opts analyzer.ComparisonOptions) (*models.ComparisonResponse, error)
	CompareURLs(ctx context.Context, req models.CompareURLRequest) (*models.ComparisonResponse, error)
	CompareBatch(ctx context.Context, pairs []models.ComparePair, opts analyzer.ComparisonOptions, progress func()) []models.BatchItem
	DetectFaces(ctx context.Context, data []byte) (*models.DetectionResponse, error)
	ExtractFace(ctx context.Context, data []byte, persist bool) (*models.ExtractionResponse, error)
	Reconcile(ctx context.Context, req models.ReconcileRequest) (*models.ReconcileReport, error)
	Capabilities() models.CapabilitiesResponse
	Stats() map[string]interface{}
	// Options returns the configured default comparison options.
	Options() analyzer.ComparisonOptions
}

// Dependencies of the verification service. FaceStore, TextReader and
// Metrics are optional.
type Dependencies struct {
	Analyzer     analyzer.FaceAnalyzer
	Repository   repository.ImageRepository
	Validator    *validation.QualityValidator
	Options      analyzer.ComparisonOptions
	FaceStore    storage.FaceStore
	TextReader   document.TextReader
	Publisher    observer.Subject
	Metrics      *observer.MetricsObserver
	Availability detector.Availability
	BatchWorkers int
}

type verificationService struct {
	deps     Dependencies
	sequence atomic.Uint64
}

func NewVerificationService(deps Dependencies) VerificationService {
	if deps.Validator == nil {
		deps.Validator = validation.NewQualityValidator()
	}
	if deps.Publisher == nil {
		deps.Publisher = observer.NewEventPublisher()
	}
	if deps.BatchWorkers <= 0 {
		deps.BatchWorkers = 1
	}
	return &verificationService{deps: deps}
}

func (s *verificationService) Options() analyzer.ComparisonOptions {
	return s.deps.Options
}

func (s *verificationService) publish(ctx context.Context, event observer.VerificationEvent) {
	s.deps.Publisher.NotifyObservers(ctx, event)
}

func (s *verificationService) decode(data []byte) (*raster.Image, error) {
	img, _, err := repository.DecodeUpload(data, s.deps.Validator)
	return img, err
}

func (s *verificationService) CompareImages(ctx context.Context, portrait, document []byte, opts analyzer.ComparisonOptions) (*models.ComparisonResponse, error) {
	pImg, err := s.decode(portrait)
	if err != nil {
		return nil, apperrors.Classify(err, "Invalid portrait image").WithDetails("portrait")
	}
	dImg, err := s.decode(document)
	if err != nil {
		return nil, apperrors.Classify(err, "Invalid document image").WithDetails("document")
	}
	return s.compare(ctx, "upload", pImg, dImg, opts)
}

func (s *verificationService) CompareURLs(ctx context.Context, req models.CompareURLRequest) (*models.ComparisonResponse, error) {
	opts := s.deps.Options
	if req.Method != "" {
		opts = opts.WithMethod(req.Method)
	}
	if req.Threshold != nil {
		opts = opts.WithThreshold(*req.Threshold)
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.Classify(err, "Invalid comparison options")
	}

	pImg, err := s.fetch(ctx, req.PortraitURL)
	if err != nil {
		return nil, err
	}
	dImg, err := s.fetch(ctx, req.DocumentURL)
	if err != nil {
		return nil, err
	}
	return s.compare(ctx, req.DocumentURL, pImg, dImg, opts)
}

func (s *verificationService) fetch(ctx context.Context, location string) (*raster.Image, error) {
	start := time.Now()
	img, meta, err := s.deps.Repository.FetchImage(ctx, location)
	if err != nil {
		s.publish(ctx, observer.VerificationEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         location,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, apperrors.Classify(err, "Failed to fetch image")
	}
	s.publish(ctx, observer.VerificationEvent{
		EventType:      observer.ImageFetched,
		Source:         location,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"image": meta.String()},
	})
	return img, nil
}

func (s *verificationService) compare(ctx context.Context, source string, portrait, document *raster.Image, opts analyzer.ComparisonOptions) (*models.ComparisonResponse, error) {
	start := time.Now()
	s.publish(ctx, observer.VerificationEvent{EventType: observer.ComparisonStarted, Source: source})

	fail := func(err error) (*models.ComparisonResponse, error) {
		s.publish(ctx, observer.VerificationEvent{
			EventType:      observer.ComparisonFailed,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(apperrors.NewTimeoutError("Comparison cancelled", err))
	}
	report, err := s.deps.Analyzer.Compare(portrait, document, opts)
	if err != nil {
		return fail(apperrors.Classify(err, "Face comparison failed"))
	}
	if err := ctx.Err(); err != nil {
		return fail(apperrors.NewTimeoutError("Comparison timed out", err))
	}

	s.publishDetection(ctx, source, report.Portrait)
	s.publishDetection(ctx, source, report.Document)

	elapsed := time.Since(start)
	meta := map[string]interface{}{"method": report.Result.Method}
	if report.Result.Compared() {
		meta[observer.MetadataMatch] = *report.Result.IsMatch
		meta["aggregate"] = *report.Result.AggregateScore
	}
	s.publish(ctx, observer.VerificationEvent{
		EventType:      observer.ComparisonCompleted,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       meta,
	})

	return &models.ComparisonResponse{
		ComparisonReport:  report,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ProcessingTimeSec: elapsed.Seconds(),
	}, nil
}

func (s *verificationService) publishDetection(ctx context.Context, source string, report models.FaceReport) {
	event := observer.VerificationEvent{
		EventType: observer.FaceDetected,
		Source:    source,
		Success:   true,
		Metadata: map[string]interface{}{
			"method":     report.Detection.Method,
			"face_count": report.Detection.FaceCount,
		},
	}
	if report.FaceBox == nil {
		event.EventType = observer.NoFaceDetected
		event.Success = false
	}
	s.publish(ctx, event)
}

// CompareBatch compares every pair on the worker pool. Items come back in
// input order. progress, when set, is called once per finished pair and
// never concurrently.
func (s *verificationService) CompareBatch(ctx context.Context, pairs []models.ComparePair, opts analyzer.ComparisonOptions, progress func()) []models.BatchItem {
	items := make([]models.BatchItem, len(pairs))
	pool := analyzer.NewWorkerPool(min(s.deps.BatchWorkers, max(len(pairs), 1)))
	pool.Start()
	defer pool.Close()

	var mu sync.Mutex
	for i, pair := range pairs {
		pool.Submit(func() {
			item := models.BatchItem{Index: i, Pair: pair}
			if err := ctx.Err(); err != nil {
				item.Error = err.Error()
			} else if resp, err := s.compareURLs(ctx, pair, opts); err != nil {
				item.Error = err.Error()
			} else {
				item.Report = resp
			}
			items[i] = item
			if progress != nil {
				mu.Lock()
				progress()
				mu.Unlock()
			}
		})
	}
	pool.Wait()
	return items
}

func (s *verificationService) compareURLs(ctx context.Context, pair models.ComparePair, opts analyzer.ComparisonOptions) (*models.ComparisonResponse, error) {
	pImg, err := s.fetch(ctx, pair.PortraitURL)
	if err != nil {
		return nil, err
	}
	dImg, err := s.fetch(ctx, pair.DocumentURL)
	if err != nil {
		return nil, err
	}
	return s.compare(ctx, pair.DocumentURL, pImg, dImg, opts)
}

func (s *verificationService) DetectFaces(ctx context.Context, data []byte) (*models.DetectionResponse, error) {
	start := time.Now()
	img, err := s.decode(data)
	if err != nil {
		return nil, apperrors.Classify(err, "Invalid image")
	}
	prepared, err := s.deps.Analyzer.Prepare(img, s.deps.Options.WithoutQuality())
	if err != nil {
		return nil, apperrors.Classify(err, "Face detection failed")
	}
	s.publishDetection(ctx, "upload", prepared.Report)

	return &models.DetectionResponse{
		Detection:         prepared.Report.Detection,
		RotationAngle:     prepared.Report.RotationAngle,
		ImageWidth:        img.Width,
		ImageHeight:       img.Height,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

func (s *verificationService) ExtractFace(ctx context.Context, data []byte, persist bool) (*models.ExtractionResponse, error) {
	start := time.Now()
	img, err := s.decode(data)
	if err != nil {
		return nil, apperrors.Classify(err, "Invalid image")
	}

	var sink analyzer.FaceSink
	if persist {
		if s.deps.FaceStore == nil {
			return nil, apperrors.NewUnavailableError("No face sink configured", nil)
		}
		sink = s.sinkFor(ctx)
	}

	res, err := s.deps.Analyzer.ProcessIDCard(img, s.deps.Options, sink)
	if err != nil {
		return nil, apperrors.Classify(err, "Face extraction failed")
	}
	s.publishDetection(ctx, "upload", models.FaceReport{
		Detection: models.DetectionResult{Method: res.Method, FaceCount: res.FacesDetected},
		FaceBox:   boxOf(res),
	})

	resp := &models.ExtractionResponse{
		FacesDetected: res.FacesDetected,
		Boxes:         res.Boxes,
		Method:        res.Method,
		Success:       res.Success,
		Message:       res.Message,
		Quality:       res.Quality,
		SinkLocation:  res.SinkLocation,
	}
	if res.Face != nil {
		png, err := res.Face.Image.PNGBytes()
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to encode face", err)
		}
		resp.FacePNG = base64.StdEncoding.EncodeToString(png)
	}
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.ProcessingTimeSec = time.Since(start).Seconds()
	return resp, nil
}

func boxOf(res *analyzer.IDCardResult) *models.BoundingBox {
	if !res.Success || len(res.Boxes) == 0 {
		return nil
	}
	return &res.Boxes[0]
}

// sinkFor adapts the configured FaceStore to the pipeline's FaceSink.
func (s *verificationService) sinkFor(ctx context.Context) analyzer.FaceSink {
	return func(face *extract.NormalizedFace) (string, error) {
		png, err := face.Image.PNGBytes()
		if err != nil {
			return "", err
		}
		name := fmt.Sprintf("face_%s_%d.png", time.Now().UTC().Format("20060102T150405"), s.sequence.Add(1))
		loc, err := s.deps.FaceStore.SaveFace(ctx, name, png)
		if err != nil {
			return "", err
		}
		s.publish(ctx, observer.VerificationEvent{
			EventType: observer.FacePersisted,
			Source:    loc,
			Success:   true,
		})
		return loc, nil
	}
}

func (s *verificationService) Reconcile(ctx context.Context, req models.ReconcileRequest) (*models.ReconcileReport, error) {
	var (
		report models.ReconcileReport
		err    error
	)
	switch {
	case len(req.OCRFields) > 0:
		report, err = reconcile.Reconcile(req.IDType, req.UserFields, req.OCRFields)
	case req.DocumentURL != "":
		if s.deps.TextReader == nil {
			return nil, apperrors.NewUnavailableError("No document text reader configured", nil)
		}
		img, ferr := s.fetch(ctx, req.DocumentURL)
		if ferr != nil {
			return nil, ferr
		}
		text, rerr := s.deps.TextReader.ReadText(ctx, img)
		if rerr != nil {
			return nil, apperrors.NewProcessingError("Failed to read document text", rerr)
		}
		report, err = reconcile.MatchAgainstText(req.IDType, req.UserFields, text)
	default:
		return nil, apperrors.NewValidationError("Either ocr_fields or document_url is required", nil)
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Unknown ID type", err).WithDetails(req.IDType)
	}

	s.publish(ctx, observer.VerificationEvent{
		EventType: observer.Reconciled,
		Success:   report.Valid,
		Metadata:  map[string]interface{}{"id_type": report.IDType, "valid": report.Valid},
	})
	return &report, nil
}

func (s *verificationService) Capabilities() models.CapabilitiesResponse {
	return models.CapabilitiesResponse{
		Metrics:           s.deps.Analyzer.Backends(),
		ComparisonMethods: strategy.Methods(),
		DNNAvailable:      s.deps.Availability.DNN,
		ProfileAvailable:  s.deps.Availability.Profile,
		DefaultThreshold:  s.deps.Options.Threshold,
	}
}

func (s *verificationService) Stats() map[string]interface{} {
	if s.deps.Metrics == nil {
		return map[string]interface{}{}
	}
	return s.deps.Metrics.GetMetrics()
}
