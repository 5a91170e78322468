package analyzer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"go-face-verifier/internal/decision"
	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/extract"
	"go-face-verifier/internal/logger"
	"go-face-verifier/internal/preprocess"
	"go-face-verifier/internal/raster"
	"go-face-verifier/internal/similarity"
	"go-face-verifier/internal/strategy"
	"go-face-verifier/pkg/models"
	"go-face-verifier/pkg/validation"
)

// FaceLocator finds faces in a preprocessed image. *detector.Localizer is
// the production implementation.
type FaceLocator interface {
	Detect(res *preprocess.Result) (models.DetectionResult, error)
}

// Dependencies are the collaborators of the pipeline. Nil optional fields
// get defaults.
type Dependencies struct {
	Preprocessor *preprocess.Preprocessor
	Locator      FaceLocator
	Engine       *similarity.Engine
	Quality      QualityCalculator
	Validator    *validation.QualityValidator
	// Resources is closed by Close, typically the detector model handle.
	Resources io.Closer
}

type faceAnalyzer struct {
	preprocessor *preprocess.Preprocessor
	locator      FaceLocator
	engine       *similarity.Engine
	quality      QualityCalculator
	validator    *validation.QualityValidator
	resources    io.Closer
}

// NewFaceAnalyzer wires the pipeline. Locator is required.
func NewFaceAnalyzer(deps Dependencies) (FaceAnalyzer, error) {
	if deps.Locator == nil {
		return nil, errors.New("face analyzer: locator is required")
	}
	fa := &faceAnalyzer{
		preprocessor: deps.Preprocessor,
		locator:      deps.Locator,
		engine:       deps.Engine,
		quality:      deps.Quality,
		validator:    deps.Validator,
		resources:    deps.Resources,
	}
	if fa.preprocessor == nil {
		fa.preprocessor = preprocess.New(preprocess.DefaultOptions())
	}
	if fa.engine == nil {
		fa.engine = similarity.NewEngine(similarity.DefaultOptions())
	}
	if fa.quality == nil {
		fa.quality = NewQualityCalculator()
	}
	if fa.validator == nil {
		fa.validator = validation.NewQualityValidator()
	}
	return fa, nil
}

func (fa *faceAnalyzer) Prepare(img *raster.Image, opts ComparisonOptions) (*PreparedFace, error) {
	if img.Empty() {
		return nil, apperrors.ErrEmptyImage
	}

	var (
		pre *preprocess.Result
		err error
	)
	if opts.Preprocess {
		pre, err = fa.preprocessor.Preprocess(img)
	} else {
		pre, err = preprocess.Passthrough(img)
	}
	if err != nil {
		return nil, err
	}

	det, err := fa.locator.Detect(pre)
	if err != nil {
		return nil, err
	}
	out := &PreparedFace{Report: models.FaceReport{
		Detection:     det,
		RotationAngle: pre.Angle,
		Rotated:       pre.Rotated,
	}}

	box, ok := det.Primary()
	if !ok {
		return out, nil
	}
	face, err := extract.ExtractNormalized(pre.Corrected, box, opts.Padding, opts.CanonicalSize)
	if errors.Is(err, apperrors.ErrDegenerateCrop) {
		logger.WithError(err).WithField("box", box).Info("Face crop degenerate, treating as no face")
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Report.FaceBox = &box
	out.Face = face

	if !opts.SkipQuality {
		q, err := fa.assess(face)
		if err != nil {
			return nil, err
		}
		out.Report.Quality = q
	}
	return out, nil
}

// assess measures the face pixels only, not the letterbox around them.
func (fa *faceAnalyzer) assess(face *extract.NormalizedFace) (*models.FaceQuality, error) {
	region, err := face.Image.Crop(face.Placement)
	if err != nil {
		return nil, err
	}
	grayMat, err := region.GrayMat()
	if err != nil {
		return nil, err
	}
	defer grayMat.Close()
	gray, err := raster.FromMat(grayMat)
	if err != nil {
		return nil, err
	}

	q := &models.FaceQuality{
		Sharpness:  fa.quality.Sharpness(gray),
		Brightness: fa.quality.Brightness(gray),
	}
	fa.validator.AssessFace(q)
	return q, nil
}

func (fa *faceAnalyzer) Compare(portrait, document *raster.Image, opts ComparisonOptions) (models.ComparisonReport, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return models.ComparisonReport{}, err
	}
	strat, err := strategy.ForMethod(opts.Method)
	if err != nil {
		return models.ComparisonReport{}, err
	}

	pf, err := fa.Prepare(portrait, opts)
	if err != nil {
		return models.ComparisonReport{}, fmt.Errorf("portrait: %w", err)
	}
	df, err := fa.Prepare(document, opts)
	if err != nil {
		return models.ComparisonReport{}, fmt.Errorf("document: %w", err)
	}

	report := models.ComparisonReport{
		Portrait: pf.Report,
		Document: df.Report,
		Backends: fa.backendsFor(strat.Metrics()),
	}

	if pf.Face == nil || df.Face == nil {
		report.Result = models.NoFaceResult(strat.GetStrategyName(), opts.Threshold)
		logger.WithFields(logrus.Fields{
			"portrait_faces": pf.Report.Detection.FaceCount,
			"document_faces": df.Report.Detection.FaceCount,
		}).Info("No face detected, comparison skipped")
		return report, nil
	}

	report.Result, err = fa.CompareFaces(pf.Face.Image, df.Face.Image, opts)
	if err != nil {
		return models.ComparisonReport{}, err
	}

	logger.WithFields(logrus.Fields{
		"method":          report.Result.Method,
		"aggregate":       *report.Result.AggregateScore,
		"is_match":        *report.Result.IsMatch,
		"scores":          report.Result.Scores,
		"portrait_method": pf.Report.Detection.Method,
		"document_method": df.Report.Detection.Method,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Info("Face comparison completed")
	return report, nil
}

func (fa *faceAnalyzer) CompareFaces(a, b *raster.Image, opts ComparisonOptions) (models.ComparisonResult, error) {
	if err := decision.ValidateThreshold(opts.Threshold); err != nil {
		return models.ComparisonResult{}, err
	}
	strat, err := strategy.ForMethod(opts.Method)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	scores, err := fa.engine.Compare(a, b, strat.Metrics()...)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	return decision.Verdict(scores, strat.Aggregate(scores), opts.Threshold, strat.GetStrategyName())
}

func (fa *faceAnalyzer) ProcessIDCard(img *raster.Image, opts ComparisonOptions, sink FaceSink) (*IDCardResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	prepared, err := fa.Prepare(img, opts)
	if err != nil {
		return nil, err
	}

	det := prepared.Report.Detection
	res := &IDCardResult{
		FacesDetected: det.FaceCount,
		Boxes:         det.Boxes,
		Method:        det.Method,
		Quality:       prepared.Report.Quality,
	}
	if prepared.Face == nil {
		res.Message = "No faces detected in ID card"
		return res, nil
	}

	res.Success = true
	res.Face = prepared.Face
	res.Message = fmt.Sprintf("Detected %d face(s) using %s", det.FaceCount, det.Method)
	if sink != nil {
		loc, err := sink(prepared.Face)
		if err != nil {
			return nil, fmt.Errorf("persist face: %w", err)
		}
		res.SinkLocation = loc
	}
	return res, nil
}

func (fa *faceAnalyzer) backendsFor(metrics []string) map[string]string {
	all := fa.engine.Backends()
	out := make(map[string]string, len(metrics))
	for _, m := range metrics {
		out[m] = all[m]
	}
	return out
}

func (fa *faceAnalyzer) Backends() map[string]string {
	return fa.engine.Backends()
}

func (fa *faceAnalyzer) Close() error {
	if fa.resources != nil {
		return fa.resources.Close()
	}
	return nil
}
