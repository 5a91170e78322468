package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-face-verifier/internal/analyzer"
	"go-face-verifier/internal/config"
	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/pkg/models"
)

type fakeService struct {
	gotOpts     analyzer.ComparisonOptions
	gotPortrait []byte
	gotPersist  bool
	gotURLReq   models.CompareURLRequest
	err         error
}

func (f *fakeService) CompareImages(_ context.Context, portrait, _ []byte, opts analyzer.ComparisonOptions) (*models.ComparisonResponse, error) {
	f.gotOpts, f.gotPortrait = opts, portrait
	if f.err != nil {
		return nil, f.err
	}
	return &models.ComparisonResponse{ComparisonReport: models.ComparisonReport{
		Result: models.NoFaceResult(opts.Method, opts.Threshold),
	}}, nil
}

func (f *fakeService) CompareURLs(_ context.Context, req models.CompareURLRequest) (*models.ComparisonResponse, error) {
	f.gotURLReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ComparisonResponse{}, nil
}

func (f *fakeService) CompareBatch(context.Context, []models.ComparePair, analyzer.ComparisonOptions, func()) []models.BatchItem {
	return nil
}

func (f *fakeService) DetectFaces(context.Context, []byte) (*models.DetectionResponse, error) {
	return &models.DetectionResponse{ImageWidth: 10}, f.err
}

func (f *fakeService) ExtractFace(_ context.Context, _ []byte, persist bool) (*models.ExtractionResponse, error) {
	f.gotPersist = persist
	return &models.ExtractionResponse{Success: true}, f.err
}

func (f *fakeService) Reconcile(_ context.Context, req models.ReconcileRequest) (*models.ReconcileReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReconcileReport{IDType: req.IDType, Valid: true}, nil
}

func (f *fakeService) Capabilities() models.CapabilitiesResponse {
	return models.CapabilitiesResponse{ComparisonMethods: []string{"ensemble"}, DefaultThreshold: 0.6}
}

func (f *fakeService) Stats() map[string]interface{} {
	return map[string]interface{}{"total_comparisons": 3}
}

func (f *fakeService) Options() analyzer.ComparisonOptions {
	return analyzer.DefaultOptions()
}

func testHandler(svc *fakeService) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewHandler(svc, &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024,
	})
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealthAndInfoRoutes(t *testing.T) {
	h := testHandler(&fakeService{})
	for _, path := range []string{"/health", "/v1/capabilities", "/v1/stats"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCompareMultipart(t *testing.T) {
	svc := &fakeService{}
	h := testHandler(svc)

	body, ctype := multipartBody(t,
		map[string][]byte{"portrait": []byte("p"), "document": []byte("d")},
		map[string]string{"method": "ssim", "threshold": "0.8"})
	req := httptest.NewRequest(http.MethodPost, "/v1/faces/compare", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotOpts.Method != "ssim" || svc.gotOpts.Threshold != 0.8 || string(svc.gotPortrait) != "p" {
		t.Errorf("Form values not forwarded: %+v", svc.gotOpts)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	result := resp["result"].(map[string]interface{})
	if result["is_match"] != nil || result["aggregate_score"] != nil {
		t.Errorf("Expected null verdict fields, got %v", result)
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string][]byte
		fields   map[string]string
		svcErr   error
		expected int
	}{
		{
			name:     "missing document",
			files:    map[string][]byte{"portrait": []byte("p")},
			expected: http.StatusBadRequest,
		},
		{
			name:     "bad threshold",
			files:    map[string][]byte{"portrait": []byte("p"), "document": []byte("d")},
			fields:   map[string]string{"threshold": "high"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "image too large",
			files:    map[string][]byte{"portrait": bytes.Repeat([]byte("p"), 2048), "document": []byte("d")},
			expected: http.StatusBadRequest,
		},
		{
			name:     "service processing error",
			files:    map[string][]byte{"portrait": []byte("p"), "document": []byte("d")},
			svcErr:   apperrors.NewProcessingError("Face comparison failed", nil),
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "service unavailable",
			files:    map[string][]byte{"portrait": []byte("p"), "document": []byte("d")},
			svcErr:   apperrors.NewUnavailableError("Detector unavailable", nil),
			expected: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(&fakeService{err: tt.svcErr})
			body, ctype := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/v1/faces/compare", body)
			req.Header.Set("Content-Type", ctype)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Errorf("Expected an error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestCompareURL(t *testing.T) {
	svc := &fakeService{}
	h := testHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/faces/compare-url",
		strings.NewReader(`{"portrait_url":"https://a/p.jpg","document_url":"https://a/d.jpg","threshold":0.7}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if svc.gotURLReq.Threshold == nil || *svc.gotURLReq.Threshold != 0.7 {
		t.Errorf("Threshold not forwarded: %+v", svc.gotURLReq)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/faces/compare-url", strings.NewReader(`{"portrait_url":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing document_url, got %d", rec.Code)
	}
}

func TestDetectExtractReconcile(t *testing.T) {
	svc := &fakeService{}
	h := testHandler(svc)

	for _, path := range []string{"/v1/faces/detect", "/v1/faces/extract?persist=true"} {
		body, ctype := multipartBody(t, map[string][]byte{"image": []byte("i")}, nil)
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ctype)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if !svc.gotPersist {
		t.Error("Expected persist=true to be forwarded")
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/reconcile",
		strings.NewReader(`{"id_type":"Ghana Card","user_fields":{"sex":"M"},"ocr_fields":{"sex":"Male"}}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
