package detector

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/logger"
)

const (
	frontalCascadeFile = "haarcascade_frontalface_default.xml"
	profileCascadeFile = "haarcascade_profileface.xml"
)

// DefaultCascadeDirs are searched when a cascade path is not configured.
var DefaultCascadeDirs = []string{
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"./models/haarcascades",
}

// ModelConfig locates the detector resources on disk.
type ModelConfig struct {
	FrontalCascadePath string
	ProfileCascadePath string
	DNNConfigPath      string
	DNNModelPath       string
	SearchDirs         []string
}

// Availability reports which detector resources were loaded.
type Availability struct {
	Frontal bool
	Profile bool
	DNN     bool
}

// cascade serializes access to one classifier.
type cascade struct {
	mu   sync.Mutex
	clf  gocv.CascadeClassifier
	path string
}

func (c *cascade) detect(gray gocv.Mat, scale float64, minNeighbors int, minSize image.Point) []image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clf.DetectMultiScaleWithParams(gray, scale, minNeighbors, 0, minSize, image.Point{})
}

// network serializes inference on the SSD face network.
type network struct {
	mu  sync.Mutex
	net gocv.Net
}

func (n *network) forward(blob gocv.Mat) gocv.Mat {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.net.SetInput(blob, "")
	return n.net.Forward("")
}

// Models is the process-wide detector resource handle. Resources are loaded
// once, on first use, and are read-only afterwards.
type Models struct {
	cfg ModelConfig

	once    sync.Once
	loadErr error

	frontal *cascade
	profile *cascade
	dnn     *network
}

func NewModels(cfg ModelConfig) *Models {
	if len(cfg.SearchDirs) == 0 {
		cfg.SearchDirs = DefaultCascadeDirs
	}
	return &Models{cfg: cfg}
}

// Load reads the resources. It is safe to call concurrently and repeatedly;
// only the first call does any work. A missing frontal cascade is an error,
// missing optional resources only disable their strategies.
func (m *Models) Load() error {
	m.once.Do(func() {
		m.loadErr = m.load()
	})
	return m.loadErr
}

func (m *Models) load() error {
	frontalPath := resolveCascade(m.cfg.FrontalCascadePath, frontalCascadeFile, m.cfg.SearchDirs)
	frontal, err := loadCascade(frontalPath)
	if err != nil {
		return fmt.Errorf("frontal cascade: %w", err)
	}
	m.frontal = frontal

	profilePath := resolveCascade(m.cfg.ProfileCascadePath, profileCascadeFile, m.cfg.SearchDirs)
	if profile, err := loadCascade(profilePath); err != nil {
		logger.WithError(err).Warn("Profile cascade not loaded, profile strategy disabled")
	} else {
		m.profile = profile
	}

	if dnn, err := loadNetwork(m.cfg.DNNConfigPath, m.cfg.DNNModelPath); err != nil {
		logger.WithError(err).Warn("DNN face model not loaded, DNN strategy disabled")
	} else {
		m.dnn = dnn
	}

	logger.WithFields(logrus.Fields{
		"frontal": frontalPath,
		"profile": m.profile != nil,
		"dnn":     m.dnn != nil,
	}).Info("Detector models loaded")
	return nil
}

func resolveCascade(configured, file string, dirs []string) string {
	if configured != "" {
		return configured
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, file)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return file
}

func loadCascade(path string) (*cascade, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, apperrors.ErrModelUnavailable)
	}
	clf := gocv.NewCascadeClassifier()
	if !clf.Load(path) {
		clf.Close()
		return nil, fmt.Errorf("load %s: %w", path, apperrors.ErrModelUnavailable)
	}
	return &cascade{clf: clf, path: path}, nil
}

func loadNetwork(configPath, modelPath string) (*network, error) {
	if configPath == "" || modelPath == "" {
		return nil, fmt.Errorf("no DNN model configured: %w", apperrors.ErrModelUnavailable)
	}
	for _, p := range []string{configPath, modelPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%s: %w", p, apperrors.ErrModelUnavailable)
		}
	}
	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read %s: %w", modelPath, apperrors.ErrModelUnavailable)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}
	return &network{net: net}, nil
}

// Availability loads the models if needed and reports what is usable.
func (m *Models) Availability() Availability {
	if err := m.Load(); err != nil {
		return Availability{}
	}
	return Availability{Frontal: m.frontal != nil, Profile: m.profile != nil, DNN: m.dnn != nil}
}

// Close releases native resources. The handle must not be used afterwards.
func (m *Models) Close() error {
	if m.frontal != nil {
		m.frontal.clf.Close()
	}
	if m.profile != nil {
		m.profile.clf.Close()
	}
	if m.dnn != nil {
		m.dnn.net.Close()
	}
	return nil
}
