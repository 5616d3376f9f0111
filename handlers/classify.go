package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"plant-disease-api/inference"
	"plant-disease-api/metrics"
	"plant-disease-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

type ClassifyHandler struct {
	classifier inference.Classifier
	recorder   *services.Recorder
	uploadDir  string
	maxUpload  int64
	log        logrus.FieldLogger
}

// NewClassifyHandler serves image uploads. A nil classifier makes uploads
// fail with 503 while the rest of the API keeps working.
func NewClassifyHandler(classifier inference.Classifier, recorder *services.Recorder, uploadDir string, maxUploadMB int, logger logrus.FieldLogger) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		recorder:   recorder,
		uploadDir:  uploadDir,
		maxUpload:  int64(maxUploadMB) << 20,
		log:        logger,
	}
}

// Describe answers GET /predict, which has nothing to report.
func (h *ClassifyHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, nil)
}

func (h *ClassifyHandler) Upload(c *gin.Context) {
	if h.classifier == nil {
		metrics.InferenceRequests.WithLabelValues("unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not loaded"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	header, err := c.FormFile("file")
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("rejected").Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d MB", h.maxUpload>>20)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided. Use 'file' as the form field name"})
		return
	}

	name := SecureFilename(header.Filename)
	if name == "" {
		metrics.InferenceRequests.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	log := h.log.WithFields(logrus.Fields{"file": header.Filename, "size": header.Size})

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.WithError(err).Error("create upload dir failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	path := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		log.WithError(err).Error("save upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Error("reopen upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	defer f.Close()

	img, format, err := inference.Decode(f)
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format. Supported: JPEG, PNG"})
		return
	}
	log = log.WithFields(logrus.Fields{"format": format, "width": img.Bounds().Dx(), "height": img.Bounds().Dy()})

	start := time.Now()
	result, err := h.classifier.Classify(c.Request.Context(), img)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("error").Inc()
		log.WithError(err).Error("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
		return
	}

	if _, err := h.recorder.Record(c.Request.Context(), header.Filename, result.Label); err != nil {
		metrics.InferenceRequests.WithLabelValues("error").Inc()
		log.WithError(err).Error("record prediction failed")
		if errors.Is(err, services.ErrMissingField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename or prediction"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save prediction"})
		return
	}

	metrics.InferenceRequests.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{"label": result.Label, "confidence": result.Confidence}).Info("image classified")
	c.String(http.StatusOK, result.Label)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces an uploaded name to a flat ASCII file name that
// cannot escape the upload directory. Accented letters keep their base
// letter. It returns "" when nothing usable is left.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	for _, sep := range []string{"/", "\\"} {
		name = strings.ReplaceAll(name, sep, " ")
	}
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
