package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"plant-disease-api/config"
	"plant-disease-api/inference"
	"plant-disease-api/models"
	"plant-disease-api/services"
	"plant-disease-api/store"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClassifier struct {
	label string
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, img image.Image) (*inference.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Result{Label: f.label, Confidence: 1}, nil
}

type testServer struct {
	router    *gin.Engine
	store     *store.FileStore[models.Prediction, *models.Prediction]
	uploadDir string
}

type serverOptions struct {
	classifier  inference.Classifier
	predictions store.Store[models.Prediction]
	events      *services.EventBus
}

func newTestServer(t *testing.T, classifier inference.Classifier) *testServer {
	t.Helper()
	return newTestServerWith(t, serverOptions{classifier: classifier})
}

// newTestServerWith builds the router over opts. Without a predictions store
// it uses a FileStore in a temp dir, exposed as testServer.store.
func newTestServerWith(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	l, _ := test.NewNullLogger()
	dir := t.TempDir()

	srv := &testServer{uploadDir: filepath.Join(dir, "uploads")}
	if opts.predictions == nil {
		srv.store = store.NewFileStore[models.Prediction](filepath.Join(dir, "predictions.json"), l)
		opts.predictions = srv.store
	}

	var publisher services.Publisher
	if opts.events != nil {
		publisher = opts.events
	}
	predictions := services.NewPredictionService(opts.predictions, publisher, l).WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	})

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "notes.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	notes := store.NewGormStore[models.Note](db)
	require.NoError(t, notes.Migrate())
	t.Cleanup(func() { notes.Close() })

	srv.router = NewRouter(Dependencies{
		Predictions: predictions,
		Notes:       notes,
		Classifier:  opts.classifier,
		Events:      opts.events,
		Server:      config.ServerConfig{UploadDir: srv.uploadDir, MaxUploadMB: 1},
		CORS:        config.CORSConfig{AllowedOrigins: "*"},
		Logger:      l,
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
