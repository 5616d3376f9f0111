package handlers

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadClassifiesAndRecords(t *testing.T) {
	classifier := &fakeClassifier{label: "Tomato_healthy"}
	s := newTestServer(t, classifier)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, "file", "my leaf.png", pngBytes(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Tomato_healthy", w.Body.String())
	assert.Equal(t, 1, classifier.calls)
	assert.FileExists(t, filepath.Join(s.uploadDir, "my_leaf.png"))

	records := s.store.Load()
	require.Len(t, records, 1)
	assert.Equal(t, "my leaf.png", records[0].Filename)
	assert.Equal(t, "Tomato_healthy", records[0].Prediction)
	assert.Equal(t, 1, records[0].ID)
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		classifier *fakeClassifier
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong field name",
			classifier: &fakeClassifier{label: "Tomato_healthy"},
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "image", "leaf.png", pngBytes(t)) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			classifier: &fakeClassifier{label: "Tomato_healthy"},
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "test.jpg", []byte("fake image data")) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unusable file name",
			classifier: &fakeClassifier{label: "Tomato_healthy"},
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "../..", pngBytes(t)) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "file over the upload limit",
			classifier: &fakeClassifier{label: "Tomato_healthy"},
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "leaf.png", bytes.Repeat([]byte{0x89}, 2<<20))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "file exceeds 1 MB",
		},
		{
			name:       "classifier failure",
			classifier: &fakeClassifier{err: errors.New("session crashed")},
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "leaf.png", pngBytes(t)) },
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.classifier)

			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, tt.req(t))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[map[string]string](t, w)["error"])
			}
			assert.Empty(t, s.store.Load())
		})
	}
}

func TestUploadWithoutModel(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, "file", "leaf.png", pngBytes(t)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDescribePredict(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/predict", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"leaf.jpg", "leaf.jpg"},
		{"my leaf.png", "my_leaf.png"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\leaf.jpg`, "C_Users_me_leaf.jpg"},
		{"..", ""},
		{".hidden", "hidden"},
		{"tomate-été.jpg", "tomate-ete.jpg"},
		{"ﬁcus.png", "ficus.png"},
		{"叶子.jpg", "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}
