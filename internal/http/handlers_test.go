package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plakabul/plakabul/internal/db"
	"github.com/plakabul/plakabul/internal/images"
	"github.com/plakabul/plakabul/internal/models"
	"github.com/plakabul/plakabul/internal/store"
)

type testApp struct {
	router *gin.Engine
	dir    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	dir := t.TempDir()
	imageStore, err := images.NewStore(dir)
	require.NoError(t, err)

	router := gin.New()
	env := &Env{Repo: store.NewPlakaRepository(database), Images: imageStore}
	SetupRoutes(router, env, "*", dir)
	return &testApp{router: router, dir: dir}
}

func (app *testApp) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// multipartBody builds a form submission. An empty imageName omits the file
// part entirely.
func multipartBody(t *testing.T, fields map[string]string, imageName, imageMIME string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if imageName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, imageName))
		h.Set("Content-Type", imageMIME)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func createPost(t *testing.T, app *testApp, fields map[string]string) models.PlakaPost {
	t.Helper()
	body, ct := multipartBody(t, fields, "plate.jpg", "image/jpeg")
	rec := app.do(http.MethodPost, "/plakalar", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	require.True(t, resp.Success)

	var post models.PlakaPost
	require.NoError(t, json.Unmarshal(resp.Data, &post))
	require.NotZero(t, post.ID)
	return post
}

var validFields = map[string]string{
	"title":       "Found a license plate",
	"description": "Spotted next to the bus stop this morning",
	"location":    "Kadikoy Istanbul",
	"plateNumber": "34 ABC 123",
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["message"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestIndexListsEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/plakalar/search")
}

func TestCreateThenListThenSearch(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/plakalar", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode(t, rec).Count)

	post := createPost(t, app, map[string]string{
		"title":       "Kayıp Plaka 34ABC123",
		"description": "Sahilde bulundu, sahibi aranıyor",
	})
	assert.Equal(t, "Kayıp Plaka 34ABC123", post.Title)

	// The stored image file exists on disk.
	_, err := os.Stat(filepath.Join(app.dir, filepath.Base(post.ImageURL)))
	require.NoError(t, err)

	rec = app.do(http.MethodGet, "/plakalar", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode(t, rec).Count)

	rec = app.do(http.MethodGet, "/plakalar/search?q=34ABC123", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, 1, resp.Count)

	var found []models.PlakaPost
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	assert.Equal(t, post.ID, found[0].ID)
}

func TestCreateEscapesStoredText(t *testing.T) {
	app := newTestApp(t)

	post := createPost(t, app, map[string]string{
		"title":       "<script>alert(1)</script>",
		"description": "Plate with <b>markup</b> in the text",
	})
	assert.NotContains(t, post.Title, "<script>")
	assert.Contains(t, post.Title, "&lt;script&gt;")
	assert.Contains(t, post.Description, "&lt;b&gt;")
}

func TestCreateValidationFailures(t *testing.T) {
	cases := []struct {
		name      string
		fields    map[string]string
		imageName string
		imageMIME string
	}{
		{
			name:      "missing image",
			fields:    validFields,
			imageName: "",
		},
		{
			name: "short title",
			fields: map[string]string{
				"title":       "abcd",
				"description": "a perfectly fine description",
			},
			imageName: "plate.jpg",
			imageMIME: "image/jpeg",
		},
		{
			name: "short description",
			fields: map[string]string{
				"title":       "a fine title",
				"description": "too short",
			},
			imageName: "plate.jpg",
			imageMIME: "image/jpeg",
		},
		{
			name: "bad plate number",
			fields: map[string]string{
				"title":       "a fine title",
				"description": "a perfectly fine description",
				"plateNumber": "AB 12 345",
			},
			imageName: "plate.jpg",
			imageMIME: "image/jpeg",
		},
		{
			name:      "disallowed image type",
			fields:    validFields,
			imageName: "plate.gif",
			imageMIME: "image/gif",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			body, ct := multipartBody(t, tc.fields, tc.imageName, tc.imageMIME)
			rec := app.do(http.MethodPost, "/plakalar", body, ct)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)

			// Nothing was persisted.
			rec = app.do(http.MethodGet, "/plakalar", nil, "")
			assert.Zero(t, decode(t, rec).Count)
		})
	}
}

func TestGetByID(t *testing.T) {
	app := newTestApp(t)
	post := createPost(t, app, validFields)

	rec := app.do(http.MethodGet, fmt.Sprintf("/plakalar/%d", post.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.PlakaPost
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, post.Title, got.Title)

	rec = app.do(http.MethodGet, "/plakalar/99999", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)

	rec = app.do(http.MethodGet, "/plakalar/not-a-number", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRouteIsNotParsedAsID(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/plakalar/search", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Zero(t, resp.Count)
}

func TestUpdateFieldsAndImage(t *testing.T) {
	app := newTestApp(t)
	post := createPost(t, app, validFields)
	oldImage := filepath.Join(app.dir, filepath.Base(post.ImageURL))

	body, ct := multipartBody(t, map[string]string{"title": "Updated plate title"}, "newer.png", "image/png")
	rec := app.do(http.MethodPut, fmt.Sprintf("/plakalar/%d", post.ID), body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.PlakaPost
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.Equal(t, "Updated plate title", updated.Title)
	assert.Equal(t, post.Description, updated.Description)
	assert.NotEqual(t, post.ImageURL, updated.ImageURL)

	// New file exists, old file was cleaned up.
	_, err := os.Stat(filepath.Join(app.dir, filepath.Base(updated.ImageURL)))
	require.NoError(t, err)
	_, err = os.Stat(oldImage)
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateWithoutImageKeepsExisting(t *testing.T) {
	app := newTestApp(t)
	post := createPost(t, app, validFields)

	body, ct := multipartBody(t, map[string]string{"description": "a replacement description"}, "", "")
	rec := app.do(http.MethodPut, fmt.Sprintf("/plakalar/%d", post.ID), body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.PlakaPost
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.Equal(t, post.ImageURL, updated.ImageURL)
	assert.Equal(t, "a replacement description", updated.Description)
}

func TestUpdateUnknownID(t *testing.T) {
	app := newTestApp(t)

	body, ct := multipartBody(t, map[string]string{"title": "Updated plate title"}, "", "")
	rec := app.do(http.MethodPut, "/plakalar/4242", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRemovesRecordAndImage(t *testing.T) {
	app := newTestApp(t)
	post := createPost(t, app, validFields)
	imagePath := filepath.Join(app.dir, filepath.Base(post.ImageURL))

	rec := app.do(http.MethodDelete, fmt.Sprintf("/plakalar/%d", post.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)

	_, err := os.Stat(imagePath)
	assert.True(t, os.IsNotExist(err))

	rec = app.do(http.MethodGet, fmt.Sprintf("/plakalar/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting again is a 404, not a 500.
	rec = app.do(http.MethodDelete, fmt.Sprintf("/plakalar/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadedImagesAreServed(t *testing.T) {
	app := newTestApp(t)
	post := createPost(t, app, validFields)

	rec := app.do(http.MethodGet, post.ImageURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake image bytes", rec.Body.String())
	assert.Equal(t, "cross-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
}

func TestSubmissionRateLimit(t *testing.T) {
	app := newTestApp(t)

	// The bucket holds rateLimitBurst tokens; every create attempt consumes
	// one regardless of validity.
	var last *httptest.ResponseRecorder
	for i := 0; i < rateLimitBurst+1; i++ {
		body, ct := multipartBody(t, map[string]string{}, "", "")
		last = app.do(http.MethodPost, "/plakalar", body, ct)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.False(t, decode(t, last).Success)
}

func TestDegradedModeWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	imageStore, err := images.NewStore(dir)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, &Env{Repo: nil, Images: imageStore}, "*", dir)
	app := &testApp{router: router, dir: dir}

	rec := app.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodGet, "/plakalar", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)
}
