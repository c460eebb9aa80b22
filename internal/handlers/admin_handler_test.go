package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiptop/backend/internal/config"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/services"
)

var testUploads = config.UploadConfig{
	Dir:               "uploads/ads",
	AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
	MaxBytes:          1 << 20,
	PublicPrefix:      "/static/ads/",
}

type adminFixture struct {
	store  *memStore
	fs     afero.Fs
	router http.Handler
}

func newAdminFixture() *adminFixture {
	store := newMemStore()
	fs := afero.NewMemMapFs()
	ads := services.NewAdService(memAds{store}, fs, testUploads)
	admin := NewAdminHandler(store, services.NewCoinService(store, store), ads)
	public := NewAdHandler(ads)

	r := chi.NewRouter()
	r.Get("/ads", public.List)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", admin.Overview)
		r.Get("/ads", admin.ListAds)
		r.Post("/ads", admin.CreateAd)
		r.Post("/ads/{adID}/toggle", admin.ToggleAd)
		r.Delete("/ads/{adID}", admin.DeleteAd)
		r.Get("/users", admin.ListUsers)
		r.Get("/users/{userID}/profile", admin.UserProfile)
	})
	return &adminFixture{store: store, fs: fs, router: r}
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/ads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (f *adminFixture) createAd(t *testing.T, title string) *models.Ad {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, uploadRequest(t, map[string]string{"title": title, "link": "https://example.com"}, "banner.png", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var ad models.Ad
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ad))
	return &ad
}

func TestAdminHandler_CreateAd(t *testing.T) {
	f := newAdminFixture()

	ad := f.createAd(t, "Summer sale")
	assert.Equal(t, "Summer sale", ad.Title)
	assert.True(t, ad.IsActive)
	assert.Equal(t, "/static/ads/"+ad.Image, ad.ImageURL)

	data, err := afero.ReadFile(f.fs, filepath.Join(testUploads.Dir, ad.Image))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestAdminHandler_CreateAdRejects(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		message  string
	}{
		{"missing title", map[string]string{"link": "https://example.com"}, "a.png", "All fields are required"},
		{"missing image", map[string]string{"title": "t", "link": "https://example.com"}, "", "All fields are required"},
		{"bad extension", map[string]string{"title": "t", "link": "https://example.com"}, "a.exe", "Invalid file type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture()
			rr := httptest.NewRecorder()
			f.router.ServeHTTP(rr, uploadRequest(t, tt.fields, tt.filename, []byte("data")))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.message, decodeError(t, rr))
			assert.Empty(t, f.store.ads)
		})
	}
}

func TestAdminHandler_ToggleAndPublicList(t *testing.T) {
	f := newAdminFixture()
	first := f.createAd(t, "First")
	f.createAd(t, "Second")

	rr := serve(f.router, http.MethodPost, "/admin/ads/"+itoa(first.ID)+"/toggle")
	require.Equal(t, http.StatusOK, rr.Code)
	var toggled models.Ad
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&toggled))
	assert.False(t, toggled.IsActive)

	rr = serve(f.router, http.MethodGet, "/ads")
	require.Equal(t, http.StatusOK, rr.Code)
	var public []models.Ad
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&public))
	require.Len(t, public, 1)
	assert.Equal(t, "Second", public[0].Title)

	rr = serve(f.router, http.MethodGet, "/admin/ads")
	require.Equal(t, http.StatusOK, rr.Code)
	var all []models.Ad
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&all))
	assert.Len(t, all, 2)
}

func TestAdminHandler_DeleteAd(t *testing.T) {
	f := newAdminFixture()
	ad := f.createAd(t, "Gone soon")

	rr := serve(f.router, http.MethodDelete, "/admin/ads/"+itoa(ad.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	exists, err := afero.Exists(f.fs, filepath.Join(testUploads.Dir, ad.Image))
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, http.StatusNotFound, serve(f.router, http.MethodDelete, "/admin/ads/"+itoa(ad.ID)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(f.router, http.MethodDelete, "/admin/ads/abc").Code)
}

func TestAdminHandler_PublicListEmpty(t *testing.T) {
	f := newAdminFixture()

	rr := serve(f.router, http.MethodGet, "/ads")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAdminHandler_Users(t *testing.T) {
	f := newAdminFixture()
	id := seedAccount(t, f.store, "jane", 120, "3.5")
	seedAccount(t, f.store, "joe", 0, "0")

	rr := serve(f.router, http.MethodGet, "/admin/users")
	require.Equal(t, http.StatusOK, rr.Code)
	var users []models.Account
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
	require.Len(t, users, 2)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = serve(f.router, http.MethodGet, "/admin/users/"+itoa(id)+"/profile")
	require.Equal(t, http.StatusOK, rr.Code)
	var profile UserProfile
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, "jane", profile.Account.Username)
	assert.Equal(t, int64(120), profile.Coins)
	assert.Equal(t, "3.50", profile.Money)

	assert.Equal(t, http.StatusNotFound, serve(f.router, http.MethodGet, "/admin/users/999/profile").Code)
}

func TestAdminHandler_Overview(t *testing.T) {
	f := newAdminFixture()
	seedAccount(t, f.store, "jane", 0, "0")
	f.createAd(t, "Only ad")

	rr := serve(f.router, http.MethodGet, "/admin/")
	require.Equal(t, http.StatusOK, rr.Code)

	var overview AdminOverview
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&overview))
	assert.Len(t, overview.Users, 1)
	assert.Len(t, overview.Ads, 1)
}
