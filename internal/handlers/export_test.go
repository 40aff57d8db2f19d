package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/types"
)

type stubWorkouts struct {
	workouts []types.Workout
}

func (s *stubWorkouts) List(_ context.Context, _ types.WorkoutFilter) ([]types.Workout, error) {
	return s.workouts, nil
}

type stubPhotos struct {
	calls int
}

func (s *stubPhotos) ListForExport(_ context.Context, _, _, _ string) ([]types.Photo, error) {
	s.calls++
	return nil, nil
}

type stubRoles struct {
	roles map[string]string
}

func (s *stubRoles) Get(_ context.Context, userID string) (string, error) {
	if role, ok := s.roles[userID]; ok {
		return role, nil
	}
	return types.RoleUser, nil
}

type stubPermissions struct {
	perm types.TrainerPermission
}

func (s *stubPermissions) Get(_ context.Context, clientID, trainerID string) (types.TrainerPermission, error) {
	return s.perm, nil
}

type stubFetcher struct{}

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	return []byte("img"), nil
}

type exportTestServer struct {
	router *chi.Mux
	roles  *stubRoles
	perms  *stubPermissions
	photos *stubPhotos
}

func newExportTestServer(production bool) *exportTestServer {
	srv := &exportTestServer{
		roles: &stubRoles{roles: map[string]string{}},
		perms: &stubPermissions{perm: types.TrainerPermission{
			AllowExport: types.DefaultAllowExport,
			AllowPhotos: types.DefaultAllowPhotos,
		}},
		photos: &stubPhotos{},
	}

	svc := services.NewExportService(
		&stubWorkouts{workouts: []types.Workout{{
			Date:         "2025-11-25",
			ExerciseName: "Bench",
			Sets:         3,
			Reps:         5,
			Weight:       95,
		}}},
		srv.photos,
		srv.roles,
		srv.perms,
		&stubFetcher{},
	)

	resolver := NewIdentityResolver(testSecret, production)
	srv.router = chi.NewRouter()
	srv.router.Route("/export", func(r chi.Router) {
		ExportRouter(r, svc, resolver)
	})
	return srv
}

func (srv *exportTestServer) get(t *testing.T, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(t, target)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestExportCSVMissingUserID(t *testing.T) {
	srv := newExportTestServer(true)

	rec := srv.get(t, "/export/csv", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "userId is required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExportCSVUnauthenticated(t *testing.T) {
	srv := newExportTestServer(true)

	rec := srv.get(t, "/export/csv?userId=u1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestExportCSVIdentityMismatch(t *testing.T) {
	srv := newExportTestServer(true)

	rec := srv.get(t, "/export/csv?userId=u1", map[string]string{
		"Authorization": "Bearer " + signedToken(t, "intruder", testSecret),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestExportCSVSelfDownload(t *testing.T) {
	srv := newExportTestServer(false)

	rec := srv.get(t, "/export/csv?userId=u1", map[string]string{"X-Test-User": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=") {
		t.Errorf("content disposition = %q", cd)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Error("missing BOM prefix")
	}
	if !strings.Contains(body, "Date,Exercise,Sets,Reps,Weight,Notes") {
		t.Errorf("missing header: %s", body)
	}
	if !strings.Contains(body, `11/25/2025,"Bench",3,5,95,""`) {
		t.Errorf("missing row: %s", body)
	}
}

func TestExportCSVTrainerNotPermitted(t *testing.T) {
	srv := newExportTestServer(false)
	srv.roles.roles["t1"] = types.RoleTrainer
	srv.perms.perm.AllowExport = false

	rec := srv.get(t, "/export/csv?userId=u1&requesterId=t1", map[string]string{"X-Test-User": "t1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "has not granted export permission") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExportCSVRequesterNotTrainer(t *testing.T) {
	srv := newExportTestServer(false)

	rec := srv.get(t, "/export/csv?userId=u1&requesterId=t1", map[string]string{"X-Test-User": "t1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not a trainer") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExportZIPIncludesPhotosByDefault(t *testing.T) {
	srv := newExportTestServer(false)

	rec := srv.get(t, "/export/zip?userId=u1", map[string]string{"X-Test-User": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if srv.photos.calls != 1 {
		t.Errorf("photo metadata fetched %d times, want 1", srv.photos.calls)
	}
}

func TestExportZIPPhotosDeclined(t *testing.T) {
	srv := newExportTestServer(false)

	rec := srv.get(t, "/export/zip?userId=u1&includePhotos=false", map[string]string{"X-Test-User": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if srv.photos.calls != 0 {
		t.Errorf("photo metadata fetched %d times, want 0", srv.photos.calls)
	}
}

func TestExportZIPHeaders(t *testing.T) {
	srv := newExportTestServer(false)

	rec := srv.get(t, "/export/zip?userId=u1", map[string]string{"X-Test-User": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q", ct)
	}
	if cl := rec.Header().Get("Content-Length"); cl != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("content length = %q, body = %d bytes", cl, rec.Body.Len())
	}
}
