package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/repsnrecord/apiserver/types"
)

// UTF-8 byte-order mark prefixed onto CSV downloads so spreadsheet tools
// detect the encoding.
const csvBOM = "\uFEFF"

// Per-photo download budget. A photo that cannot be fetched inside this
// window is recorded as failed in the manifest, not retried.
const photoFetchTimeout = 10 * time.Second

// csvHeader is a compatibility contract with spreadsheet tooling and must
// not change shape.
const csvHeader = "Date,Exercise,Sets,Reps,Weight,Notes"

const manifestHeader = "Photo ID,Filename,Date Taken,Description,Original URL,Status"

// ExportRequest describes one export invocation after identity resolution.
// Identity is the resolved caller; RequesterID distinguishes a
// trainer-requested export from a self-export.
type ExportRequest struct {
	Identity      string
	ClientID      string
	RequesterID   string
	StartDate     string
	EndDate       string
	IncludePhotos bool
}

// ExportWorkoutReader is the slice of the workout repository the assembler
// needs.
type ExportWorkoutReader interface {
	List(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error)
}

// ExportPhotoReader is the slice of the photo repository the assembler
// needs.
type ExportPhotoReader interface {
	ListForExport(ctx context.Context, userID, startDate, endDate string) ([]types.Photo, error)
}

// RoleReader resolves a user's role.
type RoleReader interface {
	Get(ctx context.Context, userID string) (string, error)
}

// PermissionReader resolves trainer permission flags, applying defaults
// when no row exists.
type PermissionReader interface {
	Get(ctx context.Context, clientID, trainerID string) (types.TrainerPermission, error)
}

// PhotoFetcher downloads a photo binary. Implementations must honor the
// context deadline.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPPhotoFetcher fetches photo binaries over HTTP.
type HTTPPhotoFetcher struct {
	Client *http.Client
}

func NewHTTPPhotoFetcher() *HTTPPhotoFetcher {
	return &HTTPPhotoFetcher{Client: &http.Client{Timeout: photoFetchTimeout}}
}

func (f *HTTPPhotoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ZipResult is a finished archive plus the counts echoed in logs.
type ZipResult struct {
	Data       []byte
	Entries    int
	Downloaded int
	Failed     int
}

// ExportService assembles permissioned CSV and ZIP exports of a client's
// data.
type ExportService struct {
	workouts    ExportWorkoutReader
	photos      ExportPhotoReader
	roles       RoleReader
	permissions PermissionReader
	fetcher     PhotoFetcher
	now         func() time.Time
}

func NewExportService(
	workouts ExportWorkoutReader,
	photos ExportPhotoReader,
	roles RoleReader,
	permissions PermissionReader,
	fetcher PhotoFetcher,
) *ExportService {
	return &ExportService{
		workouts:    workouts,
		photos:      photos,
		roles:       roles,
		permissions: permissions,
		fetcher:     fetcher,
		now:         time.Now,
	}
}

// authorize runs the export authorization rules and returns whether photo
// inclusion survives them. Photo inclusion is downgraded, never a reason
// to reject, when the client has withheld the photo grant.
func (s *ExportService) authorize(ctx context.Context, req ExportRequest) (includePhotos bool, err error) {
	if req.Identity == "" {
		return false, ErrUnauthenticated
	}

	// Self-export: the caller is the client and no distinct requester is
	// named. Permission rows play no part.
	if req.RequesterID == "" || req.RequesterID == req.ClientID {
		if req.Identity != req.ClientID {
			return false, ErrForbidden
		}
		return req.IncludePhotos, nil
	}

	// Trainer-requested export.
	if req.Identity != req.RequesterID {
		return false, ErrForbidden
	}
	role, err := s.roles.Get(ctx, req.RequesterID)
	if err != nil {
		return false, err
	}
	if role != types.RoleTrainer {
		return false, ErrNotATrainer
	}
	perm, err := s.permissions.Get(ctx, req.ClientID, req.RequesterID)
	if err != nil {
		return false, err
	}
	if !perm.AllowExport {
		return false, ErrExportNotPermitted
	}
	if !perm.AllowPhotos {
		return false, nil
	}
	return req.IncludePhotos, nil
}

// ExportCSV produces the BOM-prefixed workout CSV for the request.
func (s *ExportService) ExportCSV(ctx context.Context, req ExportRequest) ([]byte, error) {
	if _, err := s.authorize(ctx, req); err != nil {
		return nil, err
	}

	workouts, err := s.workouts.List(ctx, types.WorkoutFilter{
		UserID:    req.ClientID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return nil, err
	}

	return []byte(csvBOM + workoutCSV(workouts)), nil
}

// ExportZIP produces the archive bundle: workout CSV, photo manifest,
// README, and any downloadable photo binaries.
func (s *ExportService) ExportZIP(ctx context.Context, req ExportRequest) (ZipResult, error) {
	includePhotos, err := s.authorize(ctx, req)
	if err != nil {
		return ZipResult{}, err
	}

	workouts, err := s.workouts.List(ctx, types.WorkoutFilter{
		UserID:    req.ClientID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return ZipResult{}, err
	}

	var photos []types.Photo
	if includePhotos {
		photos, err = s.photos.ListForExport(ctx, req.ClientID, req.StartDate, req.EndDate)
		if err != nil {
			return ZipResult{}, err
		}
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	if err := writeZipEntry(archive, "workouts.csv", []byte(workoutCSV(workouts))); err != nil {
		return ZipResult{}, err
	}

	manifest := []string{manifestHeader}
	downloaded, failed := 0, 0
	for _, photo := range photos {
		if photo.FileURL == "" {
			failed++
			continue
		}

		takenDate := "unknown-date"
		if photo.TakenAt != nil {
			takenDate = photo.TakenAt.UTC().Format("2006-01-02")
		}
		filename := fmt.Sprintf("%s_%s.%s", takenDate, shortID(photo.ID), fileExtension(photo.FileURL, photo.MimeType))

		fetchCtx, cancel := context.WithTimeout(ctx, photoFetchTimeout)
		data, fetchErr := s.fetcher.Fetch(fetchCtx, photo.FileURL)
		cancel()

		if fetchErr != nil {
			failed++
			manifest = append(manifest, manifestRow(photo, takenDate, "", "failed - see URL"))
			continue
		}

		if err := writeZipEntry(archive, "photos/"+filename, data); err != nil {
			return ZipResult{}, err
		}
		downloaded++
		manifest = append(manifest, manifestRow(photo, takenDate, filename, "included"))
	}

	if err := writeZipEntry(archive, "photos-manifest.csv", []byte(strings.Join(manifest, "\n"))); err != nil {
		return ZipResult{}, err
	}

	readme := s.readme(len(workouts), downloaded, failed)
	if err := writeZipEntry(archive, "README.txt", []byte(readme)); err != nil {
		return ZipResult{}, err
	}

	if err := archive.Close(); err != nil {
		return ZipResult{}, err
	}

	return ZipResult{
		Data:       buf.Bytes(),
		Entries:    len(workouts),
		Downloaded: downloaded,
		Failed:     failed,
	}, nil
}

func writeZipEntry(archive *zip.Writer, name string, data []byte) error {
	w, err := archive.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *ExportService) readme(entries, downloaded, failed int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RepsNRecord Data Export\n")
	fmt.Fprintf(&b, "========================\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "This export contains:\n")
	fmt.Fprintf(&b, "- workouts.csv: Your workout log data (%d entries)\n", entries)
	fmt.Fprintf(&b, "- photos-manifest.csv: Photo listing with details\n")
	fmt.Fprintf(&b, "- photos/: Your progress photos (%d downloaded", downloaded)
	if failed > 0 {
		fmt.Fprintf(&b, ", %d failed", failed)
	}
	fmt.Fprintf(&b, ")\n")
	if failed > 0 {
		fmt.Fprintf(&b, "\nNote: %d photos couldn't be downloaded. Check the URLs in photos-manifest.csv to view them online.\n", failed)
	}
	return b.String()
}

// workoutCSV renders entries in the fixed spreadsheet contract: MM/DD/YYYY
// dates, quote-escaped text fields, unquoted numerics defaulting to 0.
func workoutCSV(workouts []types.Workout) string {
	rows := make([]string, 0, len(workouts)+1)
	rows = append(rows, csvHeader)
	for _, w := range workouts {
		rows = append(rows, strings.Join([]string{
			spreadsheetDate(w.Date),
			csvQuote(w.ExerciseName),
			strconv.Itoa(w.Sets),
			strconv.Itoa(w.Reps),
			strconv.FormatFloat(w.Weight, 'f', -1, 64),
			csvQuote(w.Notes),
		}, ","))
	}
	return strings.Join(rows, "\n")
}

// spreadsheetDate reformats a stored date into MM/DD/YYYY. Unparseable
// dates pass through verbatim rather than failing the export.
func spreadsheetDate(date string) string {
	if date == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format("01/02/2006")
		}
	}
	return date
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func manifestRow(photo types.Photo, takenDate, filename, status string) string {
	return strings.Join([]string{
		photo.ID,
		filename,
		takenDate,
		csvQuote(photo.Description),
		photo.FileURL,
		status,
	}, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// fileExtension picks an archive filename extension from the mime type,
// then the URL, defaulting to jpg.
func fileExtension(url, mimeType string) string {
	for _, ext := range []string{"png", "gif", "webp"} {
		if strings.Contains(mimeType, ext) {
			return ext
		}
	}
	lower := strings.ToLower(url)
	for _, ext := range []string{"png", "gif", "webp"} {
		if strings.Contains(lower, "."+ext) {
			return ext
		}
	}
	return "jpg"
}
