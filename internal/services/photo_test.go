package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/repsnrecord/apiserver/internal/storage"
	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

type memObjects struct {
	objects map[string][]byte
	deletes []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) EnsureBucket(_ context.Context) error { return nil }

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func (m *memObjects) URLFor(key string) string {
	return "http://objects.local/photos/" + key
}

func (m *memObjects) Bucket() string { return "photos" }

type fakePhotoStore struct {
	photos    map[string]types.Photo
	createErr error
	deletes   []string
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{photos: make(map[string]types.Photo)}
}

func (f *fakePhotoStore) Create(_ context.Context, photo types.Photo) (types.Photo, error) {
	if f.createErr != nil {
		return types.Photo{}, f.createErr
	}
	f.photos[photo.ID] = photo
	return photo, nil
}

func (f *fakePhotoStore) ListByMonth(_ context.Context, _, _ string) ([]types.Photo, error) {
	return nil, nil
}

func (f *fakePhotoStore) Get(_ context.Context, id, userID string) (types.Photo, error) {
	photo, ok := f.photos[id]
	if !ok || photo.UserID != userID {
		return types.Photo{}, store.ErrNotFound
	}
	return photo, nil
}

func (f *fakePhotoStore) Delete(_ context.Context, id, _ string) error {
	delete(f.photos, id)
	f.deletes = append(f.deletes, id)
	return nil
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := NewPhotoService(newFakePhotoStore(), storage.NewStorage(newMemObjects()))

	_, err := svc.Upload(context.Background(), UploadInput{
		UserID:   "u1",
		Filename: "notes.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF"),
	})
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	objects := newMemObjects()
	photoStore := newFakePhotoStore()
	svc := NewPhotoService(photoStore, storage.NewStorage(objects))

	photo, err := svc.Upload(context.Background(), UploadInput{
		UserID:   "u1",
		Filename: "front.jpg",
		MimeType: "image/jpeg",
		Data:     []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if len(objects.objects) != 1 {
		t.Fatalf("objects stored = %d, want 1", len(objects.objects))
	}
	var key string
	for k := range objects.objects {
		key = k
	}
	if !strings.HasPrefix(key, "u1/") || !strings.HasSuffix(key, ".jpg") {
		t.Errorf("object key = %q", key)
	}
	if want := "http://objects.local/photos/" + key; photo.FileURL != want {
		t.Errorf("file url = %q, want %q", photo.FileURL, want)
	}
	if photo.ThumbURL != photo.FileURL {
		t.Errorf("thumb url = %q", photo.ThumbURL)
	}
	if photo.Bytes != int64(len("jpeg-bytes")) {
		t.Errorf("bytes = %d", photo.Bytes)
	}
	if _, ok := photoStore.photos[photo.ID]; !ok {
		t.Error("metadata row missing")
	}
}

func TestUploadRollsBackObjectOnMetadataFailure(t *testing.T) {
	objects := newMemObjects()
	photoStore := newFakePhotoStore()
	photoStore.createErr = errors.New("insert failed")
	svc := NewPhotoService(photoStore, storage.NewStorage(objects))

	_, err := svc.Upload(context.Background(), UploadInput{
		UserID:   "u1",
		Filename: "front.jpg",
		MimeType: "image/jpeg",
		Data:     []byte("jpeg-bytes"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(objects.objects) != 0 {
		t.Errorf("object not rolled back: %v", objects.objects)
	}
}

func TestDeleteRemovesStoredObject(t *testing.T) {
	objects := newMemObjects()
	photoStore := newFakePhotoStore()
	svc := NewPhotoService(photoStore, storage.NewStorage(objects))

	photo, err := svc.Upload(context.Background(), UploadInput{
		UserID:   "u1",
		Filename: "front.jpg",
		MimeType: "image/jpeg",
		Data:     []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), photo.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(objects.objects) != 0 {
		t.Errorf("object survived delete: %v", objects.objects)
	}
	if len(photoStore.deletes) != 1 {
		t.Errorf("metadata deletes = %d, want 1", len(photoStore.deletes))
	}
}

func TestDeleteSkipsExternalObjects(t *testing.T) {
	objects := newMemObjects()
	photoStore := newFakePhotoStore()
	svc := NewPhotoService(photoStore, storage.NewStorage(objects))

	registered, err := svc.Register(context.Background(), types.Photo{
		UserID:  "u1",
		FileURL: "https://cdn.example.com/external.jpg",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Delete(context.Background(), registered.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(objects.deletes) != 0 {
		t.Errorf("unexpected object deletes: %v", objects.deletes)
	}
}

func TestFileSuffix(t *testing.T) {
	cases := []struct {
		mime     string
		filename string
		want     string
	}{
		{"image/jpeg", "a.png", ".jpg"},
		{"image/png", "a", ".png"},
		{"image/heic", "a.heif", ".heic"},
		{"", "photo.WEBP", ".webp"},
		{"", "noext", ".jpg"},
	}
	for _, tc := range cases {
		if got := fileSuffix(tc.mime, tc.filename); got != tc.want {
			t.Errorf("fileSuffix(%q, %q) = %q, want %q", tc.mime, tc.filename, got, tc.want)
		}
	}
}
