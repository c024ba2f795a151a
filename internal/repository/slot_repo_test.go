package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"gpadash/internal/db"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// exerciseSlotRepo checks the contract every backend shares.
func exerciseSlotRepo(t *testing.T, repo SlotRepository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "psu-courses"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound on first read, got %v", err)
	}

	if err := repo.Put(ctx, "psu-courses", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := repo.Put(ctx, "psu-courses", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite returned error: %v", err)
	}
	got, err := repo.Get(ctx, "psu-courses")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("expected full overwrite, got %q", got)
	}

	if _, err := repo.Get(ctx, "psu-courses:someone-else"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected keys to be isolated, got %v", err)
	}
}

func TestMemorySlotRepo(t *testing.T) {
	exerciseSlotRepo(t, NewMemorySlotRepo())
}

func TestMemorySlotRepoCopiesValues(t *testing.T) {
	repo := NewMemorySlotRepo()
	value := []byte("abc")
	_ = repo.Put(context.Background(), "k", value)
	value[0] = 'x'
	got, _ := repo.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}

func TestSQLSlotRepoOnSQLite(t *testing.T) {
	conn, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer conn.Close()
	exerciseSlotRepo(t, NewSQLSlotRepo(conn, zerolog.Nop()))
}

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	v, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3SlotRepo(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	exerciseSlotRepo(t, NewS3SlotRepo(fake, "grades", "slots/", zerolog.Nop()))

	if _, ok := fake.objects["grades/slots/psu-courses.json"]; !ok {
		t.Fatalf("expected object under prefixed key, have %v", keys(fake.objects))
	}
}

func TestS3SlotRepoUserKeysBecomePaths(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	repo := NewS3SlotRepo(fake, "grades", "", zerolog.Nop())
	if err := repo.Put(context.Background(), "psu-courses:user-1", []byte("[]")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if _, ok := fake.objects["grades/psu-courses/user-1.json"]; !ok {
		t.Fatalf("unexpected object keys %v", keys(fake.objects))
	}
}

func TestS3SlotRepoPutError(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, putErr: errors.New("bucket gone")}
	repo := NewS3SlotRepo(fake, "grades", "", zerolog.Nop())
	if err := repo.Put(context.Background(), "k", []byte("[]")); err == nil {
		t.Fatal("expected put error to surface")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
