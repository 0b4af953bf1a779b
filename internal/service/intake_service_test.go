package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-photo-bot/internal/models"
	"ai-photo-bot/internal/repository"
	"ai-photo-bot/pkg/normalizer"
)

// fakePhotoStore enforces the same contract as the gorm repository: atomic
// insert-if-absent on the dedup key plus the commit-time quota recheck.
type fakePhotoStore struct {
	mu     sync.Mutex
	photos map[string]models.UserPhoto

	// staleCount, when set, is reported by Count instead of the real number
	// to simulate a decision made on out-of-date state.
	staleCount *int64
	failReads  bool
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{photos: make(map[string]models.UserPhoto)}
}

func (f *fakePhotoStore) Count(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return 0, errors.New("store down")
	}
	if f.staleCount != nil {
		return *f.staleCount, nil
	}
	return f.countLocked(userID), nil
}

func (f *fakePhotoStore) countLocked(userID int64) int64 {
	var count int64
	for _, p := range f.photos {
		if p.UserID == userID {
			count++
		}
	}
	return count
}

func (f *fakePhotoStore) Exists(ctx context.Context, fileUniqueID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return false, errors.New("store down")
	}
	_, ok := f.photos[fileUniqueID]
	return ok, nil
}

func (f *fakePhotoStore) Create(ctx context.Context, photo *models.UserPhoto, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.photos[photo.FileUniqueID]; ok {
		return repository.ErrDuplicatePhoto
	}
	if f.countLocked(photo.UserID) >= int64(limit) {
		return repository.ErrQuotaExceeded
	}
	f.photos[photo.FileUniqueID] = *photo
	return nil
}

type fakePayments map[int64]string

func (f fakePayments) GetStatus(ctx context.Context, userID int64) (string, error) {
	return f[userID], nil
}

type failingPayments struct{}

func (failingPayments) GetStatus(ctx context.Context, userID int64) (string, error) {
	return "", errors.New("payment store down")
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, fileID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
	deletes []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: make(map[string][]byte)}
}

func (f *fakeBlobs) Upload(ctx context.Context, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func validImageBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func singleVariant(fileID, uniqueID string, size int64) models.IntakeCandidate {
	return models.IntakeCandidate{Variants: []models.PhotoVariant{
		{FileID: fileID, FileUniqueID: uniqueID, FileSize: size},
	}}
}

const (
	testUser = int64(42)
	testCap  = 10
)

func newTestService(store *fakePhotoStore, payments PaymentReader, fetcher ByteFetcher, blobs *fakeBlobs) *IntakeService {
	return NewIntakeService(store, payments, fetcher, blobs, normalizer.New(), testCap, zap.NewNop())
}

func TestEvaluate_PaymentRequired(t *testing.T) {
	store := newFakePhotoStore()
	cand := singleVariant("f1", "u1", 100)

	for _, status := range []string{"", models.PaymentStatusUnpaid, models.PaymentStatusPending, models.PaymentStatusBonus} {
		t.Run("status "+status, func(t *testing.T) {
			svc := newTestService(store, fakePayments{testUser: status}, &fakeFetcher{}, newFakeBlobs())

			for i := 0; i < 3; i++ {
				decision, err := svc.Evaluate(context.Background(), testUser, cand)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomePaymentRequired, decision.Outcome)
			}
		})
	}
}

func TestEvaluate_QuotaExceededIsIdempotent(t *testing.T) {
	store := newFakePhotoStore()
	for i := 0; i < testCap; i++ {
		store.photos[fmt.Sprintf("existing-%d", i)] = models.UserPhoto{UserID: testUser}
	}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, &fakeFetcher{}, newFakeBlobs())

	for i := 0; i < 3; i++ {
		decision, err := svc.Evaluate(context.Background(), testUser, singleVariant("f1", "fresh", 100))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeQuotaExceeded, decision.Outcome)
		assert.Equal(t, int64(testCap), decision.Count)
	}
}

func TestEvaluate_PicksLargestVariant(t *testing.T) {
	store := newFakePhotoStore()
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, &fakeFetcher{}, newFakeBlobs())

	cand := models.IntakeCandidate{Variants: []models.PhotoVariant{
		{FileID: "small", FileUniqueID: "us", FileSize: 100},
		{FileID: "big", FileUniqueID: "ub", FileSize: 5000},
		{FileID: "mid", FileUniqueID: "um", FileSize: 2000},
	}}

	decision, err := svc.Evaluate(context.Background(), testUser, cand)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, decision.Outcome)
	assert.Equal(t, "big", decision.Variant.FileID)
	assert.Equal(t, "ub", decision.Variant.FileUniqueID)
}

func TestEvaluate_DuplicatePhoto(t *testing.T) {
	store := newFakePhotoStore()
	store.photos["seen"] = models.UserPhoto{UserID: testUser, FileUniqueID: "seen"}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, &fakeFetcher{}, newFakeBlobs())

	decision, err := svc.Evaluate(context.Background(), testUser, singleVariant("f1", "seen", 100))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDuplicatePhoto, decision.Outcome)
}

func TestProcess_AcceptedStoresNormalizedPhoto(t *testing.T) {
	store := newFakePhotoStore()
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: validImageBytes(t, 1200, 1200)}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "u1", 100))

	assert.Equal(t, models.OutcomeAccepted, result.Outcome)
	assert.Equal(t, int64(1), result.Count)
	assert.Equal(t, testCap, result.Cap)

	stored, ok := store.photos["u1"]
	require.True(t, ok)
	assert.Equal(t, testUser, stored.UserID)
	assert.Equal(t, "user_photos/u1.jpg", stored.StorageKey)
	assert.Equal(t, 1024, stored.Width)
	assert.Equal(t, 1024, stored.Height)

	blob, ok := blobs.uploads["user_photos/u1.jpg"]
	require.True(t, ok)
	assert.Equal(t, stored.FileSize, int64(len(blob)))
}

func TestProcess_CorruptBytesNeverStored(t *testing.T) {
	store := newFakePhotoStore()
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: []byte("not an image at all")}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "u1", 100))

	assert.Equal(t, models.OutcomeNormalizationFailed, result.Outcome)
	assert.Empty(t, store.photos)
	assert.Empty(t, blobs.uploads)
}

func TestProcess_FetchFailureLeavesNoState(t *testing.T) {
	store := newFakePhotoStore()
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{err: errors.New("telegram timeout")}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "u1", 100))

	assert.Equal(t, models.OutcomeFetchFailed, result.Outcome)
	assert.Empty(t, store.photos)
	assert.Empty(t, blobs.uploads)
}

func TestProcess_PaymentStoreDown(t *testing.T) {
	svc := newTestService(newFakePhotoStore(), failingPayments{}, &fakeFetcher{}, newFakeBlobs())

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "u1", 100))
	assert.Equal(t, models.OutcomeUnavailable, result.Outcome)
}

func TestProcess_ConcurrentDuplicateStoresOnce(t *testing.T) {
	store := newFakePhotoStore()
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: validImageBytes(t, 1200, 1200)}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	cand := singleVariant("f1", "raced", 100)

	var wg sync.WaitGroup
	results := make([]models.IntakeResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Process(context.Background(), testUser, cand)
		}(i)
	}
	wg.Wait()

	outcomes := map[models.Outcome]int{}
	for _, r := range results {
		outcomes[r.Outcome]++
	}

	assert.Len(t, store.photos, 1, "exactly one record must survive the race")
	assert.Equal(t, 1, outcomes[models.OutcomeAccepted])
	assert.Equal(t, 1, outcomes[models.OutcomeDuplicatePhoto])
}

func TestProcess_ConcurrentDistinctUploadsAtCap(t *testing.T) {
	store := newFakePhotoStore()
	for i := 0; i < testCap-1; i++ {
		store.photos[fmt.Sprintf("existing-%d", i)] = models.UserPhoto{UserID: testUser}
	}
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: validImageBytes(t, 1200, 1200)}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	// One slot left; two different photos race for it. The store serializes
	// the count-then-insert, so exactly one may land.
	var wg sync.WaitGroup
	results := make([]models.IntakeResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cand := singleVariant(fmt.Sprintf("f%d", i), fmt.Sprintf("racer-%d", i), 100)
			results[i] = svc.Process(context.Background(), testUser, cand)
		}(i)
	}
	wg.Wait()

	outcomes := map[models.Outcome]int{}
	for _, r := range results {
		outcomes[r.Outcome]++
	}

	assert.Len(t, store.photos, testCap, "the cap must hold under a distinct-photo race")
	assert.Equal(t, 1, outcomes[models.OutcomeAccepted])
	assert.Equal(t, 1, outcomes[models.OutcomeQuotaExceeded])

	// The loser's blob must not outlive its failed commit.
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	assert.Len(t, blobs.uploads, 1)
}

func TestProcess_CommitTimeQuotaRecheck(t *testing.T) {
	store := newFakePhotoStore()
	for i := 0; i < testCap; i++ {
		store.photos[fmt.Sprintf("existing-%d", i)] = models.UserPhoto{UserID: testUser}
	}
	// The gatekeeper sees a stale count below the cap; the store recheck at
	// commit time must still reject the insert.
	stale := int64(testCap - 1)
	store.staleCount = &stale

	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: validImageBytes(t, 1200, 1200)}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "fresh", 100))

	assert.Equal(t, models.OutcomeQuotaExceeded, result.Outcome)
	assert.Len(t, store.photos, testCap)
	assert.Empty(t, blobs.uploads, "orphan blob must be cleaned up after a lost commit")
	assert.Contains(t, blobs.deletes, "user_photos/fresh.jpg")
}

func TestProcess_FullQuotaScenario(t *testing.T) {
	store := newFakePhotoStore()
	for i := 0; i < 9; i++ {
		store.photos[fmt.Sprintf("existing-%d", i)] = models.UserPhoto{UserID: testUser}
	}
	blobs := newFakeBlobs()
	fetcher := &fakeFetcher{data: validImageBytes(t, 1200, 1200)}
	svc := newTestService(store, fakePayments{testUser: models.PaymentStatusPaid}, fetcher, blobs)

	result := svc.Process(context.Background(), testUser, singleVariant("f1", "tenth", 100))
	assert.Equal(t, models.OutcomeAccepted, result.Outcome)
	assert.Equal(t, int64(10), result.Count)

	result = svc.Process(context.Background(), testUser, singleVariant("f2", "eleventh", 100))
	assert.Equal(t, models.OutcomeQuotaExceeded, result.Outcome)
	assert.Len(t, store.photos, 10)
}
