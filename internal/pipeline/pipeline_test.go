package pipeline

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

	"github.com/openscrape/facedex/internal/admission"
	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/detector"
	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/storage/mock"
)

type fakeFetcher struct {
	data map[string][]byte
	errs map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	data, ok := f.data[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return data, nil
}

type fakeDetector struct {
	detect func(data []byte) (*detector.Result, error)
}

func (f *fakeDetector) DetectFaces(_ context.Context, data []byte) (*detector.Result, error) {
	return f.detect(data)
}

type fakeObjects struct {
	mu     sync.Mutex
	images []string
	covers []string
}

func (f *fakeObjects) PutImage(_ context.Context, contentHash string, _ []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, contentHash)
	return nil
}

func (f *fakeObjects) PutCover(_ context.Context, identityID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.covers = append(f.covers, identityID)
	return nil
}

func testImage(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testGate() *admission.Gate {
	cfg := config.AdmissionConfig{
		MinQualityScore:   0.05,
		MinImageDimension: 50,
		MinFileBytes:      64,
		MaxFileBytes:      5 * 1024 * 1024,
	}
	quality := config.QualityConfig{IdealDimension: 1024, SharpnessReference: 120}
	quality.Weights.Resolution = 0.4
	quality.Weights.Size = 0.2
	quality.Weights.Sharpness = 0.4
	return admission.NewGate(cfg, quality, admission.NewHashSet())
}

func testRegistry() *identity.Registry {
	return identity.NewRegistry(config.MatchingConfig{
		ConfidenceThreshold:   0.6,
		MaxSamplesPerIdentity: 20,
		EmbeddingDim:          3,
	})
}

func oneFace(embedding []float32) func([]byte) (*detector.Result, error) {
	return func([]byte) (*detector.Result, error) {
		return &detector.Result{
			FacesCount: 1,
			Faces: []detector.Face{
				{FaceIndex: 0, Dim: 3, Embedding: embedding, BBox: []float64{10, 10, 60, 60}, DetScore: 0.95},
			},
		}, nil
	}
}

func TestProcessBatchAcceptsAndClusters(t *testing.T) {
	store := mock.New()
	faceByImage := map[int][]float32{
		300: {1, 0, 0},
		302: {0, 1, 0},
	}
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    store,
		Fetcher: &fakeFetcher{data: map[string][]byte{
			"https://example.com/a.png": testImage(t, 300),
			"https://example.com/b.png": testImage(t, 302),
		}},
		Detector: &fakeDetector{detect: func(data []byte) (*detector.Result, error) {
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			return oneFace(faceByImage[img.Bounds().Dx()])(data)
		}},
		Concurrency: 2,
	})

	report, err := p.ProcessBatch(context.Background(),
		[]string{"https://example.com/a.png", "https://example.com/b.png"})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if report.Requested != 2 || report.Accepted != 2 {
		t.Errorf("requested/accepted = %d/%d; want 2/2", report.Requested, report.Accepted)
	}
	if report.FacesDetected != 2 || report.FacesNewIdentity != 2 {
		t.Errorf("detected/new = %d/%d; want 2/2", report.FacesDetected, report.FacesNewIdentity)
	}
	if len(store.Images()) != 2 || len(store.Faces()) != 2 {
		t.Errorf("stored %d images and %d faces; want 2 and 2",
			len(store.Images()), len(store.Faces()))
	}
}

func TestProcessBatchMatchesSameFace(t *testing.T) {
	store := mock.New()
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    store,
		Fetcher: &fakeFetcher{data: map[string][]byte{
			"a": testImage(t, 300),
			"b": testImage(t, 302),
		}},
		Detector:    &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
		Concurrency: 1,
	})

	report, err := p.ProcessBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if report.FacesNewIdentity != 1 || report.FacesMatched != 1 {
		t.Errorf("new/matched = %d/%d; want 1/1", report.FacesNewIdentity, report.FacesMatched)
	}

	faces := store.Faces()
	if len(faces) != 2 || faces[0].IdentityID != faces[1].IdentityID {
		t.Errorf("both faces should share one identity: %+v", faces)
	}
}

func TestProcessBatchZeroFaces(t *testing.T) {
	store := mock.New()
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    store,
		Fetcher:  &fakeFetcher{data: map[string][]byte{"a": testImage(t, 300)}},
		Detector: &fakeDetector{detect: func([]byte) (*detector.Result, error) {
			return &detector.Result{FacesCount: 0}, nil
		}},
	})

	report, err := p.ProcessBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if report.Accepted != 1 || report.FacesDetected != 0 {
		t.Errorf("accepted/faces = %d/%d; want 1/0", report.Accepted, report.FacesDetected)
	}
	if len(store.Images()) != 1 {
		t.Error("a faceless image is still an accepted image and must be stored")
	}
}

func TestProcessBatchDuplicate(t *testing.T) {
	store := mock.New()
	data := testImage(t, 300)
	p := New(Config{
		Gate:        testGate(),
		Registry:    testRegistry(),
		Store:       store,
		Fetcher:     &fakeFetcher{data: map[string][]byte{"a": data, "b": data}},
		Detector:    &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
		Concurrency: 1,
	})

	report, err := p.ProcessBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if report.Accepted != 1 || report.RejectedDuplicate != 1 {
		t.Errorf("accepted/duplicate = %d/%d; want 1/1", report.Accepted, report.RejectedDuplicate)
	}
	if len(store.Images()) != 1 {
		t.Errorf("only one copy should be stored, got %d", len(store.Images()))
	}
}

func TestProcessBatchFetchFailure(t *testing.T) {
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    mock.New(),
		Fetcher:  &fakeFetcher{errs: map[string]error{"a": errors.New("connection refused")}},
		Detector: &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
	})

	report, err := p.ProcessBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("fetch failure should not abort the batch: %v", err)
	}
	if report.RejectedCorrupt != 1 {
		t.Errorf("corrupt = %d; want 1", report.RejectedCorrupt)
	}
}

func TestProcessBatchDetectorFailureIsRetryable(t *testing.T) {
	store := mock.New()
	gate := testGate()
	data := testImage(t, 300)

	broken := true
	p := New(Config{
		Gate:     gate,
		Registry: testRegistry(),
		Store:    store,
		Fetcher:  &fakeFetcher{data: map[string][]byte{"a": data}},
		Detector: &fakeDetector{detect: func(d []byte) (*detector.Result, error) {
			if broken {
				return nil, errors.New("model not loaded")
			}
			return oneFace([]float32{1, 0, 0})(d)
		}},
	})

	report, err := p.ProcessBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("detector failure should not abort the batch: %v", err)
	}
	if report.RejectedCorrupt != 1 {
		t.Errorf("corrupt = %d; want 1", report.RejectedCorrupt)
	}
	if len(store.Images()) != 0 {
		t.Error("image must not be stored when detection fails")
	}

	// After the detector recovers, the same image is not a duplicate.
	broken = false
	report, err = p.ProcessBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if report.Accepted != 1 {
		t.Errorf("retry should accept the image, got %+v", report)
	}
}

func TestProcessBatchStoreFailureIsFatal(t *testing.T) {
	store := mock.New()
	store.FailWith = errors.New("disk full")

	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    store,
		Fetcher:  &fakeFetcher{data: map[string][]byte{"a": testImage(t, 300)}},
		Detector: &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
	})

	_, err := p.ProcessBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("storage failure should abort the batch")
	}
	if !errors.Is(err, store.FailWith) {
		t.Errorf("error should wrap the storage failure, got %v", err)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    mock.New(),
		Fetcher:  &fakeFetcher{data: map[string][]byte{"a": testImage(t, 300)}},
		Detector: &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
	})

	report, err := p.ProcessBatch(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if report.Accepted != 0 {
		t.Errorf("no image should be processed after cancellation, got %d", report.Accepted)
	}
}

func TestProcessImageFiltersLowDetScore(t *testing.T) {
	store := mock.New()
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    store,
		Detector: &fakeDetector{detect: func([]byte) (*detector.Result, error) {
			return &detector.Result{
				FacesCount: 2,
				Faces: []detector.Face{
					{FaceIndex: 0, Embedding: []float32{1, 0, 0}, BBox: []float64{0, 0, 10, 10}, DetScore: 0.95},
					{FaceIndex: 1, Embedding: []float32{0, 1, 0}, BBox: []float64{20, 0, 30, 10}, DetScore: 0.2},
				},
			}, nil
		}},
		MinDetScore: 0.5,
	})

	result, err := p.ProcessImage(context.Background(), "a", testImage(t, 300))
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if len(result.Faces) != 1 || result.Faces[0].FaceIndex != 0 {
		t.Errorf("low-score face should be ignored, got %+v", result.Faces)
	}
}

func TestProcessImageArchivesAndCovers(t *testing.T) {
	objects := &fakeObjects{}
	p := New(Config{
		Gate:     testGate(),
		Registry: testRegistry(),
		Store:    mock.New(),
		Detector: &fakeDetector{detect: oneFace([]float32{1, 0, 0})},
		Objects:  objects,
	})

	result, err := p.ProcessImage(context.Background(), "a", testImage(t, 300))
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}

	if len(objects.images) != 1 {
		t.Errorf("accepted image should be archived, got %d", len(objects.images))
	}
	if len(objects.covers) != 1 || objects.covers[0] != result.Faces[0].IdentityID {
		t.Errorf("new identity should get a cover crop, got %v", objects.covers)
	}
}

func TestCropFace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	crop := cropFace(img, []float64{10, 20, 60, 80})
	if crop == nil {
		t.Fatal("valid bbox should produce a crop")
	}
	b := crop.Bounds()
	if b.Dx() != 50 || b.Dy() != 60 {
		t.Errorf("crop size = %dx%d; want 50x60", b.Dx(), b.Dy())
	}

	if cropFace(img, []float64{90, 90, 200, 200}) == nil {
		t.Error("bbox extending past the image should be clamped, not rejected")
	}
	if cropFace(img, []float64{50, 50, 50, 60}) != nil {
		t.Error("degenerate bbox should return nil")
	}
	if cropFace(img, []float64{1, 2, 3}) != nil {
		t.Error("malformed bbox should return nil")
	}
}
