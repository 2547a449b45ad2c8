package prediction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productJSON = `{
	"code": "3228857000852",
	"status": 1,
	"product": {
		"images": {
			"1": {"uploaded_t": 1500000000},
			"front_fr": {"imgid": "1"},
			"nutrition_fr": {"imgid": "4", "rev": "12"}
		}
	}
}`

const predictionJSON = `{
	"nutrients": {
		"energy": [{"value": "1046", "unit": "kj", "valid": true}, {"value": "250", "unit": "kcal"}],
		"protein": [{"value": "6,5", "unit": "g"}],
		"salt": [{"value": "900", "unit": "mg"}],
		"sugar": [{"value": "traces", "unit": "g"}],
		"fat": [{"value": 3.5, "unit": null}]
	}
}`

// fakeServices serves the product API, the static server and Robotoff from
// one test server.
type fakeServices struct {
	product    func(w http.ResponseWriter, code string)
	prediction func(w http.ResponseWriter, ocrURL string)
	requests   atomic.Int32
}

func (f *fakeServices) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v0/product/"):
		code := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v0/product/"), ".json")
		f.product(w, code)
	case r.URL.Path == "/api/v1/predict/nutrient":
		f.prediction(w, r.URL.Query().Get("ocr_url"))
	default:
		http.NotFound(w, r)
	}
}

func writeBody(body string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, _ string) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func newTestClient(t *testing.T, f *fakeServices) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		ProductAPI:        srv.URL,
		StaticBase:        "https://static.example.org/",
		Robotoff:          srv.URL,
		RequestsPerSecond: -1,
	})
}

func TestClient_Fetch(t *testing.T) {
	var gotOCR string
	f := &fakeServices{
		product: writeBody(productJSON),
		prediction: func(w http.ResponseWriter, ocrURL string) {
			gotOCR = ocrURL
			fmt.Fprint(w, predictionJSON)
		},
	}
	c := newTestClient(t, f)

	rec, err := c.Fetch(context.Background(), "3228857000852")
	require.NoError(t, err)

	assert.Equal(t, "https://static.example.org/images/products/322/885/700/0852/4.json", gotOCR)
	assert.EqualValues(t, 2, f.requests.Load())

	assert.InDelta(t, 1046, rec[models.Energy], 1e-9)
	assert.InDelta(t, 6.5, rec[models.Protein], 1e-9)
	assert.InDelta(t, 0.9, rec[models.Salt], 1e-9)
	assert.InDelta(t, 3.5, rec[models.Fat], 1e-9)
	assert.NotContains(t, rec, models.Sugar, "unparseable value is left out")
	assert.NotContains(t, rec, models.Fiber)
}

func TestClient_Fetch_RetrievalErrors(t *testing.T) {
	tests := []struct {
		name       string
		product    func(http.ResponseWriter, string)
		prediction func(http.ResponseWriter, string)
		contains   string
		wrapped    error
	}{
		{
			name: "product 404",
			product: func(w http.ResponseWriter, _ string) {
				w.WriteHeader(http.StatusNotFound)
			},
			contains: "product not found",
		},
		{
			name:     "product missing from payload",
			product:  writeBody(`{"status": 0, "status_verbose": "product not found"}`),
			contains: "product not found",
		},
		{
			name:    "no nutrition image",
			product: writeBody(`{"product": {"images": {"front_fr": {"imgid": "1"}}}}`),
			wrapped: ErrNoNutritionImage,
		},
		{
			name:       "download error",
			product:    writeBody(productJSON),
			prediction: writeBody(`{"error": "download_error", "error_description": "an error occurred during OCR JSON download"}`),
			contains:   "download_error: an error occurred during OCR JSON download",
		},
		{
			name:       "payload fails schema",
			product:    writeBody(productJSON),
			prediction: writeBody(`{"nutrients": {"energy": "1046"}}`),
			contains:   "invalid prediction payload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeServices{product: tt.product, prediction: tt.prediction}
			if f.prediction == nil {
				f.prediction = func(http.ResponseWriter, string) {
					t.Error("prediction endpoint must not be called")
				}
			}

			_, err := newTestClient(t, f).Fetch(context.Background(), "3228857000852")

			var rerr *RetrievalError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, "3228857000852", rerr.Code)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
			if tt.wrapped != nil {
				assert.ErrorIs(t, err, tt.wrapped)
			}
		})
	}
}

func TestClient_Fetch_TransportFailure(t *testing.T) {
	f := &fakeServices{
		product: writeBody(productJSON),
		prediction: func(w http.ResponseWriter, _ string) {
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	_, err := newTestClient(t, f).Fetch(context.Background(), "3228857000852")
	require.Error(t, err)

	var rerr *RetrievalError
	assert.False(t, errors.As(err, &rerr), "transport failures are not retrieval errors")
	assert.ErrorIs(t, err, errUnexpectedStatus)
	assert.EqualValues(t, 2, f.requests.Load(), "no retry")
}

func TestClient_Fetch_Cancelled(t *testing.T) {
	f := &fakeServices{product: writeBody(productJSON), prediction: writeBody(predictionJSON)}
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "3228857000852")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectImage(t *testing.T) {
	images := map[string]imageInfo{
		"nutrition_it": {ImgID: "9"},
		"nutrition_de": {ImgID: "7"},
		"nutrition_en": {ImgID: ""},
		"front_fr":     {ImgID: "1"},
	}

	assert.Equal(t, "7", selectImage(images, DefaultImageKeys), "wildcard picks the first key in lexical order")
	assert.Equal(t, "9", selectImage(images, []string{"nutrition_it", "nutrition*"}))
	assert.Equal(t, "1", selectImage(images, []string{"front*"}))
	assert.Empty(t, selectImage(images, []string{"nutrition_en", "nutrition_fr"}))
}

func TestDecodeNutrients_UnitPreference(t *testing.T) {
	rec, err := decodeNutrients(map[string]any{
		"nutrients": map[string]any{
			"energy": []any{
				map[string]any{"value": "100", "unit": "kcal"},
				map[string]any{"value": "420", "unit": "kJ"},
			},
			"carbohydrate": []any{
				map[string]any{"value": "12000", "unit": "mg"},
			},
			"fiber": []any{
				map[string]any{"value": "2", "unit": "%"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, rec, 2)
	assert.InDelta(t, 420, rec[models.Energy], 1e-9, "kJ entry wins over the first one")
	assert.InDelta(t, 12, rec[models.Carbohydrate], 1e-9)
}

func TestSplitBarcode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "3228857000852", want: "322/885/700/0852"},
		{code: "0000000000017", want: "000/000/000/0017"},
		{code: "1234567890", want: "123/456/789/0"},
		{code: "123456789", want: "123456789"},
		{code: "12345678", want: "12345678"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitBarcode(tt.code))
		})
	}
}
