package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/validation"
	"golang.org/x/time/rate"
)

// Default service endpoints and request settings.
const (
	DefaultProductAPI        = "https://world.openfoodfacts.org"
	DefaultStaticBase        = "https://static.openfoodfacts.org"
	DefaultRobotoff          = "https://robotoff.openfoodfacts.org"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 2.0

	userAgent = "nutrieval/1.0 (+https://github.com/openfoodfacts/nutrieval)"
)

// DefaultImageKeys lists the product image keys tried in order. A trailing
// `*` matches any key with that prefix.
var DefaultImageKeys = []string{"nutrition_fr", "nutrition_en", "nutrition*"}

// ClientOptions configures a Client. Zero values select the defaults.
type ClientOptions struct {
	ProductAPI string
	StaticBase string
	Robotoff   string
	ImageKeys  []string
	Timeout    time.Duration
	// RequestsPerSecond paces every outgoing request; negative disables
	// pacing.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client fetches predictions from Robotoff. For each product it looks up the
// nutrition image on the product API, then asks Robotoff to predict nutrients
// from the OCR of that image.
type Client struct {
	productAPI string
	staticBase string
	robotoff   string
	imageKeys  []string
	limiter    *rate.Limiter
	http       *http.Client
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	if opts.ProductAPI == "" {
		opts.ProductAPI = DefaultProductAPI
	}
	if opts.StaticBase == "" {
		opts.StaticBase = DefaultStaticBase
	}
	if opts.Robotoff == "" {
		opts.Robotoff = DefaultRobotoff
	}
	if len(opts.ImageKeys) == 0 {
		opts.ImageKeys = DefaultImageKeys
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		productAPI: strings.TrimRight(opts.ProductAPI, "/"),
		staticBase: strings.TrimRight(opts.StaticBase, "/"),
		robotoff:   strings.TrimRight(opts.Robotoff, "/"),
		imageKeys:  slices.Clone(opts.ImageKeys),
		limiter:    rate.NewLimiter(limit, 1),
		http:       httpClient,
	}
}

// Fetch returns the predicted nutrients of code. Each call makes at most two
// requests and never retries.
func (c *Client) Fetch(ctx context.Context, code string) (models.Record, error) {
	imgid, err := c.nutritionImage(ctx, code)
	if err != nil {
		return nil, err
	}

	doc, err := c.predict(ctx, code, c.OCRURL(code, imgid))
	if err != nil {
		return nil, err
	}

	rec, err := decodeNutrients(doc)
	if err != nil {
		return nil, &RetrievalError{Code: code, Reason: "decoding prediction", Err: err}
	}
	return rec, nil
}

// OCRURL returns the location of the OCR result of a product image.
func (c *Client) OCRURL(code, imgid string) string {
	return fmt.Sprintf("%s/images/products/%s/%s.json", c.staticBase, SplitBarcode(code), imgid)
}

type productResponse struct {
	Product *struct {
		Images map[string]imageInfo `mapstructure:"images"`
	} `mapstructure:"product"`
}

type imageInfo struct {
	ImgID string `mapstructure:"imgid"`
}

func (c *Client) nutritionImage(ctx context.Context, code string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.productAPI, url.PathEscape(code))

	doc, status, err := c.getJSON(ctx, endpoint)
	if status == http.StatusNotFound {
		return "", &RetrievalError{Code: code, Reason: "product not found"}
	}
	if err != nil {
		return "", err
	}

	var resp productResponse
	if err := mapstructure.WeakDecode(doc, &resp); err != nil {
		return "", fmt.Errorf("decode product %s: %w", code, err)
	}
	if resp.Product == nil {
		return "", &RetrievalError{Code: code, Reason: "product not found"}
	}

	imgid := selectImage(resp.Product.Images, c.imageKeys)
	if imgid == "" {
		return "", &RetrievalError{Code: code, Err: ErrNoNutritionImage}
	}
	return imgid, nil
}

func selectImage(images map[string]imageInfo, keys []string) string {
	for _, key := range keys {
		prefix, wildcard := strings.CutSuffix(key, "*")
		if !wildcard {
			if img, ok := images[key]; ok && img.ImgID != "" {
				return img.ImgID
			}
			continue
		}
		for _, name := range slices.Sorted(maps.Keys(images)) {
			if strings.HasPrefix(name, prefix) && images[name].ImgID != "" {
				return images[name].ImgID
			}
		}
	}
	return ""
}

func (c *Client) predict(ctx context.Context, code, ocrURL string) (map[string]any, error) {
	values := url.Values{}
	values.Set("ocr_url", ocrURL)
	endpoint := c.robotoff + "/api/v1/predict/nutrient?" + values.Encode()

	doc, _, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if errs := validation.ValidatePrediction(doc); len(errs) > 0 {
		return nil, &RetrievalError{Code: code, Reason: "invalid prediction payload: " + strings.Join(errs, "; ")}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &RetrievalError{Code: code, Reason: "invalid prediction payload"}
	}

	if e, failed := obj["error"]; failed {
		reason := fmt.Sprint(e)
		if desc, ok := obj["error_description"].(string); ok && desc != "" {
			reason += ": " + desc
		}
		return nil, &RetrievalError{Code: code, Reason: reason}
	}
	return obj, nil
}

// getJSON performs one paced GET and decodes the JSON body. The status code is
// returned alongside errors so callers can tell a 404 apart.
func (c *Client) getJSON(ctx context.Context, endpoint string) (any, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("prediction rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("%w: %d from %s", errUnexpectedStatus, resp.StatusCode, endpoint)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return doc, resp.StatusCode, nil
}

type nutrientEntry struct {
	Value any    `mapstructure:"value"`
	Unit  string `mapstructure:"unit"`
}

type predictionPayload struct {
	Nutrients map[string][]nutrientEntry `mapstructure:"nutrients"`
}

// decodeNutrients maps a Robotoff payload onto a record. Per nutrient the
// first entry in the canonical unit wins, otherwise the first entry is
// converted. Values that cannot be read leave the nutrient out.
func decodeNutrients(doc map[string]any) (models.Record, error) {
	var payload predictionPayload
	if err := mapstructure.Decode(doc, &payload); err != nil {
		return nil, err
	}

	rec := models.Record{}
	for _, n := range models.AllNutrients {
		entries := payload.Nutrients[n.String()]
		if len(entries) == 0 {
			continue
		}
		entry := pickEntry(n, entries)
		v, ok := models.ParseQuantity(entry.Value)
		if !ok {
			continue
		}
		if v, ok = models.ToCanonical(n, v, entry.Unit); ok {
			rec[n] = v
		}
	}
	return rec, nil
}

func pickEntry(n models.Nutrient, entries []nutrientEntry) nutrientEntry {
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e.Unit), n.CanonicalUnit()) {
			return e
		}
	}
	return entries[0]
}
