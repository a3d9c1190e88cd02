package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SanityClient queries the CMS content API with GROQ. It is the fallback
// price source when the local mirror has no row for a product.
type SanityClient struct {
	baseURL *url.URL
	http    *http.Client
}

// NewSanityClient builds a client for one project/dataset. The base URL shape
// follows the CMS query endpoint convention.
func NewSanityClient(projectID, dataset, apiVersion string, httpClient *http.Client) *SanityClient {
	raw := fmt.Sprintf("https://%s.api.sanity.io/%s/data/query/%s", projectID, apiVersion, dataset)
	u, err := url.Parse(raw)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid sanity base url %q: %v", raw, err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SanityClient{baseURL: u, http: httpClient}
}

type sanityProductDoc struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Slug        SlugField     `json:"slug"`
	Price       float64       `json:"price"`
	Description string        `json:"description"`
	Category    CategoryLabel `json:"category"`
	ImageURL    string        `json:"imageUrl"`
	Alt         string        `json:"alt"`
	Stock       int           `json:"stock"`
	IsFeatured  bool          `json:"isFeatured"`
	SKU         string        `json:"sku"`
}

const productProjection = `{
  _id,
  name,
  "slug": slug.current,
  price,
  description,
  "category": category->title,
  "imageUrl": mainImage.asset->url,
  "alt": mainImage.alt,
  stock,
  isFeatured,
  sku
}`

// FetchProductByID resolves a single product document; (nil, nil) when the
// CMS has no such document.
func (c *SanityClient) FetchProductByID(ctx context.Context, productID string) (*Product, error) {
	groq := fmt.Sprintf(`*[_type == "product" && _id == %q][0]%s`, productID, productProjection)

	raw, err := c.query(ctx, groq)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var doc sanityProductDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode product document: %w", err)
	}

	p := doc.toProduct()
	return &p, nil
}

func (doc sanityProductDoc) toProduct() Product {
	return Product{
		ID:          NormalizeID(doc.ID),
		Name:        doc.Name,
		Slug:        string(doc.Slug),
		Description: doc.Description,
		Price:       doc.Price,
		Category:    string(doc.Category),
		ImageURL:    doc.ImageURL,
		Alt:         doc.Alt,
		Stock:       doc.Stock,
		IsFeatured:  doc.IsFeatured,
		SKU:         doc.SKU,
	}
}

func (c *SanityClient) query(ctx context.Context, groq string) (json.RawMessage, error) {
	rel := &url.URL{RawQuery: url.Values{"query": {groq}}.Encode()}
	u := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sanity query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sanity query: status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode sanity response: %w", err)
	}

	return envelope.Result, nil
}
