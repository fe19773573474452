package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

type productDoc struct {
	ID              string    `json:"id"`
	SellerEmail     string    `json:"email"`
	Name            string    `json:"productname"`
	PerPackQuantity float64   `json:"quantity"`
	Price           float64   `json:"price"`
	Description     string    `json:"description"`
	ImageURI        string    `json:"uri"`
	Rating          float64   `json:"rating"`
	Category        string    `json:"category"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toDoc(p models.Product) productDoc {
	return productDoc{
		ID:              p.ID,
		SellerEmail:     p.SellerEmail,
		Name:            p.Name,
		PerPackQuantity: p.PerPackQuantity,
		Price:           p.Price,
		Description:     p.Description,
		ImageURI:        p.ImageURI,
		Rating:          p.Rating,
		Category:        p.Category,
		CreatedAt:       p.CreatedAt,
	}
}

func (d productDoc) product() models.Product {
	return models.Product{
		ID:              d.ID,
		SellerEmail:     d.SellerEmail,
		Name:            d.Name,
		PerPackQuantity: d.PerPackQuantity,
		Price:           d.Price,
		Description:     d.Description,
		ImageURI:        d.ImageURI,
		Rating:          d.Rating,
		Category:        d.Category,
		CreatedAt:       d.CreatedAt,
	}
}

type ProductIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewProductIndex(es *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{ES: es, Index: index}
}

func (s *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := s.ES.Indices.Exists([]string{s.Index}, s.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"productname": map[string]any{"type": "text"},
				"description": map[string]any{"type": "text"},
				"category":    map[string]any{"type": "keyword"},
				"email":       map[string]any{"type": "keyword"},
				"price":       map[string]any{"type": "double"},
				"createdAt":   map[string]any{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = s.ES.Indices.Create(s.Index,
		s.ES.Indices.Create.WithContext(ctx),
		s.ES.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return responseError("create index", res)
}

func (s *ProductIndex) IndexProduct(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(toDoc(p))
	if err != nil {
		return err
	}

	res, err := s.ES.Index(s.Index, bytes.NewReader(body),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(p.ID),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return responseError("index product", res)
}

func (s *ProductIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"productname^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
		s.ES.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	prods := make([]models.Product, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		prods = append(prods, hit.Source.product())
	}
	return r.Hits.Total.Value, prods, nil
}

func responseError(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s: %s: %s", op, res.Status(), msg)
}
