package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

type Chunk struct {
	Text   string
	Vector []float64
}

// Index stores catalog embeddings in a single elasticsearch index shared by
// all stores; every document carries metadata.store_id and every query
// filters on it.
type Index struct {
	es    *elasticsearch.Client
	index string
	log   *zap.Logger
}

func NewIndex(es *elasticsearch.Client, index string, log *zap.Logger) *Index {
	return &Index{es: es, index: index, log: log}
}

type indexDoc struct {
	Vector    []float64 `json:"vector"`
	TextChunk string    `json:"text_chunk"`
	Metadata  struct {
		StoreID string `json:"store_id"`
	} `json:"metadata"`
}

func (ix *Index) Search(ctx context.Context, store string, vec []float64, topN int) ([]string, error) {
	query := map[string]interface{}{
		"size":    topN,
		"_source": []string{"text_chunk"},
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vec,
			"k":              topN,
			"num_candidates": 100,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"metadata.store_id": store},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// A missing index behaves like an empty one: the caller's
		// rebuild-and-retry path creates it.
		if res.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("vector search status %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source struct {
					TextChunk string `json:"text_chunk"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("vector search decode: %w", err)
	}

	chunks := make([]string, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		chunks = append(chunks, h.Source.TextChunk)
	}
	return chunks, nil
}

func (ix *Index) DeleteStore(ctx context.Context, store string) error {
	body := fmt.Sprintf(`{"query":{"term":{"metadata.store_id":%q}}}`, store)
	req := esapi.DeleteByQueryRequest{
		Index:   []string{ix.index},
		Body:    strings.NewReader(body),
		Refresh: boolPtr(true),
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("vector delete status %s", res.Status())
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

func (ix *Index) BulkInsert(ctx context.Context, store string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, c := range chunks {
		doc := indexDoc{Vector: c.Vector, TextChunk: c.Text}
		doc.Metadata.StoreID = store
		buf.WriteString(fmt.Sprintf(`{"index":{"_index":%q}}`, ix.index))
		buf.WriteByte('\n')
		line, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return fmt.Errorf("vector bulk insert: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("vector bulk insert status %s", res.Status())
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if out.Errors {
		return fmt.Errorf("vector bulk insert: some documents were rejected")
	}
	ix.log.Info("vector index rebuilt", zap.String("store", store), zap.Int("chunks", len(chunks)))
	return nil
}

func boolPtr(b bool) *bool { return &b }
