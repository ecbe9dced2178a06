// Task 5.3: data-plane vector IO.
// Documents are chunked client-side before insertion, matching how the
// original notebooks fed memory banks.
package stackclient

import (
	"context"
	"fmt"
)

// Document is a raw document to chunk and insert.
type Document struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	MimeType   string         `json:"mime_type,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Chunk is one inserted or retrieved piece of a document.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DefaultChunkTokens is the chunk window used when the caller passes 0.
const DefaultChunkTokens = 512

// chunkOverlapDivisor: overlap is chunkTokens/4, notebook convention.
const chunkOverlapDivisor = 4

// InsertDocuments chunks each document into token windows and inserts the
// chunks into the vector DB.
func (c *Client) InsertDocuments(ctx context.Context, vectorDBID string, docs []Document, chunkTokens int) error {
	if chunkTokens <= 0 {
		chunkTokens = DefaultChunkTokens
	}

	var chunks []Chunk
	for _, doc := range docs {
		pieces := chunkText(doc.Content, chunkTokens, chunkTokens/chunkOverlapDivisor)
		for i, piece := range pieces {
			metadata := map[string]any{
				"document_id": doc.DocumentID,
				"chunk_index": i,
			}
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			chunks = append(chunks, Chunk{Content: piece, Metadata: metadata})
		}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("stackclient: no chunks produced from %d documents", len(docs))
	}

	payload := struct {
		VectorDBID string  `json:"vector_db_id"`
		Chunks     []Chunk `json:"chunks"`
	}{VectorDBID: vectorDBID, Chunks: chunks}
	return c.post(ctx, "/v1/vector-io/insert", payload, nil)
}

// ScoredChunk is one semantic query hit.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// QueryChunks runs a semantic query against the vector DB.
func (c *Client) QueryChunks(ctx context.Context, vectorDBID, query string, topK int) ([]ScoredChunk, error) {
	payload := struct {
		VectorDBID string `json:"vector_db_id"`
		Query      string `json:"query"`
		TopK       int    `json:"top_k,omitempty"`
	}{VectorDBID: vectorDBID, Query: query, TopK: topK}

	var out struct {
		Chunks []ScoredChunk `json:"chunks"`
	}
	if err := c.post(ctx, "/v1/vector-io/query", payload, &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}
