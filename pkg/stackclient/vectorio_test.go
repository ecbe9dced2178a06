package stackclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInsertDocumentsChunksClientSide(t *testing.T) {
	t.Parallel()

	var got struct {
		VectorDBID string  `json:"vector_db_id"`
		Chunks     []Chunk `json:"chunks"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/vector-io/insert" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// 25 tokens with a 10-token window and 10/4=2 overlap → stride 8:
	// [0:10) [8:18) [16:25) = 3 chunks.
	words := make([]string, 25)
	for i := range words {
		words[i] = "w"
	}
	doc := Document{
		DocumentID: "doc-1",
		Content:    strings.Join(words, " "),
		Metadata:   map[string]any{"source": "unit"},
	}

	c, _ := New(srv.URL)
	if err := c.InsertDocuments(context.Background(), "docs", []Document{doc}, 10); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}

	if got.VectorDBID != "docs" {
		t.Fatalf("vector_db_id = %q", got.VectorDBID)
	}
	if len(got.Chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got.Chunks))
	}
	first := got.Chunks[0]
	if first.Metadata["document_id"] != "doc-1" || first.Metadata["source"] != "unit" {
		t.Fatalf("chunk metadata = %v", first.Metadata)
	}
	if idx, _ := first.Metadata["chunk_index"].(float64); int(idx) != 0 {
		t.Fatalf("chunk_index = %v", first.Metadata["chunk_index"])
	}
}

func TestInsertDocumentsEmptyContent(t *testing.T) {
	t.Parallel()

	c, _ := New("http://localhost:1")
	err := c.InsertDocuments(context.Background(), "docs", []Document{{DocumentID: "d", Content: "   "}}, 0)
	if err == nil {
		t.Fatal("expected error when no chunks are produced")
	}
}

func TestQueryChunks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/vector-io/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			VectorDBID string `json:"vector_db_id"`
			Query      string `json:"query"`
			TopK       int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.TopK != 2 || req.Query != "what is a shield" {
			t.Errorf("req = %+v", req)
		}
		w.Write([]byte(`{"chunks":[{"content":"a shield is a safety filter","score":0.92},{"content":"unrelated","score":0.4}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	hits, err := c.QueryChunks(context.Background(), "docs", "what is a shield", 2)
	if err != nil {
		t.Fatalf("QueryChunks: %v", err)
	}
	if len(hits) != 2 || hits[0].Score != 0.92 {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestChunkText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		text      string
		size      int
		overlap   int
		wantCount int
	}{
		{"empty", "", 10, 2, 0},
		{"whitespace only", "   \n\t  ", 10, 2, 0},
		{"fits in one", "a b c", 10, 2, 1},
		{"exact boundary", "a b c d e", 5, 1, 1},
		{"two windows", "a b c d e f", 5, 1, 2},
		// overlap clamps to size-1 → stride 1 → one window per start token
		{"overlap clamped", "a b c d e f g h", 3, 99, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := chunkText(tc.text, tc.size, tc.overlap)
			if len(got) != tc.wantCount {
				t.Fatalf("chunkText(%q, %d, %d) = %d chunks %v, want %d",
					tc.text, tc.size, tc.overlap, len(got), got, tc.wantCount)
			}
		})
	}
}

func TestChunkTextOverlapSharesBoundaryTokens(t *testing.T) {
	t.Parallel()

	got := chunkText("a b c d e f", 4, 2)
	// stride 2: [a b c d] [c d e f]
	if len(got) != 2 {
		t.Fatalf("chunks = %v", got)
	}
	if got[0] != "a b c d" || got[1] != "c d e f" {
		t.Fatalf("chunks = %v", got)
	}
}
