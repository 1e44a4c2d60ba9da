package domain

import "time"

// Chunk is a bounded-size segment of workspace knowledge text together with
// its embedding. Chunks are immutable once created and are superseded
// wholesale when the workspace index is rebuilt.
type Chunk struct {
	ID        int
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// ChunkMetadata describes where a retrieved chunk came from.
type ChunkMetadata struct {
	ChunkIndex int       `json:"chunk_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// RetrievalResult is one similarity-search hit. Produced fresh per query,
// never persisted.
type RetrievalResult struct {
	Text       string        `json:"text"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// IndexInfo summarizes the state of a workspace knowledge index.
type IndexInfo struct {
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	HasData    bool      `json:"has_data"`
}
