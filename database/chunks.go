package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
)

// ChunksDBHandlerFunctions defines the read access to the chunk corpus.
// The chunks table is owned by the ingestion pipeline, this handler
// never writes to it, which is also why it queries the table directly
// instead of installing stored functions into the collaborator's schema.
type ChunksDBHandlerFunctions interface {
	SelectChunk(id uuid.UUID) (*model.Chunk, error)
	SelectChunksByDocument(documentID uuid.UUID) ([]*model.Chunk, error)
	SelectAllChunks() ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error)
}

// ChunksDBHandler handles read-only chunk corpus access
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler
func NewChunksDBHandler(db *helper.Database) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return &ChunksDBHandler{
		db: db,
	}, nil
}

const chunkColumns = `id, document_id, content, embedding, themes, concepts, structural_patterns, emotional_tones, domain, summary, importance, created_at`

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id uuid.UUID) (*model.Chunk, error) {
	row := h.db.Instance.QueryRow(
		`SELECT `+chunkColumns+` FROM chunks WHERE id = $1`,
		id,
	)

	chunk := &model.Chunk{}
	var embedding nullVector

	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Content,
		&embedding,
		pq.Array(&chunk.Themes),
		&chunk.Concepts,
		pq.Array(&chunk.StructuralPatterns),
		pq.Array(&chunk.EmotionalTones),
		&chunk.Domain,
		&chunk.Summary,
		&chunk.Importance,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	chunk.Embedding = embedding.Slice()

	return chunk, nil
}

// nullVector scans a possibly NULL pgvector column
type nullVector struct {
	vector pgvector.Vector
	valid  bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	n.valid = true
	return n.vector.Scan(src)
}

func (n *nullVector) Slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vector.Slice()
}

// SelectChunksByDocument retrieves all chunks of a document in order
func (h *ChunksDBHandler) SelectChunksByDocument(documentID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY created_at ASC, id ASC`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectAllChunks retrieves the full corpus metadata snapshot.
// Engines working on tag sets need the whole candidate corpus, the
// semantic engine goes through SelectChunksBySimilarity instead.
func (h *ChunksDBHandler) SelectAllChunks() ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT ` + chunkColumns + ` FROM chunks ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectChunksBySimilarity performs a nearest-neighbor query over chunk
// embeddings, excluding chunks of the given document
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT `+chunkColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM chunks
		 WHERE embedding IS NOT NULL
		   AND document_id != $2
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(embedding),
		excludeDocumentID,
		threshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var chunkEmbedding nullVector

		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Content,
			&chunkEmbedding,
			pq.Array(&chunk.Themes),
			&chunk.Concepts,
			pq.Array(&chunk.StructuralPatterns),
			pq.Array(&chunk.EmotionalTones),
			&chunk.Domain,
			&chunk.Summary,
			&chunk.Importance,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.Embedding = chunkEmbedding.Slice()
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// scanChunks scans all rows selected with chunkColumns
func scanChunks(rows *sql.Rows) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var embedding nullVector

		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Content,
			&embedding,
			pq.Array(&chunk.Themes),
			&chunk.Concepts,
			pq.Array(&chunk.StructuralPatterns),
			pq.Array(&chunk.EmotionalTones),
			&chunk.Domain,
			&chunk.Summary,
			&chunk.Importance,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}
