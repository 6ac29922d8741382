package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
	loadSql "github.com/siherrmann/weaver/sql"
)

// ConnectionsDBHandlerFunctions defines the interface for connection
// store operations.
type ConnectionsDBHandlerFunctions interface {
	UpsertConnections(ctx context.Context, connections []*model.Connection, batchSize int) (int, error)
	ReplaceDocumentConnections(ctx context.Context, documentID uuid.UUID, connections []*model.Connection, batchSize int) (int, error)
	SelectConnection(id uuid.UUID) (*model.Connection, error)
	SelectConnectionsForChunk(chunkID uuid.UUID, connectionType *model.ConnectionType, limit int) ([]*model.Connection, error)
	SelectConnectionsForDocument(documentID uuid.UUID) ([]*model.Connection, error)
	ExportConnections(documentID *uuid.UUID) ([]*model.ExportRow, error)
}

// ConnectionsDBHandler handles connection-related database operations
type ConnectionsDBHandler struct {
	db *helper.Database
}

// NewConnectionsDBHandler creates a new connections database handler.
// It initializes the database connection and loads connection-related
// SQL functions. If force is true, it will reload the SQL functions
// even if they already exist.
func NewConnectionsDBHandler(db *helper.Database, force bool) (*ConnectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	connectionsDbHandler := &ConnectionsDBHandler{
		db: db,
	}

	err := loadSql.LoadConnectionsSql(connectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load connections sql", err)
	}

	err = connectionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConnectionsDBHandler")

	return connectionsDbHandler, nil
}

// CreateTable creates the 'connections' table in the database.
// If the table already exists, it does not create it again.
func (h *ConnectionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_connections();`)
	if err != nil {
		return helper.NewError("initializing connections table", err)
	}

	h.db.Logger.Info("Checked/created table connections")

	return nil
}

// UpsertConnections writes connections in batches of at most batchSize
// rows. The unique key (source, target, type) makes the write
// idempotent. A failing batch is retried once at half size before the
// error is surfaced.
func (h *ConnectionsDBHandler) UpsertConnections(ctx context.Context, connections []*model.Connection, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	written := 0
	for start := 0; start < len(connections); start += batchSize {
		end := start + batchSize
		if end > len(connections) {
			end = len(connections)
		}
		batch := connections[start:end]

		count, err := h.upsertBatch(ctx, h.db.Instance, batch)
		if err != nil {
			h.db.Logger.Warn("Batch upsert failed, retrying at half size",
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()),
			)
			count, err = h.upsertHalved(ctx, h.db.Instance, batch)
			if err != nil {
				return written, helper.NewError("upsert connections", err)
			}
		}
		written += count
	}

	return written, nil
}

// ReplaceDocumentConnections atomically replaces the connection set of
// one document: prior connections sourced from the document's chunks
// are deleted and the new set is inserted in the same transaction.
func (h *ConnectionsDBHandler) ReplaceDocumentConnections(ctx context.Context, documentID uuid.UUID, connections []*model.Connection, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	var deleted int
	err = tx.QueryRowContext(ctx, `SELECT delete_document_connections($1)`, documentID).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("delete document connections", err)
	}

	written := 0
	for start := 0; start < len(connections); start += batchSize {
		end := start + batchSize
		if end > len(connections) {
			end = len(connections)
		}

		count, err := h.upsertBatch(ctx, tx, connections[start:end])
		if err != nil {
			return 0, helper.NewError("upsert connections", err)
		}
		written += count
	}

	err = tx.Commit()
	if err != nil {
		return 0, helper.NewError("commit transaction", err)
	}

	h.db.Logger.Info("Replaced document connections",
		slog.String("document_id", documentID.String()),
		slog.Int("deleted", deleted),
		slog.Int("written", written),
	)

	return written, nil
}

// execer covers both *sql.DB and *sql.Tx
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// upsertBatch writes one batch through the upsert_connections function
func (h *ConnectionsDBHandler) upsertBatch(ctx context.Context, db execer, batch []*model.Connection) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	sourceIDs := make([]string, len(batch))
	targetIDs := make([]string, len(batch))
	types := make([]string, len(batch))
	strengths := make([]float64, len(batch))
	autoDetected := make([]bool, len(batch))
	metadata := make([]string, len(batch))

	for i, connection := range batch {
		sourceIDs[i] = connection.SourceChunkID.String()
		targetIDs[i] = connection.TargetChunkID.String()
		types[i] = string(connection.ConnectionType)
		strengths[i] = connection.Strength
		autoDetected[i] = connection.AutoDetected

		b, err := connection.Metadata.Marshal()
		if err != nil {
			return 0, helper.NewError("marshal metadata", err)
		}
		metadata[i] = string(b)
	}

	var count int
	err := db.QueryRowContext(
		ctx,
		`SELECT upsert_connections($1::uuid[], $2::uuid[], $3::text[], $4::float8[], $5::bool[], $6::jsonb[])`,
		pq.Array(sourceIDs),
		pq.Array(targetIDs),
		pq.Array(types),
		pq.Array(strengths),
		pq.Array(autoDetected),
		pq.Array(metadata),
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return count, nil
}

// upsertHalved retries a failed batch in two halves
func (h *ConnectionsDBHandler) upsertHalved(ctx context.Context, db execer, batch []*model.Connection) (int, error) {
	if len(batch) <= 1 {
		return h.upsertBatch(ctx, db, batch)
	}

	mid := len(batch) / 2
	written := 0

	for _, half := range [][]*model.Connection{batch[:mid], batch[mid:]} {
		count, err := h.upsertBatch(ctx, db, half)
		if err != nil {
			return written, err
		}
		written += count
	}

	return written, nil
}

// SelectConnection retrieves a connection by ID
func (h *ConnectionsDBHandler) SelectConnection(id uuid.UUID) (*model.Connection, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_connection($1)`,
		id,
	)

	connection := &model.Connection{}

	err := row.Scan(
		&connection.ID,
		&connection.SourceChunkID,
		&connection.TargetChunkID,
		&connection.ConnectionType,
		&connection.Strength,
		&connection.AutoDetected,
		&connection.Metadata,
		&connection.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return connection, nil
}

// SelectConnectionsForChunk retrieves connections originating from a
// chunk ordered by descending strength, optionally filtered by type
func (h *ConnectionsDBHandler) SelectConnectionsForChunk(chunkID uuid.UUID, connectionType *model.ConnectionType, limit int) ([]*model.Connection, error) {
	var rows *sql.Rows
	var err error

	if connectionType != nil {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_connections_for_chunk($1, $2, $3)`,
			chunkID,
			*connectionType,
			limit,
		)
	} else {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_connections_for_chunk($1, NULL, $2)`,
			chunkID,
			limit,
		)
	}

	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

// SelectConnectionsForDocument retrieves all connections whose source
// chunk belongs to the document
func (h *ConnectionsDBHandler) SelectConnectionsForDocument(documentID uuid.UUID) ([]*model.Connection, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_connections_for_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

// ExportConnections returns the adjacency-list export, optionally
// scoped to one document
func (h *ConnectionsDBHandler) ExportConnections(documentID *uuid.UUID) ([]*model.ExportRow, error) {
	var rows *sql.Rows
	var err error

	if documentID != nil {
		rows, err = h.db.Instance.Query(`SELECT * FROM export_connections($1)`, *documentID)
	} else {
		rows, err = h.db.Instance.Query(`SELECT * FROM export_connections(NULL)`)
	}

	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var export []*model.ExportRow
	for rows.Next() {
		row := &model.ExportRow{}

		err := rows.Scan(
			&row.SourceChunkID,
			&row.TargetChunkID,
			&row.ConnectionType,
			&row.Strength,
			&row.Metadata,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		export = append(export, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return export, nil
}

// scanConnections scans all rows selected from a connections function
func scanConnections(rows *sql.Rows) ([]*model.Connection, error) {
	var connections []*model.Connection
	for rows.Next() {
		connection := &model.Connection{}

		err := rows.Scan(
			&connection.ID,
			&connection.SourceChunkID,
			&connection.TargetChunkID,
			&connection.ConnectionType,
			&connection.Strength,
			&connection.AutoDetected,
			&connection.Metadata,
			&connection.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		connections = append(connections, connection)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return connections, nil
}
