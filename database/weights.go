package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
	loadSql "github.com/siherrmann/weaver/sql"
)

// WeightsDBHandlerFunctions defines the interface for weight store
// operations.
type WeightsDBHandlerFunctions interface {
	SelectWeightConfig(userID uuid.UUID) (*model.WeightConfig, error)
	UpsertWeightConfig(config *model.WeightConfig, reason string) error
	SelectWeightChanges(userID uuid.UUID, limit int) ([]*model.WeightChange, error)
}

// WeightsDBHandler handles weight-related database operations
type WeightsDBHandler struct {
	db *helper.Database
}

// NewWeightsDBHandler creates a new weights database handler.
// It initializes the database connection and loads weight-related SQL
// functions. If force is true, it will reload the SQL functions even
// if they already exist.
func NewWeightsDBHandler(db *helper.Database, force bool) (*WeightsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	weightsDbHandler := &WeightsDBHandler{
		db: db,
	}

	err := loadSql.LoadWeightsSql(weightsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load weights sql", err)
	}

	err = weightsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized WeightsDBHandler")

	return weightsDbHandler, nil
}

// CreateTable creates the 'weight_configs' and 'weight_changes' tables
// in the database. If the tables already exist, it does not create
// them again.
func (h *WeightsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_weights();`)
	if err != nil {
		return helper.NewError("initializing weights tables", err)
	}

	h.db.Logger.Info("Checked/created tables weight_configs and weight_changes")

	return nil
}

// SelectWeightConfig retrieves a user's weight configuration, falling
// back to the default configuration if the user never stored one
func (h *WeightsDBHandler) SelectWeightConfig(userID uuid.UUID) (*model.WeightConfig, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_weight_config($1)`,
		userID,
	)

	config := &model.WeightConfig{}
	var weightsJSON, orderJSON []byte

	err := row.Scan(
		&config.UserID,
		&weightsJSON,
		&orderJSON,
		&config.MaxConnectionsPerChunk,
		&config.MaxConnectionsPerEngine,
		&config.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.DefaultWeightConfig(userID), nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	err = json.Unmarshal(weightsJSON, &config.Weights)
	if err != nil {
		return nil, helper.NewError("unmarshal weights", err)
	}

	err = json.Unmarshal(orderJSON, &config.EngineOrder)
	if err != nil {
		return nil, helper.NewError("unmarshal engine order", err)
	}

	return config, nil
}

// UpsertWeightConfig validates and stores a weight configuration and
// writes one audit log entry per changed engine weight. Invalid
// configurations are rejected without touching the stored one.
func (h *WeightsDBHandler) UpsertWeightConfig(config *model.WeightConfig, reason string) error {
	err := config.Validate()
	if err != nil {
		return helper.NewError("validate weight config", err)
	}

	old, err := h.SelectWeightConfig(config.UserID)
	if err != nil {
		return helper.NewError("select previous weight config", err)
	}

	weightsJSON, err := json.Marshal(config.Weights)
	if err != nil {
		return helper.NewError("marshal weights", err)
	}

	orderJSON, err := json.Marshal(config.EngineOrder)
	if err != nil {
		return helper.NewError("marshal engine order", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_weight_config($1, $2, $3, $4, $5)`,
		config.UserID,
		weightsJSON,
		orderJSON,
		config.MaxConnectionsPerChunk,
		config.MaxConnectionsPerEngine,
	)

	var storedWeights, storedOrder []byte
	err = row.Scan(
		&config.UserID,
		&storedWeights,
		&storedOrder,
		&config.MaxConnectionsPerChunk,
		&config.MaxConnectionsPerEngine,
		&config.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	for engine, newWeight := range config.Weights {
		oldWeight := old.WeightFor(engine)
		if oldWeight == newWeight {
			continue
		}

		_, err = tx.ExecContext(
			ctx,
			`SELECT insert_weight_change($1, $2, $3, $4, $5)`,
			config.UserID,
			engine,
			oldWeight,
			newWeight,
			reason,
		)
		if err != nil {
			return helper.NewError("insert weight change", err)
		}

		h.db.Logger.Info("Weight changed",
			slog.String("user_id", config.UserID.String()),
			slog.String("engine", string(engine)),
			slog.Float64("old_weight", oldWeight),
			slog.Float64("new_weight", newWeight),
			slog.String("reason", reason),
		)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit transaction", err)
	}

	return nil
}

// SelectWeightChanges retrieves the most recent audit log entries for
// a user, newest first
func (h *WeightsDBHandler) SelectWeightChanges(userID uuid.UUID, limit int) ([]*model.WeightChange, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_weight_changes($1, $2)`,
		userID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var changes []*model.WeightChange
	for rows.Next() {
		change := &model.WeightChange{}

		err := rows.Scan(
			&change.ID,
			&change.UserID,
			&change.Engine,
			&change.OldWeight,
			&change.NewWeight,
			&change.Reason,
			&change.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		changes = append(changes, change)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return changes, nil
}
