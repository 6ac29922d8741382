package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
	loadSql "github.com/siherrmann/weaver/sql"
)

// ModelsDBHandlerFunctions defines the interface for personal model
// storage.
type ModelsDBHandlerFunctions interface {
	UpsertPersonalModel(personalModel *model.PersonalModel) error
	SelectPersonalModel(userID uuid.UUID) (*model.PersonalModel, error)
	DeletePersonalModel(userID uuid.UUID) error
}

// ModelsDBHandler handles personal-model-related database operations
type ModelsDBHandler struct {
	db *helper.Database
}

// NewModelsDBHandler creates a new models database handler.
// It initializes the database connection and loads model-related SQL
// functions. If force is true, it will reload the SQL functions even
// if they already exist.
func NewModelsDBHandler(db *helper.Database, force bool) (*ModelsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	modelsDbHandler := &ModelsDBHandler{
		db: db,
	}

	err := loadSql.LoadModelsSql(modelsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load models sql", err)
	}

	err = modelsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ModelsDBHandler")

	return modelsDbHandler, nil
}

// CreateTable creates the 'personal_models' table in the database.
// If the table already exists, it does not create it again.
func (h *ModelsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_models();`)
	if err != nil {
		return helper.NewError("initializing personal_models table", err)
	}

	h.db.Logger.Info("Checked/created table personal_models")

	return nil
}

// UpsertPersonalModel replaces a user's model wholesale
func (h *ModelsDBHandler) UpsertPersonalModel(personalModel *model.PersonalModel) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_personal_model($1, $2, $3, $4, $5)`,
		personalModel.UserID,
		personalModel.ModelType,
		personalModel.Parameters,
		personalModel.Accuracy,
		personalModel.SampleCount,
	)

	err := row.Scan(
		&personalModel.UserID,
		&personalModel.ModelType,
		&personalModel.Parameters,
		&personalModel.Accuracy,
		&personalModel.SampleCount,
		&personalModel.TrainedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectPersonalModel retrieves a user's model, returning nil without
// error when the user has none
func (h *ModelsDBHandler) SelectPersonalModel(userID uuid.UUID) (*model.PersonalModel, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_personal_model($1)`,
		userID,
	)

	personalModel := &model.PersonalModel{}

	err := row.Scan(
		&personalModel.UserID,
		&personalModel.ModelType,
		&personalModel.Parameters,
		&personalModel.Accuracy,
		&personalModel.SampleCount,
		&personalModel.TrainedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return personalModel, nil
}

// DeletePersonalModel removes a user's model, reverting ranking to
// pure weighted scoring
func (h *ModelsDBHandler) DeletePersonalModel(userID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_personal_model($1)`,
		userID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
