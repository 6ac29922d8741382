package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed connections.sql
var connectionsSQL string

//go:embed weights.sql
var weightsSQL string

//go:embed feedback.sql
var feedbackSQL string

//go:embed models.sql
var modelsSQL string

// Function lists for verification
var ConnectionsFunctions = []string{
	"init_connections",
	"upsert_connections",
	"delete_document_connections",
	"select_connection",
	"select_connections_for_chunk",
	"select_connections_for_document",
	"export_connections",
}

var WeightsFunctions = []string{
	"init_weights",
	"upsert_weight_config",
	"select_weight_config",
	"insert_weight_change",
	"select_weight_changes",
}

var FeedbackFunctions = []string{
	"init_feedback",
	"insert_feedback",
	"select_feedback_since",
	"select_feedback_for_connection",
	"select_feedback_user_ids",
	"select_feedback_stats_since",
	"select_training_samples",
}

var ModelsFunctions = []string{
	"init_models",
	"upsert_personal_model",
	"select_personal_model",
	"delete_personal_model",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadConnectionsSql loads connection-related SQL functions
func LoadConnectionsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ConnectionsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing connections functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(connectionsSQL)
	if err != nil {
		return fmt.Errorf("error executing connections SQL: %w", err)
	}

	exist, err := checkFunctions(db, ConnectionsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL connections functions loaded successfully")
	return nil
}

// LoadWeightsSql loads weight-related SQL functions
func LoadWeightsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, WeightsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing weights functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(weightsSQL)
	if err != nil {
		return fmt.Errorf("error executing weights SQL: %w", err)
	}

	exist, err := checkFunctions(db, WeightsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL weights functions loaded successfully")
	return nil
}

// LoadFeedbackSql loads feedback-related SQL functions
func LoadFeedbackSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, FeedbackFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing feedback functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(feedbackSQL)
	if err != nil {
		return fmt.Errorf("error executing feedback SQL: %w", err)
	}

	exist, err := checkFunctions(db, FeedbackFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL feedback functions loaded successfully")
	return nil
}

// LoadModelsSql loads personal-model-related SQL functions
func LoadModelsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ModelsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing models functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(modelsSQL)
	if err != nil {
		return fmt.Errorf("error executing models SQL: %w", err)
	}

	exist, err := checkFunctions(db, ModelsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL models functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadConnectionsSql(db, force); err != nil {
		return err
	}

	if err := LoadWeightsSql(db, force); err != nil {
		return err
	}

	if err := LoadFeedbackSql(db, force); err != nil {
		return err
	}

	if err := LoadModelsSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
