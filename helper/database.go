package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the Postgres connection parameters
type DatabaseConfiguration struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// NewDatabaseConfiguration reads the database configuration from the
// environment (loading .env if present). All values are required.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
	}

	if config.Host == "" || config.Port == "" || config.User == "" || config.Password == "" || config.Name == "" {
		return nil, fmt.Errorf("missing database configuration, need DB_HOST, DB_PORT, DB_USER, DB_PASSWORD and DB_NAME")
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

// Database wraps the sql connection with the service logger
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a Postgres connection and pings it.
// It exits the process on failure, a service without its database
// cannot do anything useful.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		log.Fatalf("error opening database connection for %s: %v", name, err)
	}

	err = db.Ping()
	if err != nil {
		log.Fatalf("error pinging database for %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Instance: db,
		Logger:   logger,
	}
}
