// Package config loads the core's configuration from the environment, with a
// .env file honored for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config carries every knob the provisioning core needs. The HTTP layer has
// its own configuration; none of it lives here.
type Config struct {
	// Database connection.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Git hosting service.
	GitBaseURL    string
	GitAdminToken string

	// Secret store.
	KubeNamespace string

	// Course term boundaries, used as defaults when provisioning the course
	// row and as fallbacks for unscheduled assignments.
	CourseStartAt time.Time
	CourseEndAt   time.Time

	// Directory for persisted saga execution state.
	SagaStateDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is the normal case in deployment.
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "grader"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		GitBaseURL:    getEnv("GIT_BASE_URL", "http://localhost:3000"),
		GitAdminToken: getEnv("GIT_ADMIN_TOKEN", ""),
		KubeNamespace: getEnv("KUBE_NAMESPACE", "default"),
		SagaStateDir:  getEnv("SAGA_STATE_DIR", "./saga-state"),
	}

	var err error
	cfg.CourseStartAt, err = getEnvTime("COURSE_START_DATE")
	if err != nil {
		return nil, err
	}
	cfg.CourseEndAt, err = getEnvTime("COURSE_END_DATE")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvTime(key string) (time.Time, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "%s must be RFC3339", key)
	}
	return t, nil
}
