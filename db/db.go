// Package db provides the repository layer over Postgres. Repositories are
// intentionally thin CRUD: every multi-system operation belongs to a saga in
// the provision package, and each saga step commits independently so that
// partial progress stays visible to compensations.
package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eduhelx/grader-core/config"
)

var syslog = logrus.WithField("component", "db")

// Connect opens and pings the Postgres database described by cfg.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	syslog.WithField("database", cfg.DBName).Info("database connected")
	return conn, nil
}
