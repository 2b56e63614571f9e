package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/openschool/campus/assets"
	"github.com/openschool/campus/core"
)

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open(conf.Database.Engine, dsn(dbName, admin, conf))
}

// Open connects to the application database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const (
	pingAttempts = 30
	pingBackoff  = 100 * time.Millisecond
)

// ping waits for the database to be ready, backing off a little longer after each failed attempt.
func ping(db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * pingBackoff)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// ensure runs create unless exists, a boolean query over name, is true.
func ensure(db *sqlx.DB, exists, name, create string) error {
	var found bool
	if err := db.Get(&found, exists, name); err != nil {
		return errors.Wrapf(err, "looking up %s", name)
	}
	if found {
		return nil
	}
	_, err := db.Exec(create)
	return errors.Wrapf(err, "creating %s", name)
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	return ensure(db, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User,
		fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password)))
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	return ensure(db, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name,
		"CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name))
}

// CreateIfNotExist creates the application user and database, connecting as the admin user.
func CreateIfNotExist(conf *core.Config) error {
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// RunMigrations runs a goose command (up, down, status, ...) against the embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(assets.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Run(command, db, assets.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations: %s", command)
	}
	return nil
}

func Migrate(db *sql.DB) error {
	return RunMigrations(db, "up")
}
