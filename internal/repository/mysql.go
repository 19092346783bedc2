package repository

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

// NormalizeDSN включает опции драйвера, на которые опираются репозитории:
// parseTime для DATETIME и clientFoundRows, чтобы RowsAffected считал
// найденные, а не изменённые строки.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := normalizeConfig(dsn)
	if err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

func normalizeConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// migrationDSN несколько выражений в одном файле миграции нужны только migrate
func migrationDSN(dsn string) (string, error) {
	cfg, err := normalizeConfig(dsn)
	if err != nil {
		return "", err
	}
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

// OpenMySQL открывает пул соединений и проверяет доступность базы
func OpenMySQL(ctx context.Context, dsn string, maxConn int) (*sqlx.DB, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if maxConn > 0 {
		db.SetMaxOpenConns(maxConn)
		db.SetMaxIdleConns(maxConn)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

// Migrate применяет встроенные миграции схемы
func Migrate(dsn string) error {
	dsn, err := migrationDSN(dsn)
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open migrations source")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "mysql://"+dsn)
	if err != nil {
		return errors.Wrap(err, "init migrations")
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

func isMySQLError(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// MySQLTx транзакции поверх sqlx
type MySQLTx struct{ db *sqlx.DB }

func NewMySQLTx(db *sqlx.DB) *MySQLTx { return &MySQLTx{db: db} }

var _ TxManager = (*MySQLTx)(nil)

func (m *MySQLTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.WithMessagef(err, "rollback failed: %v", rbErr)
			}
			return
		}
		err = errors.Wrap(tx.Commit(), "commit transaction")
	}()
	return fn(ctx, mysqlUnit{tx: tx})
}

type mysqlUnit struct{ tx *sqlx.Tx }

func (u mysqlUnit) Stock() StockLedger    { return NewMySQLProducts(u.tx) }
func (u mysqlUnit) Orders() OrderWriter   { return NewMySQLOrders(u.tx) }
func (u mysqlUnit) Carts() CartRepository { return NewMySQLCarts(u.tx) }
