package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"foodshop/internal/domain"
)

type MySQLCarts struct{ db sqlx.ExtContext }

func NewMySQLCarts(db sqlx.ExtContext) *MySQLCarts { return &MySQLCarts{db: db} }

var _ CartRepository = (*MySQLCarts)(nil)

func (r *MySQLCarts) Create(ctx context.Context, c *domain.Cart) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO cart (customer_id, created_at) VALUES (?, ?)`, c.CustomerID, c.CreatedAt)
	if isMySQLError(err, mysqlErrDuplicateEntry) {
		return ErrAlreadyExists
	}
	if err != nil {
		return errors.Wrap(err, "insert cart")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "cart id")
	}
	c.ID = id
	return nil
}

func (r *MySQLCarts) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	return r.get(ctx, `SELECT id, customer_id, created_at FROM cart WHERE id = ?`, id)
}

func (r *MySQLCarts) FindByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	return r.get(ctx, `SELECT id, customer_id, created_at FROM cart WHERE customer_id = ?`, customerID)
}

func (r *MySQLCarts) get(ctx context.Context, query string, arg interface{}) (*domain.Cart, error) {
	var c domain.Cart
	err := sqlx.GetContext(ctx, r.db, &c, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select cart")
	}
	return &c, nil
}

func (r *MySQLCarts) GetLine(ctx context.Context, cartID, productID int64) (*domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.db, &l,
		`SELECT cart_id, product_id, quantity FROM cart_line WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select cart line")
	}
	return &l, nil
}

func (r *MySQLCarts) SaveLine(ctx context.Context, line domain.CartLine) error {
	_, err := sqlx.NamedExecContext(ctx, r.db,
		`INSERT INTO cart_line (cart_id, product_id, quantity) VALUES (:cart_id, :product_id, :quantity)
		 ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`, line)
	if isMySQLError(err, mysqlErrNoReferencedRow) {
		return ErrNotFound
	}
	return errors.Wrap(err, "save cart line")
}

func (r *MySQLCarts) DeleteLine(ctx context.Context, cartID, productID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_line WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLCarts) ClearLines(ctx context.Context, cartID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_line WHERE cart_id = ?`, cartID)
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	return rowsAffected(res)
}

func (r *MySQLCarts) Items(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	out := make([]domain.CartItem, 0)
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT l.product_id, p.name, p.price, p.stock, l.quantity
		FROM cart_line l
		INNER JOIN product p ON p.id = l.product_id
		WHERE l.cart_id = ?
		ORDER BY l.product_id`, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "select cart items")
	}
	return out, nil
}
