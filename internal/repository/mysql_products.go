package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"foodshop/internal/domain"
)

// MySQLProducts каталог и учёт остатков. Работает как с *sqlx.DB, так и с *sqlx.Tx.
type MySQLProducts struct{ db sqlx.ExtContext }

func NewMySQLProducts(db sqlx.ExtContext) *MySQLProducts { return &MySQLProducts{db: db} }

var (
	_ ProductRepository = (*MySQLProducts)(nil)
	_ StockLedger       = (*MySQLProducts)(nil)
)

const selectProduct = `SELECT id, name, category_id, price, stock FROM product`

func (r *MySQLProducts) Create(ctx context.Context, p *domain.Product) error {
	res, err := sqlx.NamedExecContext(ctx, r.db,
		`INSERT INTO product (name, category_id, price, stock) VALUES (:name, :category_id, :price, :stock)`, p)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "product id")
	}
	p.ID = id
	return nil
}

func (r *MySQLProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, selectProduct+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return &p, nil
}

func (r *MySQLProducts) Update(ctx context.Context, p *domain.Product) error {
	res, err := sqlx.NamedExecContext(ctx, r.db,
		`UPDATE product SET name = :name, category_id = :category_id, price = :price, stock = :stock WHERE id = :id`, p)
	if err != nil {
		return errors.Wrap(err, "update product")
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

func (r *MySQLProducts) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
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

func (r *MySQLProducts) List(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0)
	if err := sqlx.SelectContext(ctx, r.db, &out, selectProduct+` ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	return out, nil
}

func (r *MySQLProducts) Stock(ctx context.Context, productID int64) (int64, error) {
	var stock int64
	err := sqlx.GetContext(ctx, r.db, &stock, `SELECT stock FROM product WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "select stock")
	}
	return stock, nil
}

// DecrementStock условное списание: условие stock >= qty проверяет сама база,
// поэтому два конкурентных списания не уведут остаток в минус.
func (r *MySQLProducts) DecrementStock(ctx context.Context, productID, qty int64) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE product SET stock = stock - ? WHERE id = ? AND stock >= ?`, qty, productID, qty)
	if err != nil {
		return false, errors.Wrapf(err, "decrement stock of product %d", productID)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
