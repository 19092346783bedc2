package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"foodshop/internal/domain"
)

type MySQLOrders struct{ db sqlx.ExtContext }

func NewMySQLOrders(db sqlx.ExtContext) *MySQLOrders { return &MySQLOrders{db: db} }

var _ OrderRepository = (*MySQLOrders)(nil)

const (
	selectOrder = `SELECT id, customer_id, placed_at, status, payment_status, delivery_address, phone, note,
		coupon_id, payment_method_id FROM orders`

	// coupon_id пишется всегда, NULL когда купона нет
	insertOrder = `INSERT INTO orders (customer_id, placed_at, status, payment_status, delivery_address, phone, note,
		coupon_id, payment_method_id)
		VALUES (:customer_id, :placed_at, :status, :payment_status, :delivery_address, :phone, :note,
		:coupon_id, :payment_method_id)`
)

func (r *MySQLOrders) Create(ctx context.Context, o *domain.Order) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, insertOrder, o)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "order id")
	}
	o.ID = id
	return nil
}

func (r *MySQLOrders) AddLine(ctx context.Context, line domain.OrderLine) error {
	_, err := sqlx.NamedExecContext(ctx, r.db,
		`INSERT INTO order_line (order_id, product_id, unit_price, quantity)
		 VALUES (:order_id, :product_id, :unit_price, :quantity)`, line)
	if isMySQLError(err, mysqlErrDuplicateEntry) {
		return ErrAlreadyExists
	}
	if isMySQLError(err, mysqlErrNoReferencedRow) {
		return ErrNotFound
	}
	return errors.Wrap(err, "insert order line")
}

func (r *MySQLOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := sqlx.GetContext(ctx, r.db, &o, selectOrder+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	return &o, nil
}

func (r *MySQLOrders) Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	out := make([]domain.OrderLine, 0)
	// товар мог быть удалён из каталога, тогда имя пустое
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT l.order_id, l.product_id, COALESCE(p.name, '') AS product_name, l.unit_price, l.quantity
		FROM order_line l
		LEFT JOIN product p ON p.id = l.product_id
		WHERE l.order_id = ?`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select order lines")
	}
	return out, nil
}

func (r *MySQLOrders) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	err := sqlx.SelectContext(ctx, r.db, &out,
		selectOrder+` WHERE customer_id = ? ORDER BY placed_at DESC, id ASC`, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "select customer orders")
	}
	return out, nil
}

func (r *MySQLOrders) List(ctx context.Context) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	if err := sqlx.SelectContext(ctx, r.db, &out, selectOrder+` ORDER BY placed_at DESC, id ASC`); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	return out, nil
}

func (r *MySQLOrders) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	return r.updateColumn(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
}

func (r *MySQLOrders) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	return r.updateColumn(ctx, `UPDATE orders SET payment_status = ? WHERE id = ?`, string(status), id)
}

func (r *MySQLOrders) updateColumn(ctx context.Context, query, value string, id int64) error {
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return errors.Wrap(err, "update order")
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
