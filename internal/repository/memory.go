package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodshop/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextCartID   int64
	nextOrderID  int64
	productsByID map[int64]domain.Product
	cartsByID    map[int64]domain.Cart
	cartByCust   map[string]int64
	cartLines    map[int64][]domain.CartLine
	ordersByID   map[int64]domain.Order
	orderSeq     []int64
	orderLines   map[int64][]domain.OrderLine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextCartID:   1,
		nextOrderID:  1,
		productsByID: make(map[int64]domain.Product),
		cartsByID:    make(map[int64]domain.Cart),
		cartByCust:   make(map[string]int64),
		cartLines:    make(map[int64][]domain.CartLine),
		ordersByID:   make(map[int64]domain.Order),
		orderLines:   make(map[int64][]domain.OrderLine),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var (
	_ ProductRepository = (*MemoryStore)(nil)
	_ StockLedger       = (*MemoryStore)(nil)
)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0, len(m.productsByID))
	for _, p := range m.productsByID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// StockLedger implementation
func (m *MemoryStore) Stock(ctx context.Context, productID int64) (int64, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[productID]
	if !ok {
		return 0, ErrNotFound
	}
	return p.Stock, nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, productID, qty int64) (bool, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[productID]
	if !ok || qty <= 0 || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.productsByID[productID] = p
	return true, nil
}

// CartRepository implementation on wrapper type
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

func (mc *MemoryCarts) Create(ctx context.Context, c *domain.Cart) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.cartByCust[c.CustomerID]; ok {
		return ErrAlreadyExists
	}
	c.ID = mc.store.nextCartID
	mc.store.nextCartID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	mc.store.cartsByID[c.ID] = *c
	mc.store.cartByCust[c.CustomerID] = c.ID
	return nil
}

func (mc *MemoryCarts) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.cartsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (mc *MemoryCarts) FindByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	id, ok := mc.store.cartByCust[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	c := mc.store.cartsByID[id]
	return &c, nil
}

func (mc *MemoryCarts) GetLine(ctx context.Context, cartID, productID int64) (*domain.CartLine, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	for _, l := range mc.store.cartLines[cartID] {
		if l.ProductID == productID {
			cp := l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mc *MemoryCarts) SaveLine(ctx context.Context, line domain.CartLine) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.cartsByID[line.CartID]; !ok {
		return ErrNotFound
	}
	lines := mc.store.cartLines[line.CartID]
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity = line.Quantity
			return nil
		}
	}
	mc.store.cartLines[line.CartID] = append(lines, line)
	return nil
}

func (mc *MemoryCarts) DeleteLine(ctx context.Context, cartID, productID int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	lines := mc.store.cartLines[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			mc.store.cartLines[cartID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (mc *MemoryCarts) ClearLines(ctx context.Context, cartID int64) (int64, error) {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	n := int64(len(mc.store.cartLines[cartID]))
	delete(mc.store.cartLines, cartID)
	return n, nil
}

func (mc *MemoryCarts) Items(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	lines := mc.store.cartLines[cartID]
	out := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		p, ok := mc.store.productsByID[l.ProductID]
		if !ok {
			// товар удалён из каталога, как при INNER JOIN
			continue
		}
		out = append(out, domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Stock:     p.Stock,
			Quantity:  l.Quantity,
		})
	}
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	if o.PlacedAt.IsZero() {
		o.PlacedAt = time.Now().UTC()
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	mo.store.orderSeq = append(mo.store.orderSeq, o.ID)
	return nil
}

func (mo *MemoryOrders) AddLine(ctx context.Context, line domain.OrderLine) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[line.OrderID]; !ok {
		return ErrNotFound
	}
	for _, l := range mo.store.orderLines[line.OrderID] {
		if l.ProductID == line.ProductID {
			return ErrAlreadyExists
		}
	}
	mo.store.orderLines[line.OrderID] = append(mo.store.orderLines[line.OrderID], line)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	lines := mo.store.orderLines[orderID]
	out := make([]domain.OrderLine, len(lines))
	copy(out, lines)
	for i := range out {
		// как LEFT JOIN: удалённый товар оставляет имя пустым
		out[i].ProductName = mo.store.productsByID[out[i].ProductID].Name
	}
	return out, nil
}

func (mo *MemoryOrders) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return mo.list(ctx, func(o domain.Order) bool { return o.CustomerID == customerID })
}

func (mo *MemoryOrders) List(ctx context.Context) ([]domain.Order, error) {
	return mo.list(ctx, func(domain.Order) bool { return true })
}

func (mo *MemoryOrders) list(ctx context.Context, keep func(domain.Order) bool) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, id := range mo.store.orderSeq {
		o := mo.store.ordersByID[id]
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	// стабильная сортировка сохраняет порядок вставки при равных PlacedAt
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out, nil
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	return mo.update(ctx, id, func(o *domain.Order) { o.Status = status })
}

func (mo *MemoryOrders) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	return mo.update(ctx, id, func(o *domain.Order) { o.PaymentStatus = status })
}

func (mo *MemoryOrders) update(ctx context.Context, id int64, fn func(o *domain.Order)) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&o)
	mo.store.ordersByID[id] = o
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	if o.CouponID != nil {
		v := *o.CouponID
		o.CouponID = &v
	}
	if o.PaymentMethodID != nil {
		v := *o.PaymentMethodID
		o.PaymentMethodID = &v
	}
	return o
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

// WithTransaction держит блокировку записи на всё время fn и восстанавливает
// снимок хранилища, если fn вернула ошибку или запаниковала.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snap := tx.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			tx.store.restore(snap)
			panic(p)
		}
		if err != nil {
			tx.store.restore(snap)
		}
	}()

	// помечаем контекст, чтобы репозитории пропускали внутренние локи
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx, memoryUnit{store: tx.store})
}

type memoryUnit struct{ store *MemoryStore }

func (u memoryUnit) Stock() StockLedger    { return u.store }
func (u memoryUnit) Orders() OrderWriter   { return NewMemoryOrders(u.store) }
func (u memoryUnit) Carts() CartRepository { return NewMemoryCarts(u.store) }

type memorySnapshot struct {
	nextProdID, nextCartID, nextOrderID int64

	products   map[int64]domain.Product
	carts      map[int64]domain.Cart
	cartByCust map[string]int64
	cartLines  map[int64][]domain.CartLine
	orders     map[int64]domain.Order
	orderSeq   []int64
	orderLines map[int64][]domain.OrderLine
}

// snapshot вызывается под блокировкой записи
func (m *MemoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		nextProdID:  m.nextProdID,
		nextCartID:  m.nextCartID,
		nextOrderID: m.nextOrderID,
		products:    make(map[int64]domain.Product, len(m.productsByID)),
		carts:       make(map[int64]domain.Cart, len(m.cartsByID)),
		cartByCust:  make(map[string]int64, len(m.cartByCust)),
		cartLines:   make(map[int64][]domain.CartLine, len(m.cartLines)),
		orders:      make(map[int64]domain.Order, len(m.ordersByID)),
		orderSeq:    append([]int64(nil), m.orderSeq...),
		orderLines:  make(map[int64][]domain.OrderLine, len(m.orderLines)),
	}
	for k, v := range m.productsByID {
		s.products[k] = v
	}
	for k, v := range m.cartsByID {
		s.carts[k] = v
	}
	for k, v := range m.cartByCust {
		s.cartByCust[k] = v
	}
	for k, v := range m.cartLines {
		s.cartLines[k] = append([]domain.CartLine(nil), v...)
	}
	for k, v := range m.ordersByID {
		s.orders[k] = cloneOrder(v)
	}
	for k, v := range m.orderLines {
		s.orderLines[k] = append([]domain.OrderLine(nil), v...)
	}
	return s
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.nextProdID = s.nextProdID
	m.nextCartID = s.nextCartID
	m.nextOrderID = s.nextOrderID
	m.productsByID = s.products
	m.cartsByID = s.carts
	m.cartByCust = s.cartByCust
	m.cartLines = s.cartLines
	m.ordersByID = s.orders
	m.orderSeq = s.orderSeq
	m.orderLines = s.orderLines
}
