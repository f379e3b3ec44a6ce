package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
	"github.com/google/uuid"
)

type fakeData struct {
	nextID    int64
	products  map[int64]domain.Product
	lineItems map[int64]domain.LineItem
	orders    map[int64]domain.Order
	payments  map[int64]domain.Payment
	profiles  map[int64]domain.Profile
	addresses map[int64]domain.Address
	outbox    []domain.OutboxEvent
	processed map[int64]bool
}

func newFakeData() *fakeData {
	return &fakeData{
		products:  map[int64]domain.Product{},
		lineItems: map[int64]domain.LineItem{},
		orders:    map[int64]domain.Order{},
		payments:  map[int64]domain.Payment{},
		profiles:  map[int64]domain.Profile{},
		addresses: map[int64]domain.Address{},
		processed: map[int64]bool{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *fakeData) clone() *fakeData {
	return &fakeData{
		nextID:    d.nextID,
		products:  cloneMap(d.products),
		lineItems: cloneMap(d.lineItems),
		orders:    cloneMap(d.orders),
		payments:  cloneMap(d.payments),
		profiles:  cloneMap(d.profiles),
		addresses: cloneMap(d.addresses),
		outbox:    append([]domain.OutboxEvent(nil), d.outbox...),
		processed: cloneMap(d.processed),
	}
}

func (d *fakeData) id() int64 {
	d.nextID++
	return d.nextID
}

type fakeState struct {
	mu       sync.Mutex
	data     *fakeData
	failures map[string]error
	now      func() time.Time
}

// fakeQuerier works on the shared state. Outside a transaction every call
// takes the store mutex; inside WithTx the mutex is already held.
type fakeQuerier struct {
	st   *fakeState
	inTx bool
}

// fakeStore is an in-memory repository.Store. WithTx serializes
// transactions and restores a snapshot when fn fails.
type fakeStore struct {
	*fakeQuerier
}

func newFakeStore() *fakeStore {
	st := &fakeState{data: newFakeData(), failures: map[string]error{}, now: time.Now}
	return &fakeStore{&fakeQuerier{st: st}}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	snapshot := s.st.data.clone()
	if err := fn(&fakeQuerier{st: s.st, inTx: true}); err != nil {
		s.st.data = snapshot
		return err
	}
	return nil
}

func (s *fakeStore) failOn(method string, err error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.failures[method] = err
}

func (f *fakeQuerier) lock() func() {
	if f.inTx {
		return func() {}
	}
	f.st.mu.Lock()
	return f.st.mu.Unlock
}

func (f *fakeQuerier) d() *fakeData { return f.st.data }

func (f *fakeQuerier) fail(method string) error { return f.st.failures[method] }

func (f *fakeQuerier) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	defer f.lock()()
	p, ok := f.d().products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeQuerier) ListProducts(_ context.Context) ([]*domain.Product, error) {
	defer f.lock()()
	var out []*domain.Product
	for _, p := range f.d().products {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuerier) duplicateProduct(p *domain.Product) bool {
	for _, other := range f.d().products {
		if other.ID != p.ID && other.ProductHeadID == p.ProductHeadID && other.SizeID == p.SizeID && other.ColorID == p.ColorID {
			return true
		}
	}
	return false
}

func (f *fakeQuerier) CreateProduct(_ context.Context, p *domain.Product) error {
	defer f.lock()()
	p.ID = 0
	if f.duplicateProduct(p) {
		return repository.ErrDuplicateProduct
	}
	p.ID = f.d().id()
	p.CreatedAt, p.UpdatedAt = f.st.now(), f.st.now()
	f.d().products[p.ID] = *p
	return nil
}

func (f *fakeQuerier) UpdateProduct(_ context.Context, p *domain.Product) error {
	defer f.lock()()
	old, ok := f.d().products[p.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if f.duplicateProduct(p) {
		return repository.ErrDuplicateProduct
	}
	p.Inventory = old.Inventory
	p.CreatedAt, p.UpdatedAt = old.CreatedAt, f.st.now()
	f.d().products[p.ID] = *p
	return nil
}

func (f *fakeQuerier) AdjustInventory(_ context.Context, productID int64, delta int) (*domain.Product, error) {
	defer f.lock()()
	p, ok := f.d().products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Inventory+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	p.Inventory += delta
	p.UpdatedAt = f.st.now()
	f.d().products[productID] = p
	return &p, nil
}

func (f *fakeQuerier) LockProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	defer f.lock()()
	out := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.d().products[id]; ok {
			p := p
			out[id] = &p
		}
	}
	return out, nil
}

func (f *fakeQuerier) DecrementInventory(_ context.Context, productID int64, quantity int) error {
	defer f.lock()()
	p, ok := f.d().products[productID]
	if !ok || p.Inventory < quantity {
		return repository.ErrInsufficientStock
	}
	p.Inventory -= quantity
	f.d().products[productID] = p
	return nil
}

func (f *fakeQuerier) CreateLineItem(_ context.Context, item *domain.LineItem) error {
	defer f.lock()()
	item.ID = f.d().id()
	item.Active = true
	item.OrderID = nil
	item.CreatedAt, item.UpdatedAt = f.st.now(), f.st.now()
	f.d().lineItems[item.ID] = *item
	return nil
}

func (f *fakeQuerier) GetLineItem(_ context.Context, id int64) (*domain.LineItem, error) {
	defer f.lock()()
	li, ok := f.d().lineItems[id]
	if !ok {
		return nil, repository.ErrLineItemNotFound
	}
	return &li, nil
}

func (f *fakeQuerier) UpdateLineItem(_ context.Context, item *domain.LineItem) error {
	defer f.lock()()
	li, ok := f.d().lineItems[item.ID]
	if !ok || li.UserID != item.UserID || !li.Active {
		return repository.ErrLineItemNotFound
	}
	li.Quantity, li.Price, li.UpdatedAt = item.Quantity, item.Price, f.st.now()
	f.d().lineItems[item.ID] = li
	return nil
}

func (f *fakeQuerier) DeleteLineItem(_ context.Context, id, userID int64) error {
	defer f.lock()()
	li, ok := f.d().lineItems[id]
	if !ok || li.UserID != userID || !li.Active {
		return repository.ErrLineItemNotFound
	}
	delete(f.d().lineItems, id)
	return nil
}

func (f *fakeQuerier) lineItems(match func(li domain.LineItem) bool) []*domain.LineItem {
	var out []*domain.LineItem
	for _, li := range f.d().lineItems {
		if match(li) {
			li := li
			out = append(out, &li)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeQuerier) ListActiveLineItems(_ context.Context, userID int64) ([]*domain.LineItem, error) {
	defer f.lock()()
	return f.lineItems(func(li domain.LineItem) bool { return li.UserID == userID && li.Active }), nil
}

func (f *fakeQuerier) LockActiveLineItems(_ context.Context, userID int64, ids []int64) ([]*domain.LineItem, error) {
	defer f.lock()()
	wanted := map[int64]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	return f.lineItems(func(li domain.LineItem) bool { return wanted[li.ID] && li.UserID == userID && li.Active }), nil
}

func (f *fakeQuerier) ConsumeLineItem(_ context.Context, item *domain.LineItem, orderID int64) error {
	defer f.lock()()
	li, ok := f.d().lineItems[item.ID]
	if !ok || !li.Active {
		return repository.ErrLineItemConsumed
	}
	li.Active, li.OrderID, li.Price = false, &orderID, item.Price
	f.d().lineItems[item.ID] = li
	item.Active, item.OrderID = false, &orderID
	return nil
}

func (f *fakeQuerier) CreateOrder(_ context.Context, order *domain.Order) error {
	defer f.lock()()
	if err := f.fail("CreateOrder"); err != nil {
		return err
	}
	order.ID = f.d().id()
	order.CreatedAt, order.UpdatedAt = f.st.now(), f.st.now()
	stored := *order
	stored.Items = nil
	f.d().orders[order.ID] = stored
	return nil
}

func (f *fakeQuerier) withItems(o domain.Order) *domain.Order {
	o.Items = f.lineItems(func(li domain.LineItem) bool { return li.OrderID != nil && *li.OrderID == o.ID })
	return &o
}

func (f *fakeQuerier) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	defer f.lock()()
	o, ok := f.d().orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return f.withItems(o), nil
}

func (f *fakeQuerier) ListOrders(_ context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	defer f.lock()()
	var out []*domain.Order
	for _, o := range f.d().orders {
		if filter.UserID == nil || o.UserID == *filter.UserID {
			out = append(out, f.withItems(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeQuerier) paymentFor(orderID int64) (domain.Payment, bool) {
	for _, p := range f.d().payments {
		if p.OrderID == orderID {
			return p, true
		}
	}
	return domain.Payment{}, false
}

func (f *fakeQuerier) sessionTaken(sessionID string, paymentID int64) bool {
	for _, p := range f.d().payments {
		if p.SessionID == sessionID && p.ID != paymentID {
			return true
		}
	}
	return false
}

func (f *fakeQuerier) UpsertPendingPayment(_ context.Context, p *domain.Payment) error {
	defer f.lock()()
	existing, ok := f.paymentFor(p.OrderID)
	if ok && existing.Status == domain.PaymentStatusPaid {
		return repository.ErrPaymentAlreadyPaid
	}
	if !ok {
		existing = domain.Payment{ID: f.d().id(), OrderID: p.OrderID, CreatedAt: f.st.now()}
	}
	if f.sessionTaken(p.SessionID, existing.ID) {
		return repository.ErrDuplicateSessionID
	}
	existing.UserID = f.d().orders[p.OrderID].UserID
	existing.Status = domain.PaymentStatusPending
	existing.SessionID, existing.SessionURL, existing.MoneyToPay = p.SessionID, p.SessionURL, p.MoneyToPay
	existing.SessionCreatedAt, existing.UpdatedAt, existing.ExpiredAt = f.st.now(), f.st.now(), nil
	f.d().payments[existing.ID] = existing
	*p = existing
	return nil
}

func (f *fakeQuerier) CreatePaymentIfAbsent(_ context.Context, p *domain.Payment) (bool, error) {
	defer f.lock()()
	if _, ok := f.paymentFor(p.OrderID); ok {
		return false, nil
	}
	if f.sessionTaken(p.SessionID, 0) {
		return false, repository.ErrDuplicateSessionID
	}
	p.ID = f.d().id()
	p.UserID = f.d().orders[p.OrderID].UserID
	p.Status = domain.PaymentStatusPending
	p.SessionCreatedAt, p.CreatedAt, p.UpdatedAt = f.st.now(), f.st.now(), f.st.now()
	f.d().payments[p.ID] = *p
	return true, nil
}

func (f *fakeQuerier) findPayment(match func(p domain.Payment) bool) (*domain.Payment, error) {
	for _, p := range f.d().payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakeQuerier) GetPayment(_ context.Context, id int64) (*domain.Payment, error) {
	defer f.lock()()
	return f.findPayment(func(p domain.Payment) bool { return p.ID == id })
}

func (f *fakeQuerier) GetPaymentByOrder(_ context.Context, orderID int64) (*domain.Payment, error) {
	defer f.lock()()
	return f.findPayment(func(p domain.Payment) bool { return p.OrderID == orderID })
}

func (f *fakeQuerier) GetPendingPaymentBySession(_ context.Context, sessionID string) (*domain.Payment, error) {
	defer f.lock()()
	return f.findPayment(func(p domain.Payment) bool {
		return p.SessionID == sessionID && p.Status == domain.PaymentStatusPending
	})
}

func (f *fakeQuerier) GetLatestExpiredPayment(_ context.Context, userID int64) (*domain.Payment, error) {
	defer f.lock()()
	var best *domain.Payment
	for _, p := range f.d().payments {
		if p.UserID != userID || p.Status != domain.PaymentStatusExpired {
			continue
		}
		p := p
		if best == nil || p.ExpiredAt.After(*best.ExpiredAt) || (p.ExpiredAt.Equal(*best.ExpiredAt) && p.ID > best.ID) {
			best = &p
		}
	}
	if best == nil {
		return nil, repository.ErrPaymentNotFound
	}
	return best, nil
}

func (f *fakeQuerier) ListPayments(_ context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	defer f.lock()()
	var out []*domain.Payment
	for _, p := range f.d().payments {
		if filter.UserID == nil || p.UserID == *filter.UserID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeQuerier) TransitionPayment(_ context.Context, t repository.PaymentTransition) (*domain.Payment, error) {
	defer f.lock()()
	p, ok := f.d().payments[t.PaymentID]
	if !ok || p.Status != t.From || !t.From.CanTransitionTo(t.To) {
		return nil, repository.ErrStaleTransition
	}
	if t.SessionID != "" {
		if f.sessionTaken(t.SessionID, p.ID) {
			return nil, repository.ErrDuplicateSessionID
		}
		p.SessionID, p.SessionURL, p.SessionCreatedAt = t.SessionID, t.SessionURL, f.st.now()
	}
	p.Status = t.To
	p.ExpiredAt = nil
	if t.To == domain.PaymentStatusExpired {
		now := f.st.now()
		p.ExpiredAt = &now
	}
	p.UpdatedAt = f.st.now()
	f.d().payments[p.ID] = p

	o := f.d().orders[p.OrderID]
	o.Status = t.To.OrderStatus()
	f.d().orders[o.ID] = o
	return &p, nil
}

func (f *fakeQuerier) ExpireStalePayments(_ context.Context, createdBefore time.Time) ([]*domain.Payment, error) {
	defer f.lock()()
	var out []*domain.Payment
	for id, p := range f.d().payments {
		if p.Status != domain.PaymentStatusPending || !p.SessionCreatedAt.Before(createdBefore) {
			continue
		}
		now := f.st.now()
		p.Status, p.ExpiredAt, p.UpdatedAt = domain.PaymentStatusExpired, &now, now
		f.d().payments[id] = p
		if o := f.d().orders[p.OrderID]; o.Status == domain.OrderStatusPending {
			o.Status = domain.OrderStatusExpired
			f.d().orders[o.ID] = o
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuerier) profileByUser(userID int64) (domain.Profile, bool) {
	for _, p := range f.d().profiles {
		if p.UserID == userID {
			return p, true
		}
	}
	return domain.Profile{}, false
}

func (f *fakeQuerier) GetProfileByUser(_ context.Context, userID int64) (*domain.Profile, error) {
	defer f.lock()()
	p, ok := f.profileByUser(userID)
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	p.Addresses = nil
	for _, a := range f.d().addresses {
		if a.ProfileID == p.ID && !a.Inactive {
			a := a
			p.Addresses = append(p.Addresses, &a)
		}
	}
	sort.Slice(p.Addresses, func(i, j int) bool {
		if p.Addresses[i].Default != p.Addresses[j].Default {
			return p.Addresses[i].Default
		}
		return p.Addresses[i].ID < p.Addresses[j].ID
	})
	return &p, nil
}

func (f *fakeQuerier) CreateProfile(_ context.Context, p *domain.Profile) error {
	defer f.lock()()
	if _, ok := f.profileByUser(p.UserID); ok {
		return repository.ErrProfileExists
	}
	p.ID = f.d().id()
	p.CreatedAt = f.st.now()
	f.d().profiles[p.ID] = *p
	return nil
}

func (f *fakeQuerier) UpdateProfilePhone(_ context.Context, userID int64, phone string) error {
	defer f.lock()()
	p, ok := f.profileByUser(userID)
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.PhoneNumber = phone
	f.d().profiles[p.ID] = p
	return nil
}

func (f *fakeQuerier) GetAddress(_ context.Context, id int64) (*domain.Address, error) {
	defer f.lock()()
	a, ok := f.d().addresses[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	return &a, nil
}

func (f *fakeQuerier) CreateAddress(_ context.Context, a *domain.Address) error {
	defer f.lock()()
	a.ID = f.d().id()
	a.CreatedAt = f.st.now()
	f.d().addresses[a.ID] = *a
	return nil
}

func (f *fakeQuerier) ClearDefaultAddress(_ context.Context, profileID int64) error {
	defer f.lock()()
	for id, a := range f.d().addresses {
		if a.ProfileID == profileID && a.Default {
			a.Default = false
			f.d().addresses[id] = a
		}
	}
	return nil
}

func (f *fakeQuerier) AddressInUse(_ context.Context, id int64) (bool, error) {
	defer f.lock()()
	for _, o := range f.d().orders {
		if o.AddressID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeQuerier) DeactivateAddress(_ context.Context, id int64) error {
	defer f.lock()()
	a, ok := f.d().addresses[id]
	if !ok {
		return repository.ErrAddressNotFound
	}
	a.Inactive, a.Default = true, false
	f.d().addresses[id] = a
	return nil
}

func (f *fakeQuerier) DeleteAddress(_ context.Context, id int64) error {
	defer f.lock()()
	if _, ok := f.d().addresses[id]; !ok {
		return repository.ErrAddressNotFound
	}
	delete(f.d().addresses, id)
	return nil
}

func (f *fakeQuerier) InsertOutboxEvent(_ context.Context, eventType, aggregateID string, payload any) error {
	defer f.lock()()
	if err := f.fail("InsertOutboxEvent"); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.d().outbox = append(f.d().outbox, domain.OutboxEvent{
		ID:          f.d().id(),
		EventID:     uuid.NewString(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
		CreatedAt:   f.st.now(),
	})
	return nil
}

func (f *fakeQuerier) GetUnprocessedEvents(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	defer f.lock()()
	var out []*domain.OutboxEvent
	for _, e := range f.d().outbox {
		if !f.d().processed[e.ID] {
			e := e
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Attempts < out[j].Attempts })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeQuerier) MarkEventAsProcessed(_ context.Context, id int64) error {
	defer f.lock()()
	f.d().processed[id] = true
	return nil
}

func (f *fakeQuerier) MarkEventFailed(_ context.Context, id int64, _ string) error {
	defer f.lock()()
	for i := range f.d().outbox {
		if f.d().outbox[i].ID == id {
			f.d().outbox[i].Attempts++
		}
	}
	return nil
}

func (f *fakeQuerier) MarkEventDead(_ context.Context, id int64, _ string) error {
	defer f.lock()()
	for i := range f.d().outbox {
		if f.d().outbox[i].ID == id {
			f.d().outbox[i].Attempts++
		}
	}
	f.d().processed[id] = true
	return nil
}

// eventTypes lists outbox event types in insertion order.
func (s *fakeStore) eventTypes() []string {
	defer s.lock()()
	var out []string
	for _, e := range s.d().outbox {
		out = append(out, e.EventType)
	}
	return out
}
