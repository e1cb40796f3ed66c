// Package memory is an in-process implementation of the order and item
// stores.  Each method takes the store mutex for its whole duration, which
// gives the same single-statement atomicity the MySQL repositories get from
// guarded UPDATEs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	orders   map[uint64]*model.Order
	items    map[uint64]*model.OrderItem
	settings map[string]string
	nextOID  uint64
	nextIID  uint64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		orders:   make(map[uint64]*model.Order),
		items:    make(map[uint64]*model.OrderItem),
		settings: make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func ptr[T any](v T) *T { return &v }

// update applies fn to the order when guard accepts it.
func (s *Store) update(id uint64, guard func(*model.Order) bool, fn func(*model.Order)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || !guard(o) {
		return false
	}
	fn(o)
	return true
}

func (s *Store) Create(_ context.Context, customerID, noOfPhotos, total uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOID++
	s.orders[s.nextOID] = &model.Order{
		ID:         s.nextOID,
		CustomerID: customerID,
		NoOfPhotos: noOfPhotos,
		OrderTotal: total,
		Status:     model.StatusCreated,
		CreatedAt:  s.now(),
	}
	return s.nextOID, nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	return *o, nil
}

func (s *Store) GetByRef(_ context.Context, orderRef string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderRef != nil && *o.OrderRef == orderRef {
			return *o, nil
		}
	}
	return model.Order{}, repository.ErrOrderNotFound
}

func (s *Store) ListByCustomer(_ context.Context, customerID uint64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) DeleteCreated(_ context.Context, id, customerID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.CustomerID != customerID || o.Status != model.StatusCreated {
		return false, nil
	}
	delete(s.orders, id)
	for iid, it := range s.items {
		if it.OrderID == id {
			delete(s.items, iid)
		}
	}
	return true, nil
}

func (s *Store) StartPayment(_ context.Context, id, customerID uint64, mode model.PaymentMode, orderRef *string) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool { return o.CustomerID == customerID && o.Status == model.StatusCreated },
		func(o *model.Order) {
			o.Status = model.StatusPaymentPending
			o.ModeOfPayment = mode
			o.OrderRef = orderRef
		}), nil
}

func (s *Store) CollectCash(_ context.Context, id, cashierID uint64) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool {
			return o.Status == model.StatusPaymentPending && o.ModeOfPayment == model.PaymentCash
		},
		func(o *model.Order) {
			o.Status = model.StatusPaid
			o.CashierID = ptr(cashierID)
			o.PaymentAt = ptr(s.now())
		}), nil
}

func (s *Store) byRef(orderRef string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.OrderRef != nil && *o.OrderRef == orderRef {
			return id
		}
	}
	return 0
}

func pendingStripe(o *model.Order) bool {
	return o.Status == model.StatusPaymentPending && o.ModeOfPayment == model.PaymentStripe
}

func pendingStripeRef(orderRef string) func(*model.Order) bool {
	return func(o *model.Order) bool {
		return pendingStripe(o) && o.OrderRef != nil && *o.OrderRef == orderRef
	}
}

func (s *Store) ConfirmStripe(_ context.Context, orderRef, paymentRef string) (bool, error) {
	return s.update(s.byRef(orderRef), pendingStripeRef(orderRef), func(o *model.Order) {
		o.Status = model.StatusPaid
		o.PaymentRef = ptr(paymentRef)
		o.PaymentAt = ptr(s.now())
	}), nil
}

func (s *Store) MarkStripeError(_ context.Context, orderRef, paymentRef string) (bool, error) {
	return s.update(s.byRef(orderRef), pendingStripeRef(orderRef), func(o *model.Order) {
		o.Status = model.StatusPaymentError
		o.PaymentRef = ptr(paymentRef)
	}), nil
}

func (s *Store) OverridePaid(_ context.Context, id uint64, note string) (bool, error) {
	return s.update(id, pendingStripe, func(o *model.Order) {
		o.Status = model.StatusPaid
		o.ModeOfPayment = model.PaymentOverride
		o.PaymentRef = ptr(note)
		o.PaymentAt = ptr(s.now())
	}), nil
}

func (s *Store) ClearPending(_ context.Context, id uint64, from model.OrderStatus) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool { return o.Status == from },
		func(o *model.Order) {
			o.Status = model.StatusCreated
			o.ModeOfPayment = model.PaymentNotSelected
			o.OrderRef = nil
			o.PaymentRef = nil
		}), nil
}

func (s *Store) StartUpload(_ context.Context, id, operatorID uint64, from model.OrderStatus) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool { return o.Status == from },
		func(o *model.Order) {
			o.Status = model.StatusUploading
			o.OperatorID = ptr(operatorID)
		}), nil
}

func (s *Store) FindActiveForProcessor(_ context.Context, processorID uint64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *model.Order
	for _, o := range s.orders {
		if !o.ClaimedBy(processorID) {
			continue
		}
		if o.Status != model.StatusInProcess && o.Status != model.StatusProcessed {
			continue
		}
		if found == nil || o.ID < found.ID {
			found = o
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (s *Store) ClaimOldestUploaded(_ context.Context, processorID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *model.Order
	for _, o := range s.orders {
		if o.Status != model.StatusUploaded {
			continue
		}
		if oldest == nil || o.CreatedAt.Before(oldest.CreatedAt) ||
			(o.CreatedAt.Equal(oldest.CreatedAt) && o.ID < oldest.ID) {
			oldest = o
		}
	}
	if oldest == nil {
		return false, nil
	}
	oldest.Status = model.StatusInProcess
	oldest.ProcessorID = ptr(processorID)
	return true, nil
}

func (s *Store) Skip(_ context.Context, id, processorID uint64) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool { return o.ClaimedBy(processorID) && o.Status == model.StatusInProcess },
		func(o *model.Order) {
			o.Status = model.StatusUploading
			o.ProcessorID = nil
		}), nil
}

func (s *Store) MarkReady(_ context.Context, id, processorID uint64) (bool, error) {
	return s.update(id,
		func(o *model.Order) bool { return o.ClaimedBy(processorID) && o.Status == model.StatusProcessed },
		func(o *model.Order) { o.Status = model.StatusReadyForDelivery }), nil
}

func trackStatuses(mode model.ItemMode) (filling, full model.OrderStatus) {
	if mode == model.ModeProcessed {
		return model.StatusInProcess, model.StatusProcessed
	}
	return model.StatusUploading, model.StatusUploaded
}

// countLocked expects s.mu to be held.
func (s *Store) countLocked(orderID uint64, mode model.ItemMode) uint64 {
	var n uint64
	for _, it := range s.items {
		if it.OrderID == orderID && it.Mode == mode {
			n++
		}
	}
	return n
}

func (s *Store) AdvanceIfComplete(_ context.Context, id uint64, mode model.ItemMode) (bool, error) {
	filling, full := trackStatuses(mode)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != filling || o.NoOfPhotos > s.countLocked(id, mode) {
		return false, nil
	}
	o.Status = full
	return true, nil
}

func (s *Store) RevertIfIncomplete(_ context.Context, id uint64, mode model.ItemMode) (bool, error) {
	filling, full := trackStatuses(mode)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != full || o.NoOfPhotos <= s.countLocked(id, mode) {
		return false, nil
	}
	o.Status = filling
	return true, nil
}

// Items

func (s *Store) CountByMode(_ context.Context, orderID uint64, mode model.ItemMode) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(orderID, mode), nil
}

func (s *Store) InsertIfRoom(_ context.Context, it model.OrderItem) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[it.OrderID]
	for _, existing := range s.items {
		if existing.ObjectKey == it.ObjectKey {
			return 0, false, repository.ErrItemExists
		}
	}
	if !ok || o.NoOfPhotos <= s.countLocked(it.OrderID, it.Mode) {
		return 0, false, nil
	}
	s.nextIID++
	it.ID = s.nextIID
	it.Uploaded = true
	it.UploadedAt = ptr(s.now())
	it.CreatedAt = s.now()
	s.items[it.ID] = &it
	return it.ID, true, nil
}

func (s *Store) GetItem(_ context.Context, id uint64) (model.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.OrderItem{}, repository.ErrItemNotFound
	}
	return *it, nil
}

func (s *Store) ListByOrder(_ context.Context, orderID uint64, mode model.ItemMode) ([]model.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.OrderItem{}
	for _, it := range s.items {
		if it.OrderID == orderID && it.Mode == mode {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteItem(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

// Settings

func (s *Store) Get(_ context.Context, name, def string) (model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[name]
	if !ok {
		v = def
	}
	return model.Setting{Name: name, Value: v}, nil
}

func (s *Store) Put(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[name] = value
	return nil
}
