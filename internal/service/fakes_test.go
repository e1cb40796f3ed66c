package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/payment"
	"github.com/iliyamo/portrait-booth/internal/pricing"
	"github.com/iliyamo/portrait-booth/internal/queue"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/repository/memory"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uint64]model.User
	revoked []uint64
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) ListStaff(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.byID {
		if u.Role.IsStaff() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ChangeRole(_ context.Context, id uint64, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.Role = role
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) RevokeAllForUser(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return nil
}

// fakeGateway knows which order each session was opened for through owner;
// sessions missing from owner belong to any order.
type fakeGateway struct {
	links  int
	paid   map[string]bool
	owner  map[string]string
	failed bool
}

func (g *fakeGateway) PaymentLink(_ context.Context, o model.Order) (string, error) {
	if g.failed {
		return "", errors.New("gateway down")
	}
	g.links++
	return "https://pay.example/" + *o.OrderRef, nil
}

func (g *fakeGateway) SessionPaid(_ context.Context, sessionID, orderRef string) (bool, error) {
	if g.failed {
		return false, errors.New("gateway down")
	}
	if ref, ok := g.owner[sessionID]; ok && ref != orderRef {
		return false, payment.ErrSessionMismatch
	}
	return g.paid[sessionID], nil
}

type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string]bool
	removed  []string
	failSign bool
}

func (f *fakeStorage) PresignPut(_ context.Context, key string) (string, error) {
	if f.failSign {
		return "", errors.New("signer down")
	}
	return "https://store.example/put/" + key, nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key, _ string) (string, error) {
	if f.failSign {
		return "", errors.New("signer down")
	}
	return "https://store.example/get/" + key, nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

// put simulates the client uploading to the signed URL.
func (f *fakeStorage) put(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = true
}

type fakeReady struct {
	events []queue.OrderReadyEvent
	err    error
}

func (f *fakeReady) PublishOrderReady(_ context.Context, ev queue.OrderReadyEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

var (
	customer   = model.User{ID: 1, Name: "Ana", Email: "ana@example.com", Role: model.RoleCustomer}
	cashier    = model.User{ID: 2, Name: "Carl", Email: "carl@example.com", Role: model.RoleCashier}
	operator   = model.User{ID: 3, Name: "Olga", Email: "olga@example.com", Role: model.RoleOperator}
	processorA = model.User{ID: 4, Name: "Pia", Email: "pia@example.com", Role: model.RoleProcessor}
	processorB = model.User{ID: 5, Name: "Per", Email: "per@example.com", Role: model.RoleProcessor}
	manager    = model.User{ID: 6, Name: "Mia", Email: "mia@example.com", Role: model.RoleManager}
	stranger   = model.User{ID: 7, Name: "Sam", Email: "sam@example.com", Role: model.RoleCustomer}
)

type fixture struct {
	store  *memory.Store
	users  *fakeUsers
	gw     *fakeGateway
	files  *fakeStorage
	ready  *fakeReady
	orders *OrderService
	items  *ItemService
	admin  *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &fakeUsers{byID: map[uint64]model.User{}}
	for _, u := range []model.User{customer, cashier, operator, processorA, processorB, manager, stranger} {
		users.byID[u.ID] = u
	}
	f := &fixture{
		store: memory.NewStore(),
		users: users,
		gw:    &fakeGateway{paid: map[string]bool{}, owner: map[string]string{}},
		files: &fakeStorage{objects: map[string]bool{}},
		ready: &fakeReady{},
	}
	f.orders = NewOrderService(f.store, f.store, users, f.store, pricing.Pricing{BasePrice: 5, UnitPrice: 5})
	f.orders.Gateway = f.gw
	f.orders.Storage = f.files
	f.orders.Ready = f.ready
	f.items = NewItemService(f.store, f.store, f.files)
	f.admin = NewAdminService(f.store, nil, users, users)
	return f
}

func (f *fixture) status(t *testing.T, id uint64) model.OrderStatus {
	t.Helper()
	o, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get order %d: %v", id, err)
	}
	return o.Status
}

// upload runs the request/PUT/confirm cycle for one photo.
func (f *fixture) upload(t *testing.T, actor model.User, orderID uint64, mode model.ItemMode, name string) (model.OrderItem, model.Order, error) {
	t.Helper()
	ctx := context.Background()
	tk, err := f.items.RequestUpload(ctx, actor, orderID, mode, name)
	if err != nil {
		return model.OrderItem{}, model.Order{}, err
	}
	if !strings.Contains(tk.PutURL, tk.ObjectKey) {
		t.Fatalf("put url %q does not sign key %q", tk.PutURL, tk.ObjectKey)
	}
	f.files.put(tk.ObjectKey)
	return f.items.ConfirmUpload(ctx, actor, orderID, mode, tk.ObjectKey, name)
}
