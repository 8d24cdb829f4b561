package ledger_test

import (
	"context"
	"fmt"
	"time"

	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/models"
)

// fakeStore is an in-memory ledger.Store. Tx snapshots the whole state and
// restores it when fn fails, mirroring the all-or-nothing contract of the
// real repository. failOn lets tests inject a failure into a named method to
// exercise rollback paths.
type fakeStore struct {
	state  *fakeState
	failOn map[string]error
}

type fakeState struct {
	users     map[uint]models.User
	tasks     map[uint]models.Task
	products  map[uint]models.Product
	exchanges map[uint]models.Exchange
	txs       []models.StarTransaction
	nextID    uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &fakeState{
			users:     map[uint]models.User{},
			tasks:     map[uint]models.Task{},
			products:  map[uint]models.Product{},
			exchanges: map[uint]models.Exchange{},
		},
		failOn: map[string]error{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		users:     make(map[uint]models.User, len(s.users)),
		tasks:     make(map[uint]models.Task, len(s.tasks)),
		products:  make(map[uint]models.Product, len(s.products)),
		exchanges: make(map[uint]models.Exchange, len(s.exchanges)),
		txs:       append([]models.StarTransaction(nil), s.txs...),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.exchanges {
		c.exchanges[k] = v
	}
	return c
}

func (s *fakeStore) fail(method string) error { return s.failOn[method] }

func (s *fakeStore) id() uint {
	s.state.nextID++
	return s.state.nextID
}

func (s *fakeStore) Tx(_ context.Context, fn func(ledger.Store) error) error {
	snapshot := s.state.clone()
	if err := fn(s); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

func (s *fakeStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := s.state.users[id]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	return &u, nil
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.state.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ledger.ErrUserNotFound
}

func (s *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	if err := s.fail("CreateUser"); err != nil {
		return err
	}
	u.ID = s.id()
	s.state.users[u.ID] = *u
	return nil
}

func (s *fakeStore) ListChildren(_ context.Context, parentID uint) ([]models.User, error) {
	var out []models.User
	for _, u := range s.state.users {
		if u.ParentID != nil && *u.ParentID == parentID && u.Role == models.RoleChild {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeStore) AdjustBalance(_ context.Context, userID uint, delta int) (*models.User, error) {
	if err := s.fail("AdjustBalance"); err != nil {
		return nil, err
	}
	u, ok := s.state.users[userID]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	if delta >= 0 {
		u.StarBalance += delta
		u.TotalEarned += delta
	} else {
		if u.StarBalance < -delta {
			return nil, fmt.Errorf("%w: user %d cannot cover %d stars", ledger.ErrInsufficientBalance, userID, -delta)
		}
		u.StarBalance += delta
		u.TotalSpent += -delta
	}
	s.state.users[userID] = u
	return &u, nil
}

func (s *fakeStore) CreateTask(_ context.Context, t *models.Task) error {
	if err := s.fail("CreateTask"); err != nil {
		return err
	}
	t.ID = s.id()
	s.state.tasks[t.ID] = *t
	return nil
}

func (s *fakeStore) GetTask(_ context.Context, id uint) (*models.Task, error) {
	t, ok := s.state.tasks[id]
	if !ok {
		return nil, ledger.ErrTaskNotFound
	}
	return &t, nil
}

func (s *fakeStore) ListTasks(_ context.Context, f ledger.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, t := range s.state.tasks {
		if matchTask(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchTask(t models.Task, f ledger.TaskFilter) bool {
	if f.ParentID != nil && t.ParentID != *f.ParentID {
		return false
	}
	if f.ChildID != nil && (t.ChildID == nil || *t.ChildID != *f.ChildID) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	return true
}

func (s *fakeStore) TransitionTask(_ context.Context, id uint, from []models.TaskStatus, to models.TaskStatus) (bool, error) {
	if err := s.fail("TransitionTask"); err != nil {
		return false, err
	}
	t, ok := s.state.tasks[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if t.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	t.Status = to
	now := time.Now()
	switch to {
	case models.TaskCompleted:
		t.CompletedAt = &now
	case models.TaskApproved:
		t.ApprovedAt = &now
	}
	s.state.tasks[id] = t
	return true, nil
}

func (s *fakeStore) DeleteTask(_ context.Context, id uint) error {
	delete(s.state.tasks, id)
	return nil
}

func (s *fakeStore) CountTasks(_ context.Context, f ledger.TaskFilter) (int64, error) {
	var n int64
	for _, t := range s.state.tasks {
		if matchTask(t, f) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CreateProduct(_ context.Context, p *models.Product) error {
	p.ID = s.id()
	s.state.products[p.ID] = *p
	return nil
}

func (s *fakeStore) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	p, ok := s.state.products[id]
	if !ok {
		return nil, ledger.ErrProductNotFound
	}
	return &p, nil
}

func (s *fakeStore) ListProducts(_ context.Context, f ledger.ProductFilter) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.state.products {
		if f.ParentID != nil && p.ParentID != *f.ParentID {
			continue
		}
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) UpdateProduct(_ context.Context, p *models.Product) error {
	if _, ok := s.state.products[p.ID]; !ok {
		return ledger.ErrProductNotFound
	}
	s.state.products[p.ID] = *p
	return nil
}

func (s *fakeStore) AdjustStock(_ context.Context, productID uint, delta int) error {
	if err := s.fail("AdjustStock"); err != nil {
		return err
	}
	p, ok := s.state.products[productID]
	if !ok {
		return ledger.ErrProductNotFound
	}
	if p.StockQuantity+delta < 0 {
		return fmt.Errorf("%w: product %d cannot cover %d units", ledger.ErrInsufficientStock, productID, -delta)
	}
	p.StockQuantity += delta
	s.state.products[productID] = p
	return nil
}

func (s *fakeStore) DeleteProduct(_ context.Context, id uint) error {
	delete(s.state.products, id)
	return nil
}

func (s *fakeStore) CreateExchange(_ context.Context, e *models.Exchange) error {
	if err := s.fail("CreateExchange"); err != nil {
		return err
	}
	e.ID = s.id()
	s.state.exchanges[e.ID] = *e
	return nil
}

func (s *fakeStore) GetExchange(_ context.Context, id uint) (*models.Exchange, error) {
	e, ok := s.state.exchanges[id]
	if !ok {
		return nil, ledger.ErrExchangeNotFound
	}
	return &e, nil
}

func (s *fakeStore) ListExchanges(_ context.Context, childID *uint) ([]models.Exchange, error) {
	var out []models.Exchange
	for _, e := range s.state.exchanges {
		if childID != nil && e.ChildID != *childID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) TransitionExchange(_ context.Context, id uint, from, to models.ExchangeStatus) (bool, error) {
	e, ok := s.state.exchanges[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	s.state.exchanges[id] = e
	return true, nil
}

func (s *fakeStore) CountExchanges(_ context.Context, childID uint) (int64, error) {
	var n int64
	for _, e := range s.state.exchanges {
		if e.ChildID == childID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) AppendTransaction(_ context.Context, t *models.StarTransaction) error {
	if err := s.fail("AppendTransaction"); err != nil {
		return err
	}
	t.ID = s.id()
	t.CreatedAt = time.Now()
	s.state.txs = append(s.state.txs, *t)
	return nil
}

func (s *fakeStore) ListTransactions(_ context.Context, childID *uint, limit int) ([]models.StarTransaction, error) {
	var out []models.StarTransaction
	for i := len(s.state.txs) - 1; i >= 0; i-- {
		t := s.state.txs[i]
		if childID != nil && t.ChildID != *childID {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) SumTransactions(_ context.Context, childID uint) (int, error) {
	sum := 0
	for _, t := range s.state.txs {
		if t.ChildID == childID {
			sum += t.Amount
		}
	}
	return sum, nil
}
