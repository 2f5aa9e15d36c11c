package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory implementation of every store port. WithinTx
// snapshots the data and restores it when fn fails.
type memStore struct {
	mu        sync.Mutex
	rules     map[string]core.RecurringRule
	txs       map[string]core.Transaction
	favorites map[string]core.FavoriteCategory
	users     map[string]core.User

	// createTxErr, when set, fails CreateTransaction for matching input.
	createTxErr func(t core.Transaction) error
	// beforeAdvance runs inside AdvanceRule before the compare.
	beforeAdvance func(id string)
	findErr       error

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		rules:     map[string]core.RecurringRule{},
		txs:       map[string]core.Transaction{},
		favorites: map[string]core.FavoriteCategory{},
		users:     map[string]core.User{},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	rules := cloneMap(m.rules)
	txs := cloneMap(m.txs)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.rules, m.txs = rules, txs
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) addRule(r core.RecurringRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
}

func (m *memStore) rule(id string) core.RecurringRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rules[id]
}

func (m *memStore) transactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *memStore) hasTransaction(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.txs[id]
	return ok
}

// DueRuleStore

func (m *memStore) FindDueRules(_ context.Context, ownerID string, now time.Time) ([]core.RecurringRule, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurringRule
	for _, r := range m.rules {
		if r.OwnerID != ownerID || !r.IsActive || r.NextRun.After(now) {
			continue
		}
		if r.EndDate != nil && r.EndDate.Before(now) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) error {
	if m.createTxErr != nil {
		if err := m.createTxErr(t); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[t.ID]; ok {
		return core.ErrConflict
	}
	m.txs[t.ID] = t
	return nil
}

func (m *memStore) AdvanceRule(_ context.Context, id string, observed, next time.Time, isActive bool, updatedAt time.Time) (bool, error) {
	if m.beforeAdvance != nil {
		m.beforeAdvance(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok || !r.NextRun.Equal(observed) {
		return false, nil
	}
	r.NextRun = next
	r.IsActive = isActive
	r.UpdatedAt = updatedAt
	m.rules[id] = r
	return true, nil
}

// RuleStore

func (m *memStore) CreateRule(_ context.Context, r core.RecurringRule) error {
	m.addRule(r)
	return nil
}

func (m *memStore) GetRule(_ context.Context, id string) (core.RecurringRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return core.RecurringRule{}, core.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListRules(_ context.Context, ownerID string) ([]core.RecurringRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.RecurringRule{}
	for _, r := range m.rules {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateRule(_ context.Context, r core.RecurringRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[r.ID]; !ok {
		return core.ErrNotFound
	}
	m.rules[r.ID] = r
	return nil
}

func (m *memStore) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

func (m *memStore) OwnersWithDueRules(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range m.rules {
		if r.IsActive && !r.NextRun.After(now) && !seen[r.OwnerID] {
			seen[r.OwnerID] = true
			out = append(out, r.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// TransactionStore

func (m *memStore) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTransactions(_ context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range m.txs {
		if t.OwnerID != ownerID {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.From != nil && (t.Date.Before(*f.From) || t.Date.After(*f.To)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[t.ID] = t
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *memStore) TopCategories(ctx context.Context, ownerID string, kind core.Kind, limit int) ([]core.CategorySuggestion, error) {
	usage, _ := m.CategoryUsage(ctx, ownerID, kind)
	out := []core.CategorySuggestion{}
	for _, u := range usage {
		if len(out) == limit {
			break
		}
		out = append(out, core.CategorySuggestion{Category: u.Category, Count: u.Count})
	}
	return out, nil
}

func (m *memStore) CategoryUsage(_ context.Context, ownerID string, kind core.Kind) ([]core.CategoryUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[2]string]int{}
	for _, t := range m.txs {
		if t.OwnerID != ownerID || (kind != "" && t.Kind != kind) {
			continue
		}
		counts[[2]string{t.Category, string(t.Kind)}]++
	}
	out := []core.CategoryUsage{}
	for k, n := range counts {
		out = append(out, core.CategoryUsage{Category: k[0], Kind: core.Kind(k[1]), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Category < out[j].Category
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// FavoriteStore

func (m *memStore) ListFavorites(_ context.Context, ownerID string, kind core.Kind) ([]core.FavoriteCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.FavoriteCategory{}
	for _, f := range m.favorites {
		if f.OwnerID == ownerID && (kind == "" || f.Kind == kind) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (m *memStore) CountFavorites(ctx context.Context, ownerID string, kind core.Kind) (int, error) {
	favs, _ := m.ListFavorites(ctx, ownerID, kind)
	return len(favs), nil
}

func (m *memStore) FindFavorite(_ context.Context, ownerID, category string, kind core.Kind) (core.FavoriteCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.favorites {
		if f.OwnerID == ownerID && f.Category == category && f.Kind == kind {
			return f, nil
		}
	}
	return core.FavoriteCategory{}, core.ErrNotFound
}

func (m *memStore) MaxFavoriteOrder(ctx context.Context, ownerID string, kind core.Kind) (int, bool, error) {
	favs, _ := m.ListFavorites(ctx, ownerID, kind)
	if len(favs) == 0 {
		return 0, false, nil
	}
	return favs[len(favs)-1].Order, true, nil
}

func (m *memStore) CreateFavorite(_ context.Context, f core.FavoriteCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[f.ID] = f
	return nil
}

func (m *memStore) GetFavorite(_ context.Context, id string) (core.FavoriteCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.favorites[id]
	if !ok {
		return core.FavoriteCategory{}, core.ErrNotFound
	}
	return f, nil
}

func (m *memStore) UpdateFavorite(_ context.Context, f core.FavoriteCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[f.ID] = f
	return nil
}

func (m *memStore) DeleteFavorite(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, id)
	return nil
}

// UserStore

func (m *memStore) CreateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *memStore) UpdateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	for k, t := range m.txs {
		if t.OwnerID == id {
			delete(m.txs, k)
		}
	}
	for k, r := range m.rules {
		if r.OwnerID == id {
			delete(m.rules, k)
		}
	}
	for k, f := range m.favorites {
		if f.OwnerID == id {
			delete(m.favorites, k)
		}
	}
	return nil
}

// StatsStore

func (m *memStore) SumByKind(_ context.Context, ownerID string, kind core.Kind, from time.Time) (KindTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := KindTotal{Total: decimal.Zero}
	for _, t := range m.txs {
		if t.OwnerID == ownerID && t.Kind == kind && !t.Date.Before(from) {
			total.Total = total.Total.Add(t.Amount)
			total.Count++
		}
	}
	return total, nil
}

func (m *memStore) SumByCategory(_ context.Context, ownerID string, kind core.Kind, from time.Time) ([]core.CategoryAmount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCat := map[string]*core.CategoryAmount{}
	var order []string
	for _, t := range m.txs {
		if t.OwnerID != ownerID || t.Kind != kind || t.Date.Before(from) {
			continue
		}
		c, ok := byCat[t.Category]
		if !ok {
			c = &core.CategoryAmount{Category: t.Category, Amount: decimal.Zero}
			byCat[t.Category] = c
			order = append(order, t.Category)
		}
		c.Amount = c.Amount.Add(t.Amount)
		c.Count++
	}
	sort.Strings(order)
	var out []core.CategoryAmount
	for _, k := range order {
		out = append(out, *byCat[k])
	}
	return out, nil
}

func (m *memStore) ListTransactionsSince(_ context.Context, ownerID string, from time.Time) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.txs {
		if t.OwnerID == ownerID && !t.Date.Before(from) {
			out = append(out, t)
		}
	}
	return out, nil
}

// fakePublisher records published transactions.
type fakePublisher struct {
	mu        sync.Mutex
	published []core.Transaction
	err       error
	// committed, when set, reports whether the transaction is already
	// visible in the store at publish time.
	committed func(id string) bool
	early     []string
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committed != nil && !p.committed(t.ID) {
		p.early = append(p.early, t.ID)
	}
	p.published = append(p.published, t)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// fakeTokens issues "token-<id>".
type fakeTokens struct{ err error }

func (f fakeTokens) Issue(userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

// fakeGoogle accepts tokens present in its map.
type fakeGoogle map[string]GoogleIdentity

func (f fakeGoogle) Verify(_ context.Context, idToken string) (GoogleIdentity, error) {
	id, ok := f[idToken]
	if !ok {
		return GoogleIdentity{}, errors.New("token rejected")
	}
	return id, nil
}

// sequentialIDs returns "prefix-1", "prefix-2", ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
