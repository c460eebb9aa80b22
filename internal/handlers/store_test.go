package handlers

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
)

// memStore backs the account, ledger and ad stores with maps so handler
// tests can run whole request flows.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	ledgers  map[int64]*models.Ledger
	events   []*models.CoinEvent
	ads      map[int64]*models.Ad
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]*models.Account),
		ledgers:  make(map[int64]*models.Ledger),
		ads:      make(map[int64]*models.Ad),
		nextID:   1,
	}
}

func (m *memStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memStore) CreateWithLedger(_ context.Context, account *models.Account, coins int64, money decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return repository.ErrDuplicate
		}
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	account.ID = m.id()
	stored := *account
	m.accounts[account.ID] = &stored
	m.ledgers[account.ID] = &models.Ledger{ID: account.ID, AccountID: account.ID, Coins: coins, Money: money}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Email == email })
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Username == username })
}

func (m *memStore) find(match func(*models.Account) bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memStore) List(_ context.Context) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetByAccountID(_ context.Context, accountID int64) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[accountID]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Credit(_ context.Context, accountID, coins int64) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l.Coins += coins
	m.appendEvent(l, models.CoinEventEarn, coins, decimal.Zero)
	copied := *l
	return &copied, nil
}

func (m *memStore) Exchange(_ context.Context, accountID, coins int64, money decimal.Decimal) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[accountID]
	if !ok || l.Coins < coins {
		return nil, repository.ErrConditionFailed
	}
	l.Coins -= coins
	l.Money = l.Money.Add(money)
	m.appendEvent(l, models.CoinEventRedeem, -coins, money)
	copied := *l
	return &copied, nil
}

func (m *memStore) appendEvent(l *models.Ledger, kind models.CoinEventKind, coins int64, money decimal.Decimal) {
	m.events = append(m.events, &models.CoinEvent{
		ID:         int64(len(m.events) + 1),
		AccountID:  l.AccountID,
		Kind:       kind,
		CoinsDelta: coins,
		MoneyDelta: money,
		CoinsAfter: l.Coins,
		MoneyAfter: l.Money,
		CreatedAt:  time.Now(),
	})
}

func (m *memStore) Events(_ context.Context, accountID int64, limit int) ([]*models.CoinEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CoinEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].AccountID == accountID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

type memAds struct {
	*memStore
}

func (m memAds) Create(_ context.Context, ad *models.Ad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad.ID = m.id()
	ad.CreatedAt = time.Now()
	stored := *ad
	m.ads[ad.ID] = &stored
	return nil
}

func (m memAds) GetByID(_ context.Context, id int64) (*models.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ad, ok := m.ads[id]; ok {
		copied := *ad
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m memAds) ListActive(ctx context.Context, limit int) ([]*models.Ad, error) {
	all, _ := m.ListAll(ctx)
	var out []*models.Ad
	for _, ad := range all {
		if ad.IsActive && len(out) < limit {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (m memAds) ListAll(_ context.Context) ([]*models.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Ad, 0, len(m.ads))
	for _, ad := range m.ads {
		copied := *ad
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m memAds) Toggle(_ context.Context, id int64) (*models.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, ok := m.ads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ad.IsActive = !ad.IsActive
	copied := *ad
	return &copied, nil
}

func (m memAds) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.ads, id)
	return nil
}

var codePattern = regexp.MustCompile(`verification code is: (\d{6})`)

// outbox records sent mail and can be told to fail.
type outbox struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (o *outbox) Send(_ context.Context, to, _, _, textBody string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, to+"\n"+textBody)
	return nil
}

func (o *outbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return ""
	}
	m := codePattern.FindStringSubmatch(o.sent[len(o.sent)-1])
	if m == nil {
		return ""
	}
	return m[1]
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
