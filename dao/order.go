package dao

import (
	"errors"
	"sync"
	"time"

	"Paygate/models"

	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	ErrOrderExists   = errors.New("订单号已存在")
	ErrOrderNotFound = errors.New("订单不存在")
	ErrViewBudget    = errors.New("查看次数已用完")
)

// orderEntry 每个订单独立持锁，不同订单号之间互不竞争
type orderEntry struct {
	mu    sync.Mutex
	order models.Order
}

// OrderStore 进程内订单表
// 对外只暴露原子复合操作，读-改-写不允许拆成两次调用
type OrderStore struct {
	m cmap.ConcurrentMap[string, *orderEntry]
}

func NewOrderStore() *OrderStore {
	return &OrderStore{m: cmap.New[*orderEntry]()}
}

func (s *OrderStore) Create(order models.Order) error {
	if !s.m.SetIfAbsent(order.OutTradeNo, &orderEntry{order: order}) {
		return ErrOrderExists
	}
	return nil
}

func (s *OrderStore) Read(outTradeNo string) (models.Order, error) {
	entry, ok := s.m.Get(outTradeNo)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.order, nil
}

func (s *OrderStore) Count() int {
	return s.m.Count()
}

// TransitionExtra 状态迁移时一并写入的网关字段
type TransitionExtra struct {
	TransactionID string
	NotifySerial  string
}

// MintFunc 生成凭证值与过期时间，仅在 success 迁移且无凭证时被调用
type MintFunc func() (token string, expiresAt time.Time)

// ApplyTransition 单步原子迁移：
// 已处于终态则幂等返回当前快照；首次进入 success 时在同一临界区内铸造凭证，
// 这是防止重复投递/并发投递重复铸造的唯一机制
func (s *OrderStore) ApplyTransition(outTradeNo string, next models.OrderStatus, extra TransitionExtra, mint MintFunc) (models.Order, error) {
	entry, ok := s.m.Get(outTradeNo)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	o := &entry.order
	if o.Status.Terminal() || !next.Terminal() {
		return *o, nil
	}

	o.Status = next
	if o.TransactionID == "" {
		o.TransactionID = extra.TransactionID
	}
	if o.NotifySerial == "" {
		o.NotifySerial = extra.NotifySerial
	}

	if next == models.StatusSuccess {
		now := time.Now()
		o.PaidAt = &now
		if o.Token == "" && mint != nil {
			o.Token, o.TokenExpiresAt = mint()
			o.TokenViews = 0
		}
	}
	return *o, nil
}

// IncrementViewIfUnderBudget 原子的额度检查 + 自增，返回剩余次数
// 并发兑换下最多 budget 次成功，计数永不越界
func (s *OrderStore) IncrementViewIfUnderBudget(outTradeNo string, budget int) (int, error) {
	entry, ok := s.m.Get(outTradeNo)
	if !ok {
		return 0, ErrOrderNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	o := &entry.order
	if o.TokenViews >= budget {
		return 0, ErrViewBudget
	}
	o.TokenViews++
	return budget - o.TokenViews, nil
}
