package domain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Lottery describes the shape of a lottery game
type Lottery struct {
	TicketCost decimal.Decimal `json:"ticket_cost" yaml:"-"`
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	PoolSize   int             `json:"pool_size" yaml:"pool_size"`
	Pick       int             `json:"pick" yaml:"pick"`
}

// Validate checks the lottery definition
func (l Lottery) Validate() error {
	if l.ID == "" {
		return NewConfigurationError("lottery.id", "must not be empty")
	}
	if l.PoolSize <= 0 {
		return NewConfigurationError("lottery.pool_size", "must be positive, got %d", l.PoolSize)
	}
	if l.Pick <= 0 {
		return NewConfigurationError("lottery.pick", "must be positive, got %d", l.Pick)
	}
	if l.Pick > l.PoolSize {
		return NewConfigurationError("lottery.pick", "%d exceeds pool size %d", l.Pick, l.PoolSize)
	}
	return nil
}

// Well-known games. Ticket costs are the minimum single-bet prices.
var (
	LotteryMegaSena  = Lottery{ID: "megasena", Name: "Mega-Sena", PoolSize: 60, Pick: 6, TicketCost: decimal.RequireFromString("5.00")}
	LotteryLotofacil = Lottery{ID: "lotofacil", Name: "Lotofácil", PoolSize: 25, Pick: 15, TicketCost: decimal.RequireFromString("3.00")}
	LotteryQuina     = Lottery{ID: "quina", Name: "Quina", PoolSize: 80, Pick: 5, TicketCost: decimal.RequireFromString("2.50")}
	LotteryDuplaSena = Lottery{ID: "duplasena", Name: "Dupla Sena", PoolSize: 50, Pick: 6, TicketCost: decimal.RequireFromString("2.50")}
	LotteryTimemania = Lottery{ID: "timemania", Name: "Timemania", PoolSize: 80, Pick: 10, TicketCost: decimal.RequireFromString("3.50")}
)

// LotteryRegistry holds the lotteries known to the engine.
// It is constructed explicitly and passed to whoever needs it.
type LotteryRegistry struct {
	mu        sync.RWMutex
	lotteries map[string]Lottery
}

// NewLotteryRegistry creates a registry pre-populated with the built-in games
func NewLotteryRegistry() *LotteryRegistry {
	r := &LotteryRegistry{lotteries: make(map[string]Lottery)}
	for _, l := range []Lottery{LotteryMegaSena, LotteryLotofacil, LotteryQuina, LotteryDuplaSena, LotteryTimemania} {
		r.lotteries[l.ID] = l
	}
	return r
}

// Register adds or replaces a lottery definition
func (r *LotteryRegistry) Register(l Lottery) error {
	if err := l.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lotteries[l.ID] = l
	return nil
}

// Get returns the lottery with the given ID
func (r *LotteryRegistry) Get(id string) (Lottery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lotteries[id]
	if !ok {
		return Lottery{}, fmt.Errorf("%w: %s", ErrUnknownLottery, id)
	}
	return l, nil
}

// List returns all lotteries sorted by ID
func (r *LotteryRegistry) List() []Lottery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Lottery, 0, len(r.lotteries))
	for _, l := range r.lotteries {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
