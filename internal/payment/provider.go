// Package payment содержит клиентов внешних платёжных шлюзов.
package payment

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiateRequest параметры создания платежа у провайдера.
type InitiateRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	PayerID       uuid.UUID
	PayerEmail    string
	Description   string
}

// Provider внешний платёжный шлюз.
type Provider interface {
	Name() string
	// Initiate создаёт платёж и возвращает ссылку на страницу оплаты.
	Initiate(ctx context.Context, req InitiateRequest) (string, error)
	// VerifySignature проверяет подпись входящего обратного вызова.
	VerifySignature(body []byte, signature string) bool
}

// Registry хранит подключённые шлюзы по имени.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Get возвращает шлюз по имени без учёта регистра.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names возвращает имена шлюзов в алфавитном порядке.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
