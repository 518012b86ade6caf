package gateway

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/samber/lo"
)

var ErrUnknownGateway = errors.New("unknown payment gateway")

// Registry maps gateway names to providers. It is built once at startup and
// never modified.
type Registry struct {
	providers map[domain.GatewayName]PaymentProvider
}

func NewRegistry(providers ...PaymentProvider) (*Registry, error) {
	m := make(map[domain.GatewayName]PaymentProvider, len(providers))
	for _, p := range providers {
		if _, exists := m[p.Name()]; exists {
			return nil, fmt.Errorf("provider %s registered twice", p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}, nil
}

func (r *Registry) ByName(name domain.GatewayName) (PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return p, nil
}

func (r *Registry) Names() []domain.GatewayName {
	names := lo.Keys(r.providers)
	slices.Sort(names)
	return names
}
