package gateway

import "github.com/DanielPopoola/pay-connector/internal/domain"

type MappingKind int

const (
	MappingUnknown MappingKind = iota
	MappingIgnored
	MappingCharge
	MappingRefund
)

type MappedStatus struct {
	Kind         MappingKind
	ChargeStatus domain.ChargeStatus
	RefundStatus domain.RefundStatus
}

// StatusMapper translates a gateway's native status codes. Build it once at
// provider construction; it is read-only afterwards.
type StatusMapper struct {
	charges map[string]domain.ChargeStatus
	refunds map[string]domain.RefundStatus
	ignored map[string]struct{}
}

func NewStatusMapper() *StatusMapper {
	return &StatusMapper{
		charges: make(map[string]domain.ChargeStatus),
		refunds: make(map[string]domain.RefundStatus),
		ignored: make(map[string]struct{}),
	}
}

func (m *StatusMapper) MapCharge(code string, status domain.ChargeStatus) *StatusMapper {
	m.charges[code] = status
	return m
}

func (m *StatusMapper) MapRefund(code string, status domain.RefundStatus) *StatusMapper {
	m.refunds[code] = status
	return m
}

func (m *StatusMapper) Ignore(codes ...string) *StatusMapper {
	for _, c := range codes {
		m.ignored[c] = struct{}{}
	}
	return m
}

func (m *StatusMapper) Map(code string) MappedStatus {
	if s, ok := m.charges[code]; ok {
		return MappedStatus{Kind: MappingCharge, ChargeStatus: s}
	}
	if s, ok := m.refunds[code]; ok {
		return MappedStatus{Kind: MappingRefund, RefundStatus: s}
	}
	if _, ok := m.ignored[code]; ok {
		return MappedStatus{Kind: MappingIgnored}
	}
	return MappedStatus{Kind: MappingUnknown}
}
