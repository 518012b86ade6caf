package domain

type RefundAvailabilityStatus string

const (
	RefundAvailabilityFull     RefundAvailabilityStatus = "FULL"
	RefundAvailabilityPartial  RefundAvailabilityStatus = "PARTIAL"
	RefundAvailabilityNone     RefundAvailabilityStatus = "NONE"
	RefundAvailabilityPending  RefundAvailabilityStatus = "PENDING"
	RefundAvailabilityExternal RefundAvailabilityStatus = "EXTERNAL"
)

type RefundAvailability struct {
	Status    RefundAvailabilityStatus
	Remaining int64
}

// AvailabilityFromRefunds computes what is left to refund on a charge whose
// capture has been accepted.
func AvailabilityFromRefunds(charge *Charge, refunds []Refund) RefundAvailability {
	remaining := charge.Amount - RefundedAmount(refunds)
	switch {
	case remaining <= 0:
		return RefundAvailability{Status: RefundAvailabilityNone}
	case remaining == charge.Amount:
		return RefundAvailability{Status: RefundAvailabilityFull, Remaining: remaining}
	default:
		return RefundAvailability{Status: RefundAvailabilityPartial, Remaining: remaining}
	}
}

func (a RefundAvailability) Allows(amount int64) bool {
	switch a.Status {
	case RefundAvailabilityFull, RefundAvailabilityPartial:
		return amount > 0 && amount <= a.Remaining
	default:
		return false
	}
}
