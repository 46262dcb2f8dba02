package domain

import "github.com/shopspring/decimal"

// Owed is how much each participant owes the other.
type Owed struct {
	AOwes decimal.Decimal `json:"aOwes"`
	BOwes decimal.Decimal `json:"bOwes"`
}

// Of returns the amount owed by role.
func (o Owed) Of(role Role) decimal.Decimal {
	if role == RoleA {
		return o.AOwes
	}
	return o.BOwes
}

// OwedFor computes what a single transaction leaves owing. Only the participant who did not
// pay can owe anything: the payer's own share was paid by themselves.
func OwedFor(amount decimal.Decimal, payer Role, split Split) Owed {
	owed := Owed{AOwes: decimal.Zero, BOwes: decimal.Zero}
	switch payer {
	case RoleA:
		owed.BOwes = amount.Mul(split.B)
	case RoleB:
		owed.AOwes = amount.Mul(split.A)
	}
	return owed
}

// Balance is the outstanding position between the two participants.
type Balance struct {
	Owed
	// Anomalous is set when both nets are negative. Each participant then owes their own
	// absolute net instead of the two debts being netted.
	Anomalous        bool `json:"anomalous"`
	TransactionCount int  `json:"transactionCount"`
}

// IsSettled reports whether nobody owes anything.
func (b Balance) IsSettled() bool {
	return b.AOwes.IsZero() && b.BOwes.IsZero()
}

// ParticipantTotals accumulates what one participant paid and carried.
type ParticipantTotals struct {
	Paid  decimal.Decimal `json:"paid"`
	Share decimal.Decimal `json:"share"`
	Net   decimal.Decimal `json:"net"`
}

// DetailedBalance extends Balance with the per-participant totals and the spend-weighted split.
type DetailedBalance struct {
	Balance
	A            ParticipantTotals `json:"a"`
	B            ParticipantTotals `json:"b"`
	TotalSpent   decimal.Decimal   `json:"totalSpent"`
	AverageSplit Split             `json:"averageSplit"`
}

// ComputeBalance folds unsettled transactions into the outstanding balance.
func ComputeBalance(txns []Transaction, fallback Split) Balance {
	return ComputeDetailedBalance(txns, fallback).Balance
}

// ComputeDetailedBalance folds unsettled transactions into the detailed balance. Settled
// transactions are ignored.
func ComputeDetailedBalance(txns []Transaction, fallback Split) DetailedBalance {
	var paidA, paidB, shareA, shareB, total decimal.Decimal
	count := 0
	for _, t := range txns {
		if t.Settled {
			continue
		}
		split := t.EffectiveSplit(fallback)
		if t.Payer == RoleA {
			paidA = paidA.Add(t.Amount)
		} else {
			paidB = paidB.Add(t.Amount)
		}
		shareA = shareA.Add(t.Amount.Mul(split.A))
		shareB = shareB.Add(t.Amount.Mul(split.B))
		total = total.Add(t.Amount)
		count++
	}

	netA := paidA.Sub(shareA)
	netB := paidB.Sub(shareB)

	bal := Balance{Owed: Owed{AOwes: decimal.Zero, BOwes: decimal.Zero}, TransactionCount: count}
	switch {
	case netA.IsNegative() && netB.IsNegative():
		bal.Anomalous = true
		bal.AOwes = netA.Abs().Round(2)
		bal.BOwes = netB.Abs().Round(2)
	case netA.IsNegative():
		bal.AOwes = netA.Abs().Round(2)
	case netB.IsNegative():
		bal.BOwes = netB.Abs().Round(2)
	}

	avg := fallback
	if total.IsPositive() {
		a := shareA.DivRound(total, 4)
		avg = Split{A: a, B: one.Sub(a)}
	}

	return DetailedBalance{
		Balance:      bal,
		A:            ParticipantTotals{Paid: paidA, Share: shareA.Round(2), Net: netA.Round(2)},
		B:            ParticipantTotals{Paid: paidB, Share: shareB.Round(2), Net: netB.Round(2)},
		TotalSpent:   total,
		AverageSplit: avg,
	}
}
