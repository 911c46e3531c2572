package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("Invalid status transition")

// ApplicationStatus is the lifecycle of a loan application.
type ApplicationStatus string

const (
	ApplicationDraft     ApplicationStatus = "draft"
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationDisbursed ApplicationStatus = "disbursed"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:    {ApplicationPending},
	ApplicationPending:  {ApplicationApproved, ApplicationRejected},
	ApplicationApproved: {ApplicationDisbursed},
}

// ParseApplicationStatus accepts only the closed set of statuses.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch st := ApplicationStatus(s); st {
	case ApplicationDraft, ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationDisbursed:
		return st, true
	}
	return "", false
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	for _, next := range applicationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal is true for rejected and disbursed.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// Transition returns to if the edge exists.
func (s ApplicationStatus) Transition(to ApplicationStatus) (ApplicationStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// LienStatus tracks the registrar hold on pledged units.
type LienStatus string

const (
	LienPending  LienStatus = "pending"
	LienMarked   LienStatus = "marked"
	LienReleased LienStatus = "released"
)

func (from LienStatus) Transition(to LienStatus) (LienStatus, error) {
	if (from == LienPending && to == LienMarked) || (from == LienMarked && to == LienReleased) {
		return to, nil
	}
	return from, fmt.Errorf("%w: lien %s -> %s", ErrInvalidTransition, from, to)
}

// LoanStatus is the lifecycle of a disbursed loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanClosed    LoanStatus = "closed"
	LoanDefaulted LoanStatus = "defaulted"
)

func ParseLoanStatus(s string) (LoanStatus, bool) {
	switch st := LoanStatus(s); st {
	case LoanActive, LoanClosed, LoanDefaulted:
		return st, true
	}
	return "", false
}

func (from LoanStatus) Transition(to LoanStatus) (LoanStatus, error) {
	if from == LoanActive && (to == LoanClosed || to == LoanDefaulted) {
		return to, nil
	}
	return from, fmt.Errorf("%w: loan %s -> %s", ErrInvalidTransition, from, to)
}

// TransactionType classifies ledger rows against a loan.
type TransactionType string

const (
	TxDisbursement       TransactionType = "disbursement"
	TxPrincipalRepayment TransactionType = "principal_repayment"
	TxInterestPayment    TransactionType = "interest_payment"
)

func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TxDisbursement, TxPrincipalRepayment, TxInterestPayment:
		return t, true
	}
	return "", false
}

// PaymentMethods accepted on repayments.
var PaymentMethods = []string{"upi", "neft", "rtgs", "imps", "cheque", "cash", "auto_debit"}

func IsValidPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}
