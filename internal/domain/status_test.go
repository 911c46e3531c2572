package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatus_Transitions(t *testing.T) {
	allowed := map[ApplicationStatus][]ApplicationStatus{
		ApplicationDraft:    {ApplicationPending},
		ApplicationPending:  {ApplicationApproved, ApplicationRejected},
		ApplicationApproved: {ApplicationDisbursed},
	}
	all := []ApplicationStatus{ApplicationDraft, ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationDisbursed}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			got, err := from.Transition(to)
			if want {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", from, to)
				assert.Equal(t, from, got)
			}
		}
	}
}

func TestApplicationStatus_Terminal(t *testing.T) {
	assert.True(t, ApplicationRejected.IsTerminal())
	assert.True(t, ApplicationDisbursed.IsTerminal())
	assert.False(t, ApplicationPending.IsTerminal())
}

func TestParseApplicationStatus(t *testing.T) {
	st, ok := ParseApplicationStatus("approved")
	assert.True(t, ok)
	assert.Equal(t, ApplicationApproved, st)

	_, ok = ParseApplicationStatus("margin_call")
	assert.False(t, ok)
}

func TestLienStatus_Transitions(t *testing.T) {
	s, err := LienPending.Transition(LienMarked)
	require.NoError(t, err)
	s, err = s.Transition(LienReleased)
	require.NoError(t, err)
	assert.Equal(t, LienReleased, s)

	_, err = LienPending.Transition(LienReleased)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = LienReleased.Transition(LienMarked)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLoanStatus_Transitions(t *testing.T) {
	_, err := LoanActive.Transition(LoanClosed)
	assert.NoError(t, err)
	_, err = LoanActive.Transition(LoanDefaulted)
	assert.NoError(t, err)
	_, err = LoanClosed.Transition(LoanActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPaymentMethods(t *testing.T) {
	assert.True(t, IsValidPaymentMethod("neft"))
	assert.False(t, IsValidPaymentMethod("bitcoin"))
	_, ok := ParseTransactionType("interest_payment")
	assert.True(t, ok)
}
