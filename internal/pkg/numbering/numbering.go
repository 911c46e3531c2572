// Package numbering generates human-facing reference numbers for
// applications, loans and ledger rows.
package numbering

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixApplication = "APP"
	PrefixLoan        = "LN"
	PrefixTransaction = "TXN"
)

// New returns PREFIX-YYYYMMDD-XXXXXXXX. The suffix comes from a random uuid.
func New(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return prefix + "-" + now.UTC().Format("20060102") + "-" + suffix
}

func Application(now time.Time) string { return New(PrefixApplication, now) }

func Loan(now time.Time) string { return New(PrefixLoan, now) }

func Transaction(now time.Time) string { return New(PrefixTransaction, now) }
