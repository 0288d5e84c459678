package accounting

import (
	"strings"
	"time"
)

// TypeAccountsReceivable is the invoice type code for sales invoices.
const TypeAccountsReceivable = "ACCREC"

// Invoice statuses eligible for capture, in query order.
const (
	StatusAuthorised = "AUTHORISED"
	StatusPaid       = "PAID"
	StatusVoided     = "VOIDED"
)

var capturedStatuses = []string{StatusAuthorised, StatusPaid, StatusVoided}

// WebstoreReferencePrefix marks invoices raised by the webstore. Those
// orders arrive through the webstore channel and are not captured here.
const WebstoreReferencePrefix = "#"

// ShouldCapture reports whether inv is a sales invoice in a captured
// status that did not originate from the webstore.
func ShouldCapture(inv Invoice) bool {
	return inv.Type == TypeAccountsReceivable &&
		isCapturedStatus(inv.Status) &&
		!strings.HasPrefix(inv.Reference, WebstoreReferencePrefix)
}

func isCapturedStatus(status string) bool {
	for _, s := range capturedStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// ToQueryPredicate renders the server-side where clause equivalent to
// ShouldCapture's type and status rules. The reference rule cannot be
// expressed in the query language and must be re-checked after fetch.
// A date clause is added when modifiedSince is after the zero time;
// only the calendar date is used.
func ToQueryPredicate(modifiedSince time.Time) string {
	var b strings.Builder
	b.WriteString(`Type=="` + TypeAccountsReceivable + `"`)
	b.WriteString("&&(")
	for i, s := range capturedStatuses {
		if i > 0 {
			b.WriteString("||")
		}
		b.WriteString(`Status=="` + s + `"`)
	}
	b.WriteString(")")
	if modifiedSince.After(time.Time{}) {
		b.WriteString("&&Date>=DateTime(" + modifiedSince.Format("2006-01-02") + ")")
	}
	return b.String()
}
