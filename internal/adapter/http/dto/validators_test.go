package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreatePayoutRequest{
		Amount:        100000,
		BankName:      "  Vietcombank  ",
		BankAccount:   " 0123456789 ",
		AccountHolder: " NGUYEN VAN A ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Vietcombank", req.BankName)
	assert.Equal(t, "0123456789", req.BankAccount)
	assert.Equal(t, "NGUYEN VAN A", req.AccountHolder)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "chargeback <script>alert('x')</script> filed"
	req := RefundWebhookRequest{
		GatewayTxnRef: "VNP20260114123456",
		Reason:        reason,
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	note := "  monthly withdrawal  "
	req := CreatePayoutRequest{
		Amount:        100000,
		BankName:      "Vietcombank",
		BankAccount:   "0123456789",
		AccountHolder: "NGUYEN VAN A",
		Note:          &note,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "monthly withdrawal", *req.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreatePayoutRequest{
		Amount:        100000,
		BankName:      "Vietcombank",
		BankAccount:   "0123456789",
		AccountHolder: "NGUYEN VAN A",
		Note:          nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"VNP20260114123456",
		"txn-001",
		"TXN_002",
		"a.b.c",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"txn 001",     // space
		"txn<001>",    // angle brackets
		"txn;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"txn\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSanitizeStruct_AdjustmentRequest(t *testing.T) {
	req := AdjustmentRequest{
		Amount:      -50000,
		Description: "  clawback for <b>disputed</b> sale  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "clawback for &lt;b&gt;disputed&lt;/b&gt; sale", req.Description)
}
