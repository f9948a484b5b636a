package models

import "testing"

func TestEndpoint(t *testing.T) {
	acc := AccountEndpoint("a1")
	if !acc.IsAccount() || !acc.Refers("a1") {
		t.Errorf("expected account endpoint referring to a1, got %+v", acc)
	}
	if acc.Refers("a2") {
		t.Error("account endpoint should not refer to a different id")
	}

	ext := ExternalEndpoint("a1")
	if ext.IsAccount() || ext.Refers("a1") {
		t.Error("external endpoint must never refer to an account, even with a matching label")
	}

	if me := Me(); me.Kind != EndpointKindExternal || me.Value != MeLabel {
		t.Errorf("unexpected sentinel endpoint %+v", me)
	}
}

func TestTransactionTypeIsValid(t *testing.T) {
	for _, tt := range []TransactionType{TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer} {
		if !tt.IsValid() {
			t.Errorf("expected %s to be valid", tt)
		}
	}
	if TransactionType("income").IsValid() {
		t.Error("transaction types are upper case")
	}
}
