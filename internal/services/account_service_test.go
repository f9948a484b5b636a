package services

import (
	"context"
	"testing"

	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount("Wallet", testutil.Dec("99.95"), "#ff8800", user.ID)
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected account ID")
		}
		if account.CreatedBy != user.ID || account.Color != "#ff8800" {
			t.Errorf("unexpected account %+v", account)
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "99.95")
	})

	t.Run("negative_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		_, err := svc.CreateAccount("Wallet", testutil.Dec("-0.01"), "", "owner")
		testutil.AssertAppError(t, err, "INVALID_BALANCE")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		_, err := svc.CreateAccount("  ", testutil.Dec("1"), "", "owner")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, alice.ID)

	t.Run("owner", func(t *testing.T) {
		found, err := svc.GetAccount(alice.ID, account.ID)
		testutil.AssertNoError(t, err)
		if found.ID != account.ID {
			t.Errorf("expected %s, got %s", account.ID, found.ID)
		}
	})

	t.Run("other_owner", func(t *testing.T) {
		_, err := svc.GetAccount(bob.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetAccount(alice.ID, "missing")
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestGetAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.CreateTestAccount(t, db, user.ID).ID)
	}
	testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db).ID)

	all, err := svc.GetAccounts(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if len(all) != 5 {
		t.Fatalf("expected 5 accounts, got %d", len(all))
	}
	for i := range all {
		if all[i].ID != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], all[i].ID)
		}
	}

	page, err := svc.GetAccounts(user.ID, pagination.PageRequest{Skip: 3, First: 10})
	testutil.AssertNoError(t, err)
	if len(page) != 2 || page[0].ID != ids[3] {
		t.Errorf("expected the last two accounts, got %d", len(page))
	}
}

func TestTotals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)

	t.Run("empty", func(t *testing.T) {
		total, err := svc.GetTotalBalance(user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, total, "0")

		count, err := svc.GetTotalCount(user.ID)
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected 0, got %d", count)
		}
	})

	testutil.CreateTestAccountWithBalance(t, db, user.ID, testutil.Dec("100.5"))
	testutil.CreateTestAccountWithBalance(t, db, user.ID, testutil.Dec("-20.25"))
	testutil.CreateTestAccountWithBalance(t, db, testutil.CreateTestUser(t, db).ID, testutil.Dec("1000"))

	t.Run("sums_owned_accounts", func(t *testing.T) {
		total, err := svc.GetTotalBalance(user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, total, "80.25")

		count, err := svc.GetTotalCount(user.ID)
		testutil.AssertNoError(t, err)
		if count != 2 {
			t.Errorf("expected 2, got %d", count)
		}
	})

	t.Run("fractional_balances_sum_exactly", func(t *testing.T) {
		owner := testutil.CreateTestUser(t, db)
		testutil.CreateTestAccountWithBalance(t, db, owner.ID, testutil.Dec("0.1"))
		testutil.CreateTestAccountWithBalance(t, db, owner.ID, testutil.Dec("0.2"))

		total, err := svc.GetTotalBalance(owner.ID)
		testutil.AssertNoError(t, err)
		if total.String() != "0.3" {
			t.Errorf("expected exactly 0.3, got %s", total)
		}
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := svc.GetAccountsSummary(context.Background(), user.ID, pagination.PageRequest{First: 1})
		testutil.AssertNoError(t, err)

		if len(summary.Accounts) != 1 {
			t.Errorf("expected one account on the page, got %d", len(summary.Accounts))
		}
		if summary.Count != 2 {
			t.Errorf("expected count 2, got %d", summary.Count)
		}
		testutil.AssertDecimal(t, summary.Total, "80.25")
	})
}

func TestUpdateAccountDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccountWithBalance(t, db, user.ID, testutil.Dec("10"))

	updated, err := svc.UpdateAccountDetails(account.ID, "Savings", "")
	testutil.AssertNoError(t, err)
	if updated.Name != "Savings" || updated.Color != account.Color {
		t.Errorf("expected rename only, got %+v", updated)
	}
	testutil.AssertDecimal(t, updated.Balance, "10")

	updated, err = svc.UpdateAccountDetails(account.ID, "", "#000")
	testutil.AssertNoError(t, err)
	if updated.Name != "Savings" || updated.Color != "#000" {
		t.Errorf("expected recolour only, got %+v", updated)
	}

	_, err = svc.UpdateAccountDetails("missing", "x", "")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestDeleteAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccountWithBalance(t, db, user.ID, testutil.Dec("100"))
	other := testutil.CreateTestAccount(t, db, user.ID)

	testutil.CreateTestTransaction(t, db, account, models.TransactionTypeIncome, testutil.Dec("5"), nil)
	testutil.CreateTestTransaction(t, db, account, models.TransactionTypeExpense, testutil.Dec("5"), nil)
	transfer := testutil.CreateTestTransaction(t, db, account, models.TransactionTypeTransfer, testutil.Dec("5"), other)

	testutil.AssertNoError(t, svc.DeleteAccount(account.ID))

	_, err := svc.GetAccount(user.ID, account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

	var remaining []models.Transaction
	db.Where("account_id = ?", account.ID).Find(&remaining)
	if len(remaining) != 1 || remaining[0].ID != transfer.ID {
		t.Errorf("expected only the transfer to remain, got %d rows", len(remaining))
	}

	testutil.AssertAppError(t, svc.DeleteAccount(account.ID), "ACCOUNT_NOT_FOUND")
}
