package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pocketledger/internal/models"
	"pocketledger/internal/testutil"
)

type engineFixture struct {
	db     *gorm.DB
	engine BalanceEngine
	owner  string
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db)
	return &engineFixture{db: db, engine: NewBalanceEngine(db), owner: user.ID}
}

func (f *engineFixture) account(t *testing.T, balance string) *models.Account {
	t.Helper()
	return testutil.CreateTestAccountWithBalance(t, f.db, f.owner, testutil.Dec(balance))
}

func (f *engineFixture) balance(t *testing.T, account *models.Account) decimal.Decimal {
	t.Helper()
	return testutil.ReloadAccount(t, f.db, account.ID).Balance
}

func (f *engineFixture) requireBalance(t *testing.T, account *models.Account, want string) {
	t.Helper()
	got := f.balance(t, account)
	if !got.Equal(testutil.Dec(want)) {
		t.Fatalf("account %s: expected %s, got %s", account.Name, want, got)
	}
}

func simple(account *models.Account, txType models.TransactionType, amount string) *models.Transaction {
	return &models.Transaction{
		Base:      models.Base{ID: "tx"},
		Amount:    testutil.Dec(amount),
		Type:      txType,
		From:      models.ExternalEndpoint("Payer"),
		To:        models.ExternalEndpoint("Shop"),
		AccountID: account.ID,
	}
}

func transfer(from, to *models.Account, amount string) *models.Transaction {
	return &models.Transaction{
		Base:      models.Base{ID: "tx"},
		Amount:    testutil.Dec(amount),
		Type:      models.TransactionTypeTransfer,
		From:      models.AccountEndpoint(from.ID),
		To:        models.AccountEndpoint(to.ID),
		AccountID: from.ID,
	}
}

func revised(tx *models.Transaction, amount string) *models.Transaction {
	next := *tx
	next.Amount = testutil.Dec(amount)
	return &next
}

func TestBalanceEngine_IncomeLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")

	created := simple(a, models.TransactionTypeIncome, "500")
	res, err := f.engine.UpdateAccountBalance(a, created, nil, false)
	testutil.AssertNoError(t, err)
	if res.Target != nil {
		t.Errorf("expected nil, got %v", res.Target)
	}
	if !res.Source.Balance.Equal(testutil.Dec("1500")) {
		t.Errorf("expected source balance 1500, got %s", res.Source.Balance)
	}
	f.requireBalance(t, a, "1500")

	updated := revised(created, "200")
	_, err = f.engine.UpdateAccountBalance(a, updated, created, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "1200")

	_, err = f.engine.UpdateAccountBalance(a, updated, nil, true)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "1000")
}

func TestBalanceEngine_ExpenseLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")

	created := simple(a, models.TransactionTypeExpense, "300")
	_, err := f.engine.UpdateAccountBalance(a, created, nil, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "700")

	updated := revised(created, "450.75")
	_, err = f.engine.UpdateAccountBalance(a, updated, created, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "549.25")

	_, err = f.engine.UpdateAccountBalance(a, updated, nil, true)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "1000")
}

func TestBalanceEngine_IncomeToExpense(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "100")

	income := simple(a, models.TransactionTypeIncome, "40")
	_, err := f.engine.UpdateAccountBalance(a, income, nil, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "140")

	expense := revised(income, "40")
	expense.Type = models.TransactionTypeExpense
	_, err = f.engine.UpdateAccountBalance(a, expense, income, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "60")

	_, err = f.engine.UpdateAccountBalance(a, expense, nil, true)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "100")
}

func TestBalanceEngine_UpdatesCallerAccount(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "10")

	_, err := f.engine.UpdateAccountBalance(a, simple(a, models.TransactionTypeIncome, "5"), nil, false)
	testutil.AssertNoError(t, err)
	if !a.Balance.Equal(testutil.Dec("15")) {
		t.Errorf("caller's copy should carry the new balance, got %s", a.Balance)
	}
}

func TestBalanceEngine_TransferCreateAndDelete(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")

	tx := transfer(a, b, "300")
	res, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)
	if res.Target == nil {
		t.Fatalf("expected res.Target to be set")
	}
	if res.Source.ID != a.ID {
		t.Errorf("expected %v, got %v", a.ID, res.Source.ID)
	}
	if res.Target.ID != b.ID {
		t.Errorf("expected %v, got %v", b.ID, res.Target.ID)
	}
	f.requireBalance(t, a, "700")
	f.requireBalance(t, b, "500")

	_, err = f.engine.UpdateAccountBalance(a, tx, nil, true)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "1000")
	f.requireBalance(t, b, "200")
}

func TestBalanceEngine_TransferUpdateSameEndpoints(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")

	tx := transfer(a, b, "300")
	_, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)

	_, err = f.engine.UpdateAccountBalance(a, revised(tx, "450"), tx, false)
	testutil.AssertNoError(t, err)
	f.requireBalance(t, a, "550")
	f.requireBalance(t, b, "650")
}

func TestBalanceEngine_TransferCalledWithReceivingAccount(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")

	tx := transfer(a, b, "300")
	_, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)

	res, err := f.engine.UpdateAccountBalance(b, revised(tx, "100"), tx, false)
	testutil.AssertNoError(t, err)
	if res.Source.ID != a.ID {
		t.Errorf("source should resolve to the from account: expected %v, got %v", a.ID, res.Source.ID)
	}
	f.requireBalance(t, a, "900")
	f.requireBalance(t, b, "300")
}

func TestBalanceEngine_TransferRetarget(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")
	c := f.account(t, "50")

	tx := transfer(a, b, "300")
	_, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)

	moved := transfer(a, c, "250")
	res, err := f.engine.UpdateAccountBalance(a, moved, tx, false)
	testutil.AssertNoError(t, err)
	if res.Target.ID != c.ID {
		t.Errorf("expected %v, got %v", c.ID, res.Target.ID)
	}

	f.requireBalance(t, a, "750")
	f.requireBalance(t, b, "200")
	f.requireBalance(t, c, "300")

	total := f.balance(t, a).Add(f.balance(t, b)).Add(f.balance(t, c))
	if !total.Equal(testutil.Dec("1250")) {
		t.Errorf("funds not conserved: %s", total)
	}
}

func TestBalanceEngine_TransferNewSource(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")
	c := f.account(t, "400")

	tx := transfer(a, b, "300")
	_, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)

	_, err = f.engine.UpdateAccountBalance(c, transfer(c, b, "300"), tx, false)
	testutil.AssertNoError(t, err)

	f.requireBalance(t, a, "1000")
	f.requireBalance(t, b, "500")
	f.requireBalance(t, c, "100")
}

func TestBalanceEngine_TransferReversed(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	b := f.account(t, "200")

	tx := transfer(a, b, "300")
	_, err := f.engine.UpdateAccountBalance(a, tx, nil, false)
	testutil.AssertNoError(t, err)

	// B now sends 100 to A instead.
	_, err = f.engine.UpdateAccountBalance(b, transfer(b, a, "100"), tx, false)
	testutil.AssertNoError(t, err)

	f.requireBalance(t, a, "1100")
	f.requireBalance(t, b, "100")
}

func TestBalanceEngine_MissingTarget(t *testing.T) {
	f := newEngineFixture(t)
	a := f.account(t, "1000")
	ghost := &models.Account{Base: models.Base{ID: "ghost"}, Name: "ghost"}

	_, err := f.engine.UpdateAccountBalance(a, transfer(a, ghost, "10"), nil, false)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	f.requireBalance(t, a, "1000")
}

func TestBalanceEngine_TransferConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 25; i++ {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			f := newEngineFixture(t)
			a := f.account(t, "1000")
			b := f.account(t, "250")
			before := f.balance(t, a).Add(f.balance(t, b))

			// Quarter units keep every amount exact in binary.
			first := decimal.NewFromInt(int64(rng.Intn(4000) + 1)).Div(decimal.NewFromInt(4))
			second := decimal.NewFromInt(int64(rng.Intn(4000) + 1)).Div(decimal.NewFromInt(4))

			tx := transfer(a, b, first.String())
			steps := []struct {
				tx, old *models.Transaction
				del     bool
			}{
				{tx, nil, false},
				{revised(tx, second.String()), tx, false},
				{revised(tx, second.String()), nil, true},
			}
			for _, s := range steps {
				_, err := f.engine.UpdateAccountBalance(a, s.tx, s.old, s.del)
				testutil.AssertNoError(t, err)

				after := f.balance(t, a).Add(f.balance(t, b))
				if !after.Equal(before) {
					t.Fatalf("expected %s, got %s", before, after)
				}
			}

			f.requireBalance(t, a, "1000")
			f.requireBalance(t, b, "250")
		})
	}
}
