package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/gateway"
	"tally/internal/memory"
	"tally/internal/session"
)

const testUser = "user-1"

func newTestService(t *testing.T) (*Service, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	svc := NewService(memory.New(), pub, session.NewStore(64, time.Minute))
	svc.now = func() time.Time { return time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC) }
	return svc, pub
}

type capturePublisher struct {
	msgs []*amqp.TransactionEventMessage
}

func (p *capturePublisher) PublishTransactionEvent(_ context.Context, msg *amqp.TransactionEventMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func seedIncome(t *testing.T, svc *Service, cents int64) core.Transaction {
	t.Helper()
	created, err := svc.Create(context.Background(), testUser, CreateInput{
		Kind:     core.Income,
		Amount:   core.Money{Cents: cents},
		Category: "Salary",
		Date:     core.NewDate(2025, 6, 1),
	})
	require.NoError(t, err)
	return created
}

func TestCreateIncome(t *testing.T) {
	svc, pub := newTestService(t)

	created := seedIncome(t, svc, 100_000)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.StatusCompleted, created.Status)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, amqp.ActionCreated, pub.msgs[0].Action)
	assert.Equal(t, 2025, pub.msgs[0].Year)
	assert.Equal(t, 6, pub.msgs[0].Month)
}

func TestCreateDefaultsCategory(t *testing.T) {
	svc, _ := newTestService(t)
	seedIncome(t, svc, 100_000)

	created, err := svc.Create(context.Background(), testUser, CreateInput{
		Kind:   core.Expense,
		Amount: core.Money{Cents: 500},
		Date:   core.NewDate(2025, 6, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategory, created.Category)
}

func TestCreateReservedIncomeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), testUser, CreateInput{
		Kind:    core.Income,
		Amount:  core.Money{Cents: 500},
		Date:    core.NewDate(2025, 6, 2),
		Reserve: true,
	})
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestCreateExpenseInsufficientFunds(t *testing.T) {
	svc, pub := newTestService(t)
	seedIncome(t, svc, 10_000)

	_, err := svc.Create(context.Background(), testUser, CreateInput{
		Kind:   core.Expense,
		Amount: core.Money{Cents: 10_001},
		Date:   core.NewDate(2025, 6, 5),
	})
	var insufficient *gateway.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(10_000), insufficient.Available.Cents)
	// The rejected create must not publish an event.
	assert.Len(t, pub.msgs, 1)
}

func TestReservationLifecycle(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	seedIncome(t, svc, 50_000)

	reserved, err := svc.Create(ctx, testUser, CreateInput{
		Kind:    core.Expense,
		Amount:  core.Money{Cents: 7_500},
		Date:    core.NewDate(2025, 6, 10),
		Reserve: true,
	})
	require.NoError(t, err)
	require.Equal(t, core.StatusReserved, reserved.Status)

	sum, err := svc.Summary(ctx, testUser, core.Month{Year: 2025, Month: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), sum.TotalExpense.Cents)
	assert.Equal(t, int64(7_500), sum.ReservedBalance.Cents)

	completed, err := svc.Complete(ctx, testUser, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, completed.Status)

	// Completing again must be rejected, not double-applied.
	_, err = svc.Complete(ctx, testUser, reserved.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
	_, err = svc.Revert(ctx, testUser, reserved.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	sum, err = svc.Summary(ctx, testUser, core.Month{Year: 2025, Month: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), sum.TotalExpense.Cents)
	assert.Zero(t, sum.ReservedBalance.Cents)

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, amqp.ActionCompleted, pub.msgs[2].Action)
}

func TestRevertRestoresBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedIncome(t, svc, 50_000)

	reserved, err := svc.Create(ctx, testUser, CreateInput{
		Kind:    core.Expense,
		Amount:  core.Money{Cents: 7_500},
		Date:    core.NewDate(2025, 6, 10),
		Reserve: true,
	})
	require.NoError(t, err)

	released, err := svc.Revert(ctx, testUser, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReleased, released.Status)

	sum, err := svc.Summary(ctx, testUser, core.Month{Year: 2025, Month: 6})
	require.NoError(t, err)
	assert.Zero(t, sum.TotalExpense.Cents)
	assert.Equal(t, int64(50_000), sum.Balance.Cents)
}

func TestEditCompletedExpenseImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedIncome(t, svc, 50_000)

	spent, err := svc.Create(ctx, testUser, CreateInput{
		Kind:   core.Expense,
		Amount: core.Money{Cents: 1_000},
		Date:   core.NewDate(2025, 6, 5),
	})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, testUser, spent.ID, UpdateInput{
		Amount: core.Money{Cents: 2_000},
		Date:   core.NewDate(2025, 6, 5),
	})
	assert.ErrorIs(t, err, core.ErrImmutable)
}

func TestEditReservedExpenseAddsBackPriorAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedIncome(t, svc, 10_000)

	reserved, err := svc.Create(ctx, testUser, CreateInput{
		Kind:    core.Expense,
		Amount:  core.Money{Cents: 8_000},
		Date:    core.NewDate(2025, 6, 5),
		Reserve: true,
	})
	require.NoError(t, err)

	// 9500 exceeds the remaining 2000 but fits once the prior 8000 is
	// added back.
	updated, err := svc.Edit(ctx, testUser, reserved.ID, UpdateInput{
		Amount:   core.Money{Cents: 9_500},
		Category: reserved.Category,
		Date:     reserved.Date,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9_500), updated.Amount.Cents)

	_, err = svc.Edit(ctx, testUser, reserved.ID, UpdateInput{
		Amount:   core.Money{Cents: 10_001},
		Category: reserved.Category,
		Date:     reserved.Date,
	})
	var insufficient *gateway.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(10_000), insufficient.Available.Cents)
}

func TestEditIncomeAlwaysAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	income := seedIncome(t, svc, 10_000)

	updated, err := svc.Edit(ctx, testUser, income.ID, UpdateInput{
		Amount:   core.Money{Cents: 12_000},
		Category: "Salary",
		Date:     income.Date,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), updated.Amount.Cents)
	assert.Equal(t, core.StatusCompleted, updated.Status)
}

func TestEditUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Edit(context.Background(), testUser, "missing", UpdateInput{
		Amount: core.Money{Cents: 100},
		Date:   core.NewDate(2025, 6, 1),
	})
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestDeletePublishesEvent(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	income := seedIncome(t, svc, 10_000)

	require.NoError(t, svc.Delete(ctx, testUser, income.ID))
	assert.ErrorIs(t, svc.Delete(ctx, testUser, income.ID), gateway.ErrNotFound)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, amqp.ActionDeleted, pub.msgs[1].Action)
}

func TestUserScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	income := seedIncome(t, svc, 10_000)

	_, err := svc.Edit(ctx, "someone-else", income.ID, UpdateInput{
		Amount: core.Money{Cents: 100},
		Date:   income.Date,
	})
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	txs, err := svc.Transactions(ctx, "someone-else", core.Month{Year: 2025, Month: 6})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReservedListing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedIncome(t, svc, 100_000)

	for _, day := range []int{3, 7} {
		_, err := svc.Create(ctx, testUser, CreateInput{
			Kind:    core.Expense,
			Amount:  core.Money{Cents: 1_000},
			Date:    core.NewDate(2025, 6, day),
			Reserve: true,
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, testUser, CreateInput{
		Kind:   core.Expense,
		Amount: core.Money{Cents: 1_000},
		Date:   core.NewDate(2025, 6, 8),
	})
	require.NoError(t, err)

	txs, err := svc.Reserved(ctx, testUser, nil)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	month := core.Month{Year: 2025, Month: 7}
	txs, err = svc.Reserved(ctx, testUser, &month)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// failingGateway wraps the memory gateway and fails reads on demand, to
// exercise the session mirror fallback.
type failingGateway struct {
	gateway.Gateway
	fail bool
}

var errDown = errors.New("backend down")

func (f *failingGateway) ListMonth(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	if f.fail {
		return nil, errDown
	}
	return f.Gateway.ListMonth(ctx, userID, month)
}

func (f *failingGateway) MonthSummary(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	if f.fail {
		return core.MonthSummary{}, errDown
	}
	return f.Gateway.MonthSummary(ctx, userID, month)
}

func TestMirrorFallback(t *testing.T) {
	gw := &failingGateway{Gateway: memory.New()}
	svc := NewService(gw, nil, session.NewStore(64, time.Minute))
	svc.now = func() time.Time { return time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	month := core.Month{Year: 2025, Month: 6}

	_, err := svc.Create(ctx, testUser, CreateInput{
		Kind:     core.Income,
		Amount:   core.Money{Cents: 42_000},
		Category: "Salary",
		Date:     core.NewDate(2025, 6, 1),
	})
	require.NoError(t, err)

	// Prime the mirror with a successful read.
	txs, err := svc.Transactions(ctx, testUser, month)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	gw.fail = true

	cached, err := svc.Transactions(ctx, testUser, month)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	sum, err := svc.Summary(ctx, testUser, month)
	require.NoError(t, err)
	assert.Equal(t, int64(42_000), sum.TotalIncome.Cents)

	// Logout drops the mirror; the failure now surfaces.
	svc.Logout(testUser)
	_, err = svc.Transactions(ctx, testUser, month)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, errDown)
}

func TestSettingsMirroring(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	prefs, err := svc.Settings(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "light", prefs.Theme)

	custom := gateway.Settings{DateFormat: "02/01/2006", Locale: "it", Theme: "dark"}
	require.NoError(t, svc.SaveSettings(ctx, testUser, custom))

	prefs, err = svc.Settings(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, custom, prefs)
}
