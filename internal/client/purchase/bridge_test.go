package purchase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

type StoreMock struct {
	mock.Mock
	updates chan Update
}

func newStoreMock() *StoreMock {
	return &StoreMock{updates: make(chan Update, 16)}
}

func (m *StoreMock) Products(ctx context.Context, ids []string) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if res := args.Get(0); res != nil {
		return res.([]models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) RequestPurchase(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *StoreMock) Restore(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StoreMock) Updates() <-chan Update {
	return m.updates
}

func (m *StoreMock) Finish(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) ValidateReceipt(ctx context.Context, receipt models.Receipt) (*api.SubscriptionStatus, error) {
	args := m.Called(ctx, receipt)
	if res := args.Get(0); res != nil {
		return res.(*api.SubscriptionStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func runBridge(t *testing.T, b *Bridge) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestBridge_PurchaseFlow(t *testing.T) {
	store := newStoreMock()
	store.On("Finish", mock.Anything, "tx-1").Return(nil).Once()

	gw := new(GatewayMock)
	gw.On("ValidateReceipt", mock.Anything, models.Receipt{
		ProductID:          "premium.monthly",
		TransactionReceipt: "receipt-blob",
		Platform:           models.PlatformApple,
	}).Return(&api.SubscriptionStatus{IsPremium: true}, nil).Once()

	activated := make(chan api.SubscriptionStatus, 1)
	bridge := New(store, gw, func(s api.SubscriptionStatus) { activated <- s }, newNoopLogger())
	runBridge(t, bridge)

	store.updates <- Update{
		ProductID:     "premium.monthly",
		TransactionID: "tx-1",
		Receipt:       "receipt-blob",
		Platform:      models.PlatformApple,
	}

	select {
	case status := <-activated:
		assert.True(t, status.IsPremium)
	case <-time.After(time.Second):
		t.Fatal("subscription activation was not reported")
	}
	store.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestBridge_DuplicateDeliveryAcknowledgedOnce(t *testing.T) {
	store := newStoreMock()
	store.On("Finish", mock.Anything, "tx-1").Return(nil).Once()

	gw := new(GatewayMock)
	gw.On("ValidateReceipt", mock.Anything, mock.Anything).
		Return(&api.SubscriptionStatus{IsPremium: true}, nil).Once()

	var mu sync.Mutex
	activations := 0
	bridge := New(store, gw, func(api.SubscriptionStatus) {
		mu.Lock()
		activations++
		mu.Unlock()
	}, newNoopLogger())
	runBridge(t, bridge)

	update := Update{
		ProductID:     "premium.monthly",
		TransactionID: "tx-1",
		Receipt:       "receipt-blob",
		Platform:      models.PlatformGoogle,
	}
	store.updates <- update
	store.updates <- update
	store.updates <- update

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return activations == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, activations, "повторная доставка не должна приводить к повторной активации")
	mu.Unlock()
	store.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestBridge_RestoreForwardsAllPendingReceipts(t *testing.T) {
	store := newStoreMock()
	store.On("Restore", mock.Anything).Run(func(mock.Arguments) {
		store.updates <- Update{
			ProductID:     "premium.monthly",
			TransactionID: "tx-1",
			Receipt:       "receipt-1",
			Platform:      models.PlatformApple,
		}
		store.updates <- Update{
			ProductID:     "premium.yearly",
			TransactionID: "tx-2",
			Receipt:       "receipt-2",
			Platform:      models.PlatformApple,
		}
	}).Return(nil).Once()
	store.On("Finish", mock.Anything, "tx-1").Return(nil).Once()
	store.On("Finish", mock.Anything, "tx-2").Return(nil).Once()

	gw := new(GatewayMock)
	gw.On("ValidateReceipt", mock.Anything, models.Receipt{
		ProductID:          "premium.monthly",
		TransactionReceipt: "receipt-1",
		Platform:           models.PlatformApple,
	}).Return(&api.SubscriptionStatus{IsPremium: true}, nil).Once()
	gw.On("ValidateReceipt", mock.Anything, models.Receipt{
		ProductID:          "premium.yearly",
		TransactionReceipt: "receipt-2",
		Platform:           models.PlatformApple,
	}).Return(&api.SubscriptionStatus{IsPremium: true}, nil).Once()

	var mu sync.Mutex
	activations := 0
	bridge := New(store, gw, func(api.SubscriptionStatus) {
		mu.Lock()
		activations++
		mu.Unlock()
	}, newNoopLogger())
	runBridge(t, bridge)

	require.NoError(t, bridge.Restore(context.Background()))

	// Восстанавливаются все неподтвержденные покупки, не только первая,
	// и каждая подтверждается ровно один раз.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return activations == 2
	}, time.Second, 10*time.Millisecond)
	store.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestBridge_ValidationFailureLeavesTransactionOpen(t *testing.T) {
	store := newStoreMock()

	gw := new(GatewayMock)
	gw.On("ValidateReceipt", mock.Anything, mock.Anything).
		Return(nil, api.NewError(api.KindValidation, "receipt validation failed"))

	bridge := New(store, gw, nil, newNoopLogger())
	runBridge(t, bridge)

	store.updates <- Update{
		ProductID:     "premium.monthly",
		TransactionID: "tx-1",
		Receipt:       "bad-receipt",
		Platform:      models.PlatformApple,
	}
	time.Sleep(50 * time.Millisecond)

	// Транзакция не подтверждается: магазин доставит её снова.
	store.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything)
}

func TestBridge_BuyWrapsStoreError(t *testing.T) {
	store := newStoreMock()
	store.On("RequestPurchase", mock.Anything, "unknown").Return(errors.New("unknown product"))

	bridge := New(store, new(GatewayMock), nil, newNoopLogger())
	err := bridge.Buy(context.Background(), "unknown")
	assert.True(t, api.IsKind(err, api.KindStore))
}

func TestSandboxStore_RedeliversUntilFinished(t *testing.T) {
	store := NewSandboxStore(models.PlatformApple, []models.Product{
		{ProductID: "premium.monthly", Title: "Premium"},
	})

	require.NoError(t, store.RequestPurchase(context.Background(), "premium.monthly"))
	first := <-store.Updates()
	assert.Equal(t, "premium.monthly", first.ProductID)

	// Неподтвержденная транзакция доставляется повторно при Restore.
	require.NoError(t, store.Restore(context.Background()))
	second := <-store.Updates()
	assert.Equal(t, first.TransactionID, second.TransactionID)

	require.NoError(t, store.Finish(context.Background(), first.TransactionID))
	require.NoError(t, store.Restore(context.Background()))
	select {
	case update := <-store.Updates():
		t.Fatalf("unexpected redelivery after finish: %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}
