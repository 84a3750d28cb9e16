// Package purchase связывает платформенный магазин покупок с бэкендом:
// слушает события покупок, проверяет чеки на сервере и подтверждает
// транзакции магазину ровно один раз.
package purchase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Update — событие покупки от платформенного магазина.
// Магазин может доставить одно событие повторно, пока транзакция
// не подтверждена.
type Update struct {
	ProductID     string
	TransactionID string
	Receipt       string
	Platform      string
	Err           error
}

// Store описывает платформенный магазин покупок.
type Store interface {
	// Products возвращает метаданные товаров по идентификаторам.
	Products(ctx context.Context, ids []string) ([]models.Product, error)
	// RequestPurchase запускает покупку. Результат приходит в Updates.
	RequestPurchase(ctx context.Context, productID string) error
	// Restore инициирует повторную доставку купленных товаров в Updates.
	Restore(ctx context.Context) error
	// Updates — канал событий покупок.
	Updates() <-chan Update
	// Finish подтверждает транзакцию магазину. После подтверждения
	// магазин перестает доставлять её повторно.
	Finish(ctx context.Context, transactionID string) error
}

// Gateway описывает вызов проверки чека на бэкенде.
type Gateway interface {
	ValidateReceipt(ctx context.Context, receipt models.Receipt) (*api.SubscriptionStatus, error)
}

// Bridge слушает события магазина и сводит их с бэкендом.
type Bridge struct {
	store   Store
	gateway Gateway
	log     *slog.Logger

	// onActivated вызывается после успешной проверки чека.
	onActivated func(api.SubscriptionStatus)

	mu       sync.Mutex
	finished map[string]bool
}

// New создает Bridge. onActivated может быть nil.
func New(store Store, gateway Gateway, onActivated func(api.SubscriptionStatus), log *slog.Logger) *Bridge {
	return &Bridge{
		store:       store,
		gateway:     gateway,
		onActivated: onActivated,
		log:         log,
		finished:    make(map[string]bool),
	}
}

// Buy запускает покупку товара.
func (b *Bridge) Buy(ctx context.Context, productID string) error {
	if err := b.store.RequestPurchase(ctx, productID); err != nil {
		return api.WrapError(api.KindStore, err)
	}
	return nil
}

// Restore инициирует повторную доставку купленных товаров.
func (b *Bridge) Restore(ctx context.Context) error {
	if err := b.store.Restore(ctx); err != nil {
		return api.WrapError(api.KindStore, err)
	}
	return nil
}

// Products возвращает метаданные товаров.
func (b *Bridge) Products(ctx context.Context, ids []string) ([]models.Product, error) {
	products, err := b.store.Products(ctx, ids)
	if err != nil {
		return nil, api.WrapError(api.KindStore, err)
	}
	return products, nil
}

// Run слушает события магазина до отмены контекста или закрытия канала.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-b.store.Updates():
			if !ok {
				return
			}
			b.handle(ctx, update)
		}
	}
}

// handle проверяет чек на сервере и подтверждает транзакцию магазину.
// Неподтвержденная транзакция будет доставлена магазином повторно,
// поэтому при сбое проверки подтверждение не выполняется.
func (b *Bridge) handle(ctx context.Context, update Update) {
	if update.Err != nil {
		b.log.Warn("purchase failed in store", sl.Err(update.Err))
		return
	}

	b.mu.Lock()
	done := b.finished[update.TransactionID]
	b.mu.Unlock()
	if done {
		b.log.Info("transaction already acknowledged",
			slog.String("transaction_id", update.TransactionID))
		return
	}

	status, err := b.gateway.ValidateReceipt(ctx, models.Receipt{
		ProductID:          update.ProductID,
		TransactionReceipt: update.Receipt,
		Platform:           update.Platform,
	})
	if err != nil {
		b.log.Error("receipt validation failed", sl.Err(err))
		return
	}

	if err := b.store.Finish(ctx, update.TransactionID); err != nil {
		b.log.Error("failed to acknowledge transaction", sl.Err(err))
		return
	}
	b.mu.Lock()
	b.finished[update.TransactionID] = true
	b.mu.Unlock()

	b.log.Info("subscription purchase completed",
		slog.String("product_id", update.ProductID),
		slog.String("transaction_id", update.TransactionID))
	if b.onActivated != nil {
		b.onActivated(*status)
	}
}
