package purchase

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// SandboxStore имитирует платформенный магазин для локальной отладки:
// покупка сразу доставляет событие с синтетическим чеком, повторная
// доставка продолжается, пока транзакция не подтверждена.
type SandboxStore struct {
	platform string
	catalog  map[string]models.Product

	mu      sync.Mutex
	pending map[string]Update
	updates chan Update
}

// NewSandboxStore создает SandboxStore с каталогом товаров.
func NewSandboxStore(platform string, catalog []models.Product) *SandboxStore {
	byID := make(map[string]models.Product, len(catalog))
	for _, product := range catalog {
		byID[product.ProductID] = product
	}
	return &SandboxStore{
		platform: platform,
		catalog:  byID,
		pending:  make(map[string]Update),
		updates:  make(chan Update, 16),
	}
}

// Products возвращает метаданные товаров по идентификаторам.
func (s *SandboxStore) Products(_ context.Context, ids []string) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.catalog[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// RequestPurchase создает транзакцию и доставляет событие покупки.
func (s *SandboxStore) RequestPurchase(_ context.Context, productID string) error {
	if _, ok := s.catalog[productID]; !ok {
		return fmt.Errorf("unknown product: %s", productID)
	}
	transactionID := uuid.NewString()
	update := Update{
		ProductID:     productID,
		TransactionID: transactionID,
		Receipt:       "sandbox-" + transactionID,
		Platform:      s.platform,
	}

	s.mu.Lock()
	s.pending[transactionID] = update
	s.mu.Unlock()

	s.updates <- update
	return nil
}

// Restore повторно доставляет все неподтвержденные транзакции.
func (s *SandboxStore) Restore(_ context.Context) error {
	s.mu.Lock()
	pending := make([]Update, 0, len(s.pending))
	for _, update := range s.pending {
		pending = append(pending, update)
	}
	s.mu.Unlock()

	for _, update := range pending {
		s.updates <- update
	}
	return nil
}

// Updates — канал событий покупок.
func (s *SandboxStore) Updates() <-chan Update {
	return s.updates
}

// Finish подтверждает транзакцию: она больше не доставляется.
func (s *SandboxStore) Finish(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[transactionID]; !ok {
		return fmt.Errorf("unknown transaction: %s", transactionID)
	}
	delete(s.pending, transactionID)
	return nil
}
