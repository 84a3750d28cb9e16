package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// AppleVerifier проверяет чеки App Store.
//
// TODO: подключить проверку через App Store Server API, когда появится
// доступ к продакшен-ключам. Пока чек принимается по базовым проверкам.
type AppleVerifier struct{}

// Verify выполняет проверку чека и возвращает срок действия подписки.
func (AppleVerifier) Verify(_ context.Context, receipt models.Receipt) (time.Time, error) {
	if receipt.TransactionReceipt == "" {
		return time.Time{}, errors.New("empty transaction receipt")
	}
	if receipt.ProductID == "" {
		return time.Time{}, errors.New("empty product id")
	}
	return time.Now().UTC().Add(subscriptionPeriod), nil
}

// GoogleVerifier проверяет чеки Google Play.
//
// TODO: подключить Google Play Developer API аналогично AppleVerifier.
type GoogleVerifier struct{}

// Verify выполняет проверку чека и возвращает срок действия подписки.
func (GoogleVerifier) Verify(_ context.Context, receipt models.Receipt) (time.Time, error) {
	if receipt.TransactionReceipt == "" {
		return time.Time{}, errors.New("empty transaction receipt")
	}
	if receipt.ProductID == "" {
		return time.Time{}, errors.New("empty product id")
	}
	return time.Now().UTC().Add(subscriptionPeriod), nil
}

// DefaultVerifiers возвращает верификаторы всех поддерживаемых платформ.
func DefaultVerifiers() map[string]Verifier {
	return map[string]Verifier{
		models.PlatformApple:  AppleVerifier{},
		models.PlatformGoogle: GoogleVerifier{},
	}
}
