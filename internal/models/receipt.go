package models

// Платформы магазинов, с которых принимаются чеки покупок.
const (
	PlatformApple  = "apple"
	PlatformGoogle = "google"
)

// Receipt — платформенный чек покупки подписки.
// Содержимое чека непрозрачно для приложения и проверяется на стороне
// соответствующего магазина.
type Receipt struct {
	ProductID          string `json:"product_id"`
	TransactionReceipt string `json:"receipt"`
	Platform           string `json:"platform"` // apple или google
}

// Product — метаданные товара из каталога магазина.
type Product struct {
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
}
