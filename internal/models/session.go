package models

import "time"

// Labels — фиксированный набор классов, по которым модель оценивает кожу.
// Порядок важен: статистика и нулевые скоры формируются по этому списку.
var Labels = []string{
	"Acne",
	"Dark-Circle",
	"Dry-Skin",
	"EyeBags",
	"Normal-Skin",
	"Oily-Skin",
	"Pores",
	"Spots",
	"Wrinkles",
}

// Annotation — рамка, найденная моделью на снимке.
// Координаты нормированы к размеру изображения: x,y — центр рамки,
// width,height — её размеры, все в диапазоне [0,1].
type Annotation struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

// AnalysisSession — результат одного анализа кожи.
// Клиент эту сущность не изменяет: только создает (загрузка снимка)
// и удаляет по идентификатору.
type AnalysisSession struct {
	ID                int64              `json:"session_id"`
	UserUID           string             `json:"-"`
	ImageURL          string             `json:"image_url"`
	AnnotatedImageURL string             `json:"annotated_image_url"`
	Scores            map[string]float64 `json:"scores"`
	Annotations       []Annotation       `json:"annotations"`
	Timestamp         time.Time          `json:"timestamp"`
}
