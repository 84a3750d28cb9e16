package inference

// Prediction — одна найденная моделью рамка в пиксельных координатах.
// x,y — центр рамки, width,height — её размеры.
type Prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
}

// imageMeta — размеры исходного изображения, возвращаемые сервисом.
type imageMeta struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// inferResponse — ответ сервиса детекции.
type inferResponse struct {
	Image       imageMeta    `json:"image"`
	Predictions []Prediction `json:"predictions"`
}

// Result — нормализованный результат инференса: скоры по фиксированному
// набору классов и рамки в долях от размера изображения.
type Result struct {
	Scores      map[string]float64
	Annotations []Box
}

// Box — нормализованная рамка с меткой класса.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Label  string
}
