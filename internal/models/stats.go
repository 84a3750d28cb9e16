package models

// LabelStat — счетчик по одному классу: сколько сессий содержат
// ненулевой скор и какова их доля от общего числа.
type LabelStat struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Stats — агрегированная статистика анализов пользователя.
type Stats struct {
	TotalSessions int         `json:"total_sessions"`
	ByLabel       []LabelStat `json:"by_label"`
}

// TrendPoint — средние скоры за один период (месяц или ISO-неделя).
type TrendPoint struct {
	Month    string             `json:"month"` // например "Mar 2025"
	Week     string             `json:"week"`  // например "2025-14"
	Averages map[string]float64 `json:"averages"`
}

// Trend — динамика средних скоров по периодам.
type Trend struct {
	Trend []TrendPoint `json:"trend"`
}
