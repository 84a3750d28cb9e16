package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// ErrSessionNotFound возвращается, когда сессия отсутствует или
// принадлежит другому пользователю.
var ErrSessionNotFound = errors.New("analysis session not found")

// CreateSession сохраняет результат анализа и возвращает его ID.
func (s *Storage) CreateSession(ctx context.Context, session models.AnalysisSession) (int64, error) {
	const op = "storage.CreateSession"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	scores, err := json.Marshal(session.Scores)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	annotations, err := json.Marshal(session.Annotations)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var newID int64
	query := `INSERT INTO sessions (user_uid, image_url, annotated_image_url, scores, annotations)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query, session.UserUID, session.ImageURL,
		session.AnnotatedImageURL, scores, annotations).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

func scanSessions(rows *sql.Rows) ([]*models.AnalysisSession, error) {
	var result []*models.AnalysisSession
	for rows.Next() {
		sess := &models.AnalysisSession{}
		var scores, annotations []byte
		if err := rows.Scan(&sess.ID, &sess.UserUID, &sess.ImageURL,
			&sess.AnnotatedImageURL, &scores, &annotations, &sess.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(scores, &sess.Scores); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(annotations, &sess.Annotations); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// ListSessions возвращает сессии пользователя, новые первыми.
func (s *Storage) ListSessions(ctx context.Context, userUID string, skip, limit int) ([]*models.AnalysisSession, error) {
	const op = "storage.ListSessions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, image_url, annotated_image_url, scores, annotations, created_at
			  FROM sessions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  OFFSET $2 LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result, err := scanSessions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListAllSessions возвращает все сессии в базе, новые первыми.
// Используется только административными операциями.
func (s *Storage) ListAllSessions(ctx context.Context) ([]*models.AnalysisSession, error) {
	const op = "storage.ListAllSessions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, image_url, annotated_image_url, scores, annotations, created_at
			  FROM sessions
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result, err := scanSessions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSessions возвращает число сессий пользователя.
func (s *Storage) CountSessions(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountSessions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(id) FROM sessions WHERE user_uid = $1`
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// RemoveSession удаляет сессию пользователя по ID.
// Сессия чужого пользователя не удаляется и считается не найденной.
func (s *Storage) RemoveSession(ctx context.Context, userUID string, id int64) error {
	const op = "storage.RemoveSession"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	return nil
}

// GetStats считает агрегаты по сессиям пользователя: общее число
// и долю сессий с ненулевым скором по каждому классу.
func (s *Storage) GetStats(ctx context.Context, userUID string) (*models.Stats, error) {
	const op = "storage.GetStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	total, err := s.CountSessions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &models.Stats{TotalSessions: total}
	query := `SELECT COUNT(id) FROM sessions
			  WHERE user_uid = $1 AND COALESCE((scores->>$2)::float, 0) > 0`
	for _, label := range models.Labels {
		var count int
		if err := s.DB.QueryRowContext(ctx, query, userUID, label).Scan(&count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var percent float64
		if total > 0 {
			percent = math.Round(float64(count)/float64(total)*1000) / 10
		}
		stats.ByLabel = append(stats.ByLabel, models.LabelStat{
			Label:   label,
			Count:   count,
			Percent: percent,
		})
	}
	return stats, nil
}

// GetTrend группирует сессии пользователя по месяцу или ISO-неделе
// и возвращает средние скоры по каждому классу за период.
func (s *Storage) GetTrend(ctx context.Context, userUID, period string) ([]models.TrendPoint, error) {
	const op = "storage.GetTrend"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	groupExpr := `to_char(created_at, 'Mon YYYY')`
	if period == "week" {
		groupExpr = `to_char(created_at, 'IYYY-IW')`
	}

	// Для каждого класса средний скор внутри периода. Скоры лежат в JSONB,
	// поэтому агрегируем выражением (scores->>label)::float.
	query := fmt.Sprintf(`SELECT
			      to_char(MIN(created_at), 'Mon YYYY') AS month,
			      to_char(MIN(created_at), 'IYYY-IW') AS week,
			      %s
		      FROM sessions
		      WHERE user_uid = $1
		      GROUP BY %s
		      ORDER BY MIN(created_at)`, avgColumns(), groupExpr)

	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.TrendPoint
	for rows.Next() {
		point := models.TrendPoint{Averages: make(map[string]float64, len(models.Labels))}
		dest := make([]any, 0, len(models.Labels)+2)
		dest = append(dest, &point.Month, &point.Week)
		avgs := make([]sql.NullFloat64, len(models.Labels))
		for i := range avgs {
			dest = append(dest, &avgs[i])
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for i, label := range models.Labels {
			point.Averages[label] = avgs[i].Float64
		}
		result = append(result, point)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func avgColumns() string {
	cols := ""
	for i, label := range models.Labels {
		if i > 0 {
			cols += ",\n			      "
		}
		cols += fmt.Sprintf(`AVG(COALESCE((scores->>'%s')::float, 0))`, label)
	}
	return cols
}
