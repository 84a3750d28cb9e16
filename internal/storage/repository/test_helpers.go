package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// setupTestDatabase поднимает контейнер PostgreSQL и создает схему.
func setupTestDatabase(t *testing.T) *Storage {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	_, err = storage.DB.Exec(`
        CREATE EXTENSION IF NOT EXISTS "pgcrypto";

        CREATE TABLE users (
            uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            is_premium BOOLEAN NOT NULL DEFAULT FALSE,
            subscription_expiry TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE sessions (
            id BIGSERIAL PRIMARY KEY,
            user_uid UUID NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
            image_url TEXT NOT NULL,
            annotated_image_url TEXT NOT NULL,
            scores JSONB NOT NULL,
            annotations JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE INDEX idx_sessions_user_uid ON sessions(user_uid);
    `)
	require.NoError(t, err, "failed to create tables")

	t.Cleanup(func() {
		_ = storage.DB.Close()
		_ = container.Terminate(ctx)
	})
	return storage
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его UID.
func (f *TestDataFactory) CreateUser(t *testing.T, email string) string {
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, password_hash)
		VALUES ($1, $2) RETURNING uid`, email, "hashedpassword").Scan(&uid)
	require.NoError(t, err)
	return uid
}

// CreateSession создает тестовую сессию анализа и возвращает её идентификатор.
func (f *TestDataFactory) CreateSession(t *testing.T, userUID string, scores map[string]float64, createdAt time.Time) int64 {
	scoresJSON, err := json.Marshal(scores)
	require.NoError(t, err)
	annotationsJSON, err := json.Marshal([]models.Annotation{})
	require.NoError(t, err)

	var id int64
	err = f.storage.DB.QueryRow(`INSERT INTO sessions
		(user_uid, image_url, annotated_image_url, scores, annotations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		userUID, "/images/a.jpg", "/images/b.jpg", scoresJSON, annotationsJSON, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}
