// Пакет pgtest поднимает одноразовый PostgreSQL в Docker для интеграционных
// тестов. Тесты запускаются только при установленной TEST_INTEGRATION.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Hexidus/watchgraph/internal/config"
)

const (
	image    = "docker.io/postgres:17-alpine"
	dbName   = "watchgraph_test"
	user     = "watchgraph"
	password = "test-password"

	startupTimeout = 30 * time.Second
)

// Start запускает контейнер и возвращает конфигурацию подключения к нему.
// Контейнер останавливается в t.Cleanup.
func Start(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		// Сообщение выводится дважды: после initdb и после рестарта.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("PostgreSQL контейнер не запустился: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("остановка контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port контейнера: %v", err)
	}

	return &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBName:     dbName,
		DBUser:     user,
		DBPassword: password,
		DBSSLMode:  "disable",
		DBMaxConns: 4,
	}
}
