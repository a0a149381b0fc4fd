// Пакет blobstore — хранилище содержимого evidence-файлов.
// Объекты адресуются непрозрачным ключом; сервис никогда не отдаёт байты сам,
// клиенту выдаётся ссылка с ограниченным сроком действия.
//
// Реализации:
//   - S3Store — AWS S3 (и совместимые: MinIO, LocalStack), SSE на стороне сервера
//   - GCSStore — Google Cloud Storage, подписанные URL V4
//   - FSStore — локальная директория, ссылки подписываются HMAC
package blobstore

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidKey — ключ объекта пуст или выходит за пределы хранилища.
var ErrInvalidKey = errors.New("некорректный ключ объекта")

// Store — минимальный контракт blob-хранилища.
type Store interface {
	// Put записывает объект целиком. Запись однократная, без повторов.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// PresignGet возвращает ссылку на скачивание объекта, действующую ttl.
	// fileName попадает в Content-Disposition ответа.
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

// LinkServer — хранилище, которое само обслуживает выданные ссылки
// (FSStore). HTTP-сервер монтирует Handler по префиксу /blobs/.
type LinkServer interface {
	Handler() http.Handler
}

// contentDisposition формирует заголовок attachment с именем файла.
// Кавычки и обратные слэши экранируются, переводы строк отбрасываются.
func contentDisposition(fileName string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")
	return `attachment; filename="` + r.Replace(fileName) + `"`
}
