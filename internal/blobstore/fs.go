// fs.go — локальное blob-хранилище evidence (разработка, single-node установки).
// Запись: temp файл → fsync → атомарный rename. Скачивание — по ссылке
// /blobs/{key}?expires=...&filename=...&signature=..., подписанной HMAC-SHA256.
package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FSRoutePrefix — префикс HTTP-маршрута, по которому FSStore отдаёт объекты.
const FSRoutePrefix = "/blobs/"

// FSStore — Store в локальной директории.
type FSStore struct {
	// dataDir — корневая директория объектов
	dataDir string
	// baseURL — публичный адрес сервиса, от которого строятся ссылки
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewFSStore создаёт хранилище. Директория создаётся, если её нет.
func NewFSStore(dataDir, baseURL string, secret []byte) (*FSStore, error) {
	if len(secret) == 0 {
		return nil, errors.New("секрет подписи ссылок не задан")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FSStore{
		dataDir: dataDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}, nil
}

// resolve возвращает путь объекта на диске. Ключи вида "../x" и абсолютные отвергаются.
func (fs *FSStore) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || clean != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(fs.dataDir, filepath.FromSlash(clean)), nil
}

// Put записывает объект атомарно. contentType на диске не сохраняется:
// при отдаче он выводится из расширения.
func (fs *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("ошибка создания директории объекта: %w", err)
	}

	// Уникальный временный файл в той же директории: параллельные записи
	// одного ключа не делят temp-файл, rename остаётся атомарным.
	f, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// PresignGet возвращает подписанную ссылку на объект.
// Существование объекта не проверяется, как и у облачных хранилищ.
func (fs *FSStore) PresignGet(_ context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if _, err := fs.resolve(key); err != nil {
		return "", err
	}

	expires := strconv.FormatInt(fs.now().Add(ttl).Unix(), 10)
	q := url.Values{
		"expires":   {expires},
		"filename":  {fileName},
		"signature": {fs.sign(key, expires, fileName)},
	}

	u := fs.baseURL + FSRoutePrefix + (&url.URL{Path: key}).EscapedPath() + "?" + q.Encode()
	return u, nil
}

// sign вычисляет HMAC-SHA256 от ключа, срока и имени файла.
func (fs *FSStore) sign(key, expires, fileName string) string {
	mac := hmac.New(sha256.New, fs.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(expires))
	mac.Write([]byte{0})
	mac.Write([]byte(fileName))
	return hex.EncodeToString(mac.Sum(nil))
}

// Handler возвращает обработчик ссылок, выданных PresignGet.
// Ожидает путь с префиксом FSRoutePrefix.
func (fs *FSStore) Handler() http.Handler {
	return http.HandlerFunc(fs.serveBlob)
}

func (fs *FSStore) serveBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, FSRoutePrefix)
	q := r.URL.Query()
	expires := q.Get("expires")
	fileName := q.Get("filename")

	expected := fs.sign(key, expires, fileName)
	if !hmac.Equal([]byte(expected), []byte(q.Get("signature"))) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || fs.now().Unix() > exp {
		http.Error(w, "link expired", http.StatusForbidden)
		return
	}

	fullPath, err := fs.resolve(key)
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", contentDisposition(fileName))
	http.ServeContent(w, r, fileName, info.ModTime(), f)
}
