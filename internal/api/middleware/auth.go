// auth.go — JWT middleware для аутентификации через AWS Cognito.
// Проверяет подпись токена (RS256) по JWKS user pool, срок действия, issuer
// и принадлежность токена app client: aud (ID token) или client_id (access token).
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/Hexidus/watchgraph/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyCaller — данные вызывающего в контексте запроса.
	ContextKeyCaller contextKey = "caller"
	// contextKeyCallerSlot — ячейка, через которую RequestLogger узнаёт вызывающего.
	contextKeyCallerSlot contextKey = "caller_slot"
)

type callerSlot struct {
	caller *CallerClaims
}

// Значения claim token_use в токенах Cognito.
const (
	TokenUseID     = "id"
	TokenUseAccess = "access"
)

// CallerClaims — личность вызывающего, извлечённая из токена Cognito.
type CallerClaims struct {
	// Subject — sub пользователя user pool.
	Subject string
	// Email — email (только в ID token).
	Email string
	// Username — cognito:username (ID token) или username (access token).
	Username string
	// TokenUse — тип токена: id или access.
	TokenUse string
}

// cognitoClaims — raw claims токена Cognito.
type cognitoClaims struct {
	jwt.RegisteredClaims
	Email           string `json:"email,omitempty"`
	CognitoUsername string `json:"cognito:username,omitempty"`
	Username        string `json:"username,omitempty"`
	TokenUse        string `json:"token_use,omitempty"`
	// ClientID — app client access token'а (в access token нет aud).
	ClientID string `json:"client_id,omitempty"`
}

// JWTAuth — middleware JWT-аутентификации через JWKS Cognito.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	logger    *slog.Logger
	issuer    string
	clientID  string
	jwtLeeway time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS user pool.
// jwksURL — URL JWKS endpoint (https://cognito-idp.{region}.amazonaws.com/{pool}/.well-known/jwks.json).
// issuer — ожидаемый iss, clientID — app client ID.
// jwksClientTimeout — таймаут HTTP-клиента JWKS (WG_JWKS_CLIENT_TIMEOUT).
// jwksRefreshInterval — интервал обновления ключей (WG_JWKS_REFRESH_INTERVAL).
// jwtLeeway — допустимое отклонение часов (WG_JWT_LEEWAY).
func NewJWTAuth(
	jwksURL string,
	issuer string,
	clientID string,
	jwksClientTimeout time.Duration,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// NoErrorReturnFirstHTTPReq — стартуем, даже если JWKS ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: jwksClientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	auth := NewJWTAuthWithKeyfunc(k, issuer, clientID, logger)
	auth.jwtLeeway = jwtLeeway
	return auth, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer, clientID string, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:     kf,
		logger:   logger.With(slog.String("component", "jwt_auth")),
		issuer:   issuer,
		clientID: clientID,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует его и помещает CallerClaims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			raw := &cognitoClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if raw.Subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}
			if !j.issuedForClient(raw) {
				j.logger.Debug("Токен выпущен для другого app client",
					slog.String("client_id", raw.ClientID),
					slog.Any("aud", []string(raw.Audience)),
				)
				apierrors.Unauthorized(w, "Токен выпущен для другого клиента")
				return
			}

			caller := buildCaller(raw)
			if slot, ok := r.Context().Value(contextKeyCallerSlot).(*callerSlot); ok {
				slot.caller = caller
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// issuedForClient проверяет принадлежность токена app client.
// ID token несёт client ID в aud, access token — в client_id.
func (j *JWTAuth) issuedForClient(raw *cognitoClaims) bool {
	switch raw.TokenUse {
	case "", TokenUseID, TokenUseAccess:
	default:
		return false
	}
	if j.clientID == "" {
		return true
	}
	return slices.Contains(raw.Audience, j.clientID) || raw.ClientID == j.clientID
}

func buildCaller(raw *cognitoClaims) *CallerClaims {
	username := raw.CognitoUsername
	if username == "" {
		username = raw.Username
	}
	return &CallerClaims{
		Subject:  raw.Subject,
		Email:    raw.Email,
		Username: username,
		TokenUse: raw.TokenUse,
	}
}

// --- Context helpers ---

// CallerFromContext извлекает CallerClaims из контекста запроса.
// Возвращает nil, если запрос не аутентифицирован.
func CallerFromContext(ctx context.Context) *CallerClaims {
	caller, _ := ctx.Value(ContextKeyCaller).(*CallerClaims)
	return caller
}

// WithCaller помещает CallerClaims в контекст.
func WithCaller(ctx context.Context, caller *CallerClaims) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// --- ReadinessChecker для JWKS ---

// JWKSReadinessChecker — проверка доступности JWKS endpoint user pool.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// CheckReady проверяет, что JWKS отвечает 200 и содержит ключи.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return statusDegraded, fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return statusDegraded, "JWKS: нет ключей"
	}

	return statusOK, fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
