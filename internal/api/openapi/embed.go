// Пакет openapi — встроенный OpenAPI 3 контракт WatchGraph API.
// Документ загружается и валидируется при старте и раздаётся по /api/docs/openapi.json.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// Raw возвращает исходный YAML документа.
func Raw() []byte {
	return document
}

// Load разбирает встроенный документ и проверяет его на соответствие OpenAPI 3.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI документа: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI документа: %w", err)
	}
	return doc, nil
}
