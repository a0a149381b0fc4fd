package openapi

import (
	"context"
	"testing"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	paths := []string{
		"/api/systems",
		"/api/systems/{id}",
		"/api/systems/{id}/requirements",
		"/api/systems/{id}/compliance",
		"/api/systems/{id}/evidence",
		"/api/requirements",
		"/api/requirements/{mappingId}",
		"/api/requirements/{mappingId}/evidence",
		"/api/requirements/{mappingId}/evidence/stats",
		"/api/evidence/{id}",
		"/api/evidence/{id}/download",
	}
	for _, p := range paths {
		if doc.Paths.Find(p) == nil {
			t.Errorf("путь %s отсутствует в документе", p)
		}
	}
}
