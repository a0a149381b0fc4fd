package model

import (
	"slices"
	"time"
)

// Requirement — требование каталога EU AI Act.
// Хранится в таблице compliance_requirements, изменяется только сидированием.
type Requirement struct {
	// ID — UUID требования
	ID string
	// Article — ссылка на статью (например, "Article 9.2"), уникальна в каталоге
	Article string
	// Title — краткое название
	Title string
	// Description — полный текст обязательства
	Description string
	// AppliesTo — категории риска, к которым применяется требование (непустое множество)
	AppliesTo []RiskCategory
}

// AppliesToCategory сообщает, применяется ли требование к категории риска.
func (r *Requirement) AppliesToCategory(c RiskCategory) bool {
	return slices.Contains(r.AppliesTo, c)
}

// RequirementMapping — экземпляр требования для конкретной системы со статусом выполнения.
// Хранится в таблице requirement_mappings, пара (AISystemID, RequirementID) уникальна.
type RequirementMapping struct {
	ID            string
	AISystemID    string
	RequirementID string
	Status        ComplianceStatus
	// Notes — заметки аудитора, сохраняются между обновлениями, если не переданы новые
	Notes *string
	// UpdatedBy — кто последним менял статус
	UpdatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MappingDetail — назначение требования вместе с данными самого требования.
type MappingDetail struct {
	RequirementMapping
	Requirement Requirement
}

// StatusUpdate — изменение статуса назначения. Notes и UpdatedBy
// перезаписываются только если заданы; DefaultUpdatedBy записывается,
// лишь когда UpdatedBy не задан и у назначения ещё нет автора изменений.
type StatusUpdate struct {
	Status           ComplianceStatus
	Notes            *string
	UpdatedBy        *string
	DefaultUpdatedBy *string
}

// StatusTransition — результат обновления статуса: новое состояние и предыдущий статус.
type StatusTransition struct {
	Mapping          RequirementMapping
	PreviousStatus   ComplianceStatus
	RequirementTitle string
}

// ComplianceSummary — сводка соответствия системы.
type ComplianceSummary struct {
	SystemID string
	// Total — общее количество назначенных требований
	Total int
	// Percentage — доля completed в процентах, округлённая до сотых (half-up)
	Percentage float64
	// Breakdown — количество назначений по статусам; пусто при Total == 0,
	// иначе содержит все четыре статуса
	Breakdown map[ComplianceStatus]int
}
