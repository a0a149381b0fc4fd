// status.go — перечисления предметной области: категория риска,
// статус соответствия требованию, статус актуальности evidence.
package model

// RiskCategory — категория риска AI-системы по EU AI Act (Article 6).
type RiskCategory string

const (
	RiskUnacceptable RiskCategory = "unacceptable"
	RiskHigh         RiskCategory = "high"
	RiskLimited      RiskCategory = "limited"
	RiskMinimal      RiskCategory = "minimal"
)

// RiskCategories — все категории риска в порядке убывания строгости.
var RiskCategories = []RiskCategory{RiskUnacceptable, RiskHigh, RiskLimited, RiskMinimal}

// Valid сообщает, является ли значение допустимой категорией.
func (r RiskCategory) Valid() bool {
	switch r {
	case RiskUnacceptable, RiskHigh, RiskLimited, RiskMinimal:
		return true
	}
	return false
}

// ComplianceStatus — статус выполнения требования для конкретной системы.
// Переходы не ограничены: любой статус достижим из любого.
type ComplianceStatus string

const (
	StatusNotStarted   ComplianceStatus = "not_started"
	StatusInProgress   ComplianceStatus = "in_progress"
	StatusCompleted    ComplianceStatus = "completed"
	StatusNonCompliant ComplianceStatus = "non_compliant"
)

// ComplianceStatuses — все статусы соответствия.
var ComplianceStatuses = []ComplianceStatus{
	StatusNotStarted, StatusInProgress, StatusCompleted, StatusNonCompliant,
}

// Valid сообщает, является ли значение допустимым статусом.
func (s ComplianceStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusNonCompliant:
		return true
	}
	return false
}

// EvidenceStatus — статус актуальности evidence. Меняется только явным запросом,
// дата истечения носит справочный характер.
type EvidenceStatus string

const (
	EvidenceCurrent      EvidenceStatus = "current"
	EvidenceExpiringSoon EvidenceStatus = "expiring_soon"
	EvidenceExpired      EvidenceStatus = "expired"
	EvidenceArchived     EvidenceStatus = "archived"
)

// EvidenceStatuses — все статусы evidence.
var EvidenceStatuses = []EvidenceStatus{
	EvidenceCurrent, EvidenceExpiringSoon, EvidenceExpired, EvidenceArchived,
}

// Valid сообщает, является ли значение допустимым статусом evidence.
func (s EvidenceStatus) Valid() bool {
	switch s {
	case EvidenceCurrent, EvidenceExpiringSoon, EvidenceExpired, EvidenceArchived:
		return true
	}
	return false
}
