// Пакет catalog — статический каталог требований EU AI Act
// (Articles 9-15 для систем высокого риска, Article 52 для ограниченного риска).
// Используется только при начальном сидировании таблицы compliance_requirements.
package catalog

import "github.com/Hexidus/watchgraph/internal/domain/model"

// Seed возвращает копию каталога требований в порядке статей.
// ID не заполняются — их выдаёт репозиторий при вставке.
func Seed() []model.Requirement {
	out := make([]model.Requirement, len(euAIAct))
	for i, r := range euAIAct {
		r.AppliesTo = append([]model.RiskCategory(nil), r.AppliesTo...)
		out[i] = r
	}
	return out
}

var euAIAct = []model.Requirement{
	{
		Article:     "Article 9",
		Title:       "Risk Management System",
		Description: "High-risk AI systems shall be designed and developed with a risk management system that is iterative throughout the entire lifecycle, regularly reviewed and updated.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 9.2",
		Title:       "Risk Management - Identification and Analysis",
		Description: "The risk management system shall identify and analyze known and foreseeable risks associated with each high-risk AI system.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 9.3",
		Title:       "Risk Management - Mitigation Measures",
		Description: "Implement appropriate risk mitigation measures to address risks identified in the risk management process.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 10.1",
		Title:       "Training, Validation and Testing Data Quality",
		Description: "Training, validation and testing data sets shall be subject to appropriate data governance and management practices, including examination for possible biases.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 10.2",
		Title:       "Data Relevance and Representativeness",
		Description: "Training, validation and testing data sets shall be relevant, representative, free of errors and complete.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 10.3",
		Title:       "Data Set Properties Documentation",
		Description: "Data sets shall have appropriate statistical properties with regard to the intended purpose, including as regards the persons or groups on whom the system is intended to be used.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 10.5",
		Title:       "Personal Data Processing",
		Description: "To the extent personal data is processed, measures shall be taken to ensure an appropriate level of quality in accordance with GDPR requirements.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 11.1",
		Title:       "Technical Documentation Preparation",
		Description: "Technical documentation of the high-risk AI system shall be drawn up before the system is placed on the market or put into service and kept up-to-date.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 11.2",
		Title:       "System Description and Specifications",
		Description: "Documentation shall include a general description of the AI system, its intended purpose, and detailed specifications of the system elements.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 11.3",
		Title:       "Development Process Documentation",
		Description: "Document the design and development process, including information about the programming and training methodologies and techniques used.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 12.1",
		Title:       "Automatic Logging Capability",
		Description: "High-risk AI systems shall be designed with capabilities enabling automatic logging of events over the system's lifetime.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 12.2",
		Title:       "Log Traceability and Analysis",
		Description: "Logging capabilities shall ensure a level of traceability appropriate to the intended purpose of the system, enabling post-market monitoring and investigation.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 12.3",
		Title:       "Log Data Protection",
		Description: "Logging shall be designed to ensure the integrity and confidentiality of the logged information, with appropriate safeguards against tampering.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 13.1",
		Title:       "User Instructions and Information",
		Description: "High-risk AI systems shall be designed to operate with appropriate transparency, enabling users to interpret the system's output and use it appropriately.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 13.2",
		Title:       "Instructions for Use",
		Description: "Provide clear and comprehensive instructions for use, including information about the system's capabilities and limitations.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 13.3",
		Title:       "Transparency Obligations",
		Description: "Users shall be informed that they are interacting with an AI system, unless this is obvious from the circumstances.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh, model.RiskLimited},
	},
	{
		Article:     "Article 14.1",
		Title:       "Human Oversight Measures",
		Description: "High-risk AI systems shall be designed with appropriate human oversight measures, including human-in-the-loop, human-on-the-loop, or human-in-command approaches.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 14.2",
		Title:       "Override Capability",
		Description: "The oversight measures shall ensure that users can intervene in the AI system's operation or interrupt it through a stop button or similar procedure.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 14.3",
		Title:       "Human Understanding of System",
		Description: "Ensure that individuals assigned to human oversight have the necessary competence, training and authority to carry out their role.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 15.1",
		Title:       "Accuracy Requirements",
		Description: "High-risk AI systems shall achieve appropriate levels of accuracy, robustness and cybersecurity, and perform consistently throughout their lifecycle.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 15.2",
		Title:       "Robustness Against Errors",
		Description: "Systems shall be resilient against errors, faults or inconsistencies that may occur within the system or the environment.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 15.3",
		Title:       "Cybersecurity Measures",
		Description: "Technical and organizational measures shall be taken to ensure the cybersecurity of the AI system, including protection against unauthorized access.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 15.4",
		Title:       "Resilience to Attacks",
		Description: "Systems shall be resilient against attempts by unauthorized third parties to alter their use, outputs or performance.",
		AppliesTo:   []model.RiskCategory{model.RiskHigh},
	},
	{
		Article:     "Article 52.1",
		Title:       "AI System Disclosure",
		Description: "Users must be informed when they are interacting with an AI system, unless this is obvious from the context.",
		AppliesTo:   []model.RiskCategory{model.RiskLimited},
	},
	{
		Article:     "Article 52.3",
		Title:       "Synthetic Content Labeling",
		Description: "AI-generated content (deepfakes, synthetic media) must be clearly labeled as artificially generated or manipulated.",
		AppliesTo:   []model.RiskCategory{model.RiskLimited},
	},
}
