package domain

// Fixed taxonomy offered to the classifier.
var (
	Categories = []string{
		"Safety", "BIM/Digital Twin", "Cost Estimation", "Scheduling",
		"Quality Control", "Monitoring", "Design", "Maintenance",
		"Resource Management", "Risk Assessment", "Other",
	}

	CivilEngineeringAreas = []string{
		"Structural", "Geotechnical", "Transportation", "Construction Management",
		"Hydraulic/Water", "Environmental", "Materials", "Surveying/GIS", "General",
	}

	AITechniques = []string{
		"Computer Vision", "Machine Learning", "Deep Learning", "NLP",
		"Reinforcement Learning", "Generative AI", "Predictive Analytics",
		"Robotics/Automation", "Other",
	}

	ApplicationStages = []string{
		"Planning", "Design", "Construction", "Operation", "Maintenance", "Multiple",
	}
)

// Classification is the classifier verdict for one article.
type Classification struct {
	IsRelevant           bool     `json:"is_relevant"`
	RejectionReason      string   `json:"rejection_reason"`
	Category             string   `json:"category"`
	CivilEngineeringArea string   `json:"civil_engineering_area"`
	AITechnique          string   `json:"ai_technique"`
	ApplicationStage     string   `json:"application_stage"`
	Keywords             []string `json:"keywords"`
	Summary              string   `json:"summary"`
	ProcessedAt          string   `json:"processed_at"`
}

// Rejected builds a non-relevant verdict carrying only a reason.
func Rejected(reason, processedAt string) Classification {
	return Classification{
		IsRelevant:      false,
		RejectionReason: reason,
		ProcessedAt:     processedAt,
	}
}

// ClassifiedArticle is an accepted article merged with its classification.
type ClassifiedArticle struct {
	Article        Article
	Classification Classification
}

// Rejection records why an article was not accepted.
type Rejection struct {
	ID          string
	Title       string
	Reason      string
	ProcessedAt string
}
