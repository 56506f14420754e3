package main

import (
	"github.com/tariffdesk/stacking/questions"
	"github.com/tariffdesk/stacking/tariff"
)

// API request and response models

// QuestionsRequest asks for the clarifying questions needed to evaluate
// the detected tariffs for a shipment.
type QuestionsRequest struct {
	Tariffs []tariff.DetectedTariff `json:"tariffs"`
	Product tariff.ProductInfo      `json:"product_info"`
}

// QuestionsResponse returns the ordered question set.
type QuestionsResponse struct {
	Questions []questions.Question `json:"questions"`
}

// EvaluateRequest runs the full stacking analysis. Answers are keyed by
// question index as returned from the questions endpoint.
type EvaluateRequest struct {
	Tariffs []tariff.DetectedTariff `json:"tariffs"`
	Product tariff.ProductInfo      `json:"product_info"`
	Answers map[string]any          `json:"answers"`
}

// EvaluateResponse is the aggregate stacking result with a server-assigned
// analysis ID and the canonical-form fingerprint of the result.
type EvaluateResponse struct {
	AnalysisID    string                  `json:"analysis_id"`
	StackingOrder []tariff.StackingResult `json:"stacking_order"`
	TotalBefore   float64                 `json:"total_before"`
	TotalAfter    float64                 `json:"total_after"`
	Savings       float64                 `json:"savings"`
	Fingerprint   string                  `json:"fingerprint,omitempty"`
}

// ScreenRequest runs the simplified single-pass exemption screening.
type ScreenRequest struct {
	Tariffs []tariff.DetectedTariff `json:"tariffs"`
	Product tariff.ProductInfo      `json:"product_info"`
	Answers map[string]any          `json:"answers"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
