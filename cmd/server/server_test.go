package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/tariffdesk/stacking/questions"
	"github.com/tariffdesk/stacking/tariff"
)

// indexAnswers converts ID-keyed answers into the index-keyed form the API
// accepts, using the same question plan the server derives.
func indexAnswers(t *testing.T, tariffs []tariff.DetectedTariff, origin string, byID map[string]any) map[string]any {
	t.Helper()
	raw := make(map[string]any, len(byID))
	for _, q := range questions.Plan(tariffs, origin) {
		if v, ok := byID[q.ID]; ok {
			raw[strconv.Itoa(q.Index)] = v
		}
	}
	if len(raw) != len(byID) {
		t.Fatalf("Expected all %d answers to match a planned question, matched %d", len(byID), len(raw))
	}
	return raw
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer("builtin")
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return server
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", resp["status"])
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := postJSON(t, server, "/api/v1/questions", QuestionsRequest{
		Tariffs: []tariff.DetectedTariff{
			{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
		},
		Product: tariff.ProductInfo{OriginCountry: "DE", Value: 1000},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QuestionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Questions) == 0 {
		t.Fatal("Expected questions for a steel tariff, got none")
	}

	found := false
	for _, q := range resp.Questions {
		if q.ID == "steel_percentage" {
			found = true
		}
	}
	if !found {
		t.Error("Expected a steel_percentage question")
	}
}

func TestQuestionsEndpointValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		req  QuestionsRequest
	}{
		{
			name: "missing tariffs",
			req: QuestionsRequest{
				Product: tariff.ProductInfo{OriginCountry: "CN", Value: 1000},
			},
		},
		{
			name: "missing origin",
			req: QuestionsRequest{
				Tariffs: []tariff.DetectedTariff{
					{Category: tariff.Section301, Name: "Section 301", Rate: 0.25, Amount: 250},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, server, "/api/v1/questions", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := postJSON(t, server, "/api/v1/evaluate", EvaluateRequest{
		Tariffs: []tariff.DetectedTariff{
			{Category: tariff.IEEPAFentanyl, Code: "9903.01.24", Name: "IEEPA Fentanyl", Rate: 0.20, Amount: 200},
		},
		Product: tariff.ProductInfo{OriginCountry: "CN", Value: 1000},
		Answers: map[string]any{},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.AnalysisID == "" {
		t.Error("Expected an analysis ID")
	}
	if resp.Fingerprint == "" {
		t.Error("Expected a result fingerprint")
	}
	if len(resp.StackingOrder) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resp.StackingOrder))
	}
	if resp.StackingOrder[0].Verdict != tariff.VerdictApplies {
		t.Errorf("Expected fentanyl tariff to apply, got %s", resp.StackingOrder[0].Verdict)
	}
	if resp.TotalAfter != 200 {
		t.Errorf("Expected total after 200, got %.2f", resp.TotalAfter)
	}
}

func TestEvaluateEndpointDeterministic(t *testing.T) {
	server := newTestServer(t)

	tariffs := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel, Code: "9903.81.87", Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
		{Category: tariff.IEEPAReciprocal, Code: "9903.01.25", Name: "IEEPA Reciprocal", Rate: 0.10, Amount: 100},
	}
	req := EvaluateRequest{
		Tariffs: tariffs,
		Product: tariff.ProductInfo{OriginCountry: "BR", Value: 1000},
		Answers: indexAnswers(t, tariffs, "BR", map[string]any{
			tariff.AnsSteelPercentage:     "60",
			tariff.AnsSteelOriginCountry:  "BR",
			tariff.AnsUSContentPercentage: "0",
		}),
	}

	first := postJSON(t, server, "/api/v1/evaluate", req)
	second := postJSON(t, server, "/api/v1/evaluate", req)

	var a, b EvaluateResponse
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatalf("Failed to parse first response: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatalf("Failed to parse second response: %v", err)
	}

	if a.Fingerprint != b.Fingerprint {
		t.Errorf("Expected identical fingerprints, got %s and %s", a.Fingerprint, b.Fingerprint)
	}
	if a.AnalysisID == b.AnalysisID {
		t.Error("Expected distinct analysis IDs")
	}
}

func TestScreenEndpoint(t *testing.T) {
	server := newTestServer(t)

	tariffs := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel, Code: "9903.81.87", Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
	}
	w := postJSON(t, server, "/api/v1/screen", ScreenRequest{
		Tariffs: tariffs,
		Product: tariff.ProductInfo{OriginCountry: "CA", Value: 1000},
		Answers: indexAnswers(t, tariffs, "CA", map[string]any{
			tariff.AnsUSMCAQualified: "yes",
		}),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := resp["cbp_guidance"]; !ok {
		t.Error("Expected cbp_guidance in screening response")
	}
}

func TestListExemptionsEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exemptions/section_232_steel", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Category   string            `json:"category"`
		Exemptions []json.RawMessage `json:"exemptions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Category != "section_232_steel" {
		t.Errorf("Expected category section_232_steel, got %s", resp.Category)
	}
	if len(resp.Exemptions) == 0 {
		t.Error("Expected exemption rules for steel")
	}
}

func TestUnknownCatalogSource(t *testing.T) {
	if _, err := NewServer("redis"); err == nil {
		t.Fatal("Expected an error for an unknown catalog source")
	}
}
