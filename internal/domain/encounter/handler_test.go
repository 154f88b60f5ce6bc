package encounter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *Service) {
	svc, _ := newTestService()
	return NewHandler(svc), svc
}

func doRequest(h echo.HandlerFunc, method, target, body string, params map[string]string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	return rec, h(c)
}

func TestRecordTriageHandler(t *testing.T) {
	h, _ := newTestHandler()
	pid := uuid.New().String()
	body := `{"category":"red","reason":"unresponsive","vital_signs":{"gcs":6},"triaged_by":"Nurse Kim"}`

	rec, err := doRequest(h.RecordTriage, http.MethodPost, "/api/v1/patients/"+pid+"/triage", body, map[string]string{"id": pid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var got Triage
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Category != CategoryRed {
		t.Errorf("expected red category, got %q", got.Category)
	}
}

func TestRecordTriageHandler_Conflict(t *testing.T) {
	h, _ := newTestHandler()
	pid := uuid.New().String()
	body := `{"category":"green","reason":"minor laceration","triaged_by":"Nurse Kim"}`

	if _, err := doRequest(h.RecordTriage, http.MethodPost, "/api/v1/patients/"+pid+"/triage", body, map[string]string{"id": pid}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := doRequest(h.RecordTriage, http.MethodPost, "/api/v1/patients/"+pid+"/triage", body, map[string]string{"id": pid})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestAmendAssessmentHandler(t *testing.T) {
	h, svc := newTestHandler()
	patientID := uuid.New()
	svc.RecordAssessment(context.Background(), validAssessment(patientID))

	pid := patientID.String()
	body := `{"chief_complaint":"worsening pain","vital_signs":{"hr":110},"assessed_by":"Nurse Kim"}`
	rec, err := doRequest(h.AmendAssessment, http.MethodPut, "/api/v1/patients/"+pid+"/assessment", body, map[string]string{"id": pid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Assessment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ChiefComplaint != "worsening pain" {
		t.Error("expected amended chief complaint")
	}
}

func TestDispenseHandler_Conflict(t *testing.T) {
	h, svc := newTestHandler()
	p := &Prescription{
		PatientID:      uuid.New(),
		MedicationName: "aspirin",
		Dosage:         "300mg",
		Route:          "oral",
		Frequency:      "once",
		PrescribedBy:   "Dr. Adams",
	}
	svc.Prescribe(context.Background(), p)
	svc.Dispense(context.Background(), p.ID, "Pharm. Lee")

	id := p.ID.String()
	body := `{"dispensed_by":"Pharm. Cho"}`
	_, err := doRequest(h.Dispense, http.MethodPost, "/api/v1/prescriptions/"+id+"/dispense", body, map[string]string{"id": id})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestRecordDispositionHandler(t *testing.T) {
	h, _ := newTestHandler()
	pid := uuid.New().String()
	body := `{"disposition_type":"inpatient","destination_ward":"cardiology","bed_number":"C-12","authorized_by":"Dr. Adams"}`

	rec, err := doRequest(h.RecordDisposition, http.MethodPost, "/api/v1/patients/"+pid+"/disposition", body, map[string]string{"id": pid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var got Disposition
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Type != DispositionInpatient {
		t.Errorf("expected inpatient type, got %q", got.Type)
	}
	if got.DestinationWard == nil || *got.DestinationWard != "cardiology" {
		t.Error("expected destination ward")
	}
}

func TestCompleteDispositionHandler_NotFound(t *testing.T) {
	h, _ := newTestHandler()
	pid := uuid.New().String()

	_, err := doRequest(h.CompleteDisposition, http.MethodPost, "/api/v1/patients/"+pid+"/disposition/complete", "", map[string]string{"id": pid})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
