package results

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edtrack/edtrack/internal/domain/orders"
)

func newTestHandler() (*Handler, *engine) {
	e := newEngine()
	return NewHandler(e.svc), e
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

const ingestBody = `{"external_system_id":"LAB-1","patient_mrn":"MRN-1001","test_type":"laboratory","test_name":"CBC","result":"WBC 7.2"}`

func TestIngestResultHandler(t *testing.T) {
	h, eng := newTestHandler()
	patientID := eng.patients.register("MRN-1001")
	order := eng.ledger.addOrder(patientID, orders.TestTypeLaboratory, "CBC", time.Now())

	rec, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", ingestBody, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Outcome.Status != StatusMatched {
		t.Errorf("expected matched, got %q", resp.Outcome.Status)
	}
	if resp.Outcome.OrderID == nil || *resp.Outcome.OrderID != order.ID {
		t.Error("expected completed order in outcome")
	}
	if !resp.Result.Imported {
		t.Error("expected imported result in response")
	}
}

func TestIngestResultHandler_NoMatchStillCreated(t *testing.T) {
	h, eng := newTestHandler()
	eng.patients.register("MRN-1001")

	rec, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", ingestBody, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp ingestResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Outcome.Status != StatusNoOpenOrder {
		t.Errorf("expected no-open-order, got %q", resp.Outcome.Status)
	}
	if resp.Result.Imported {
		t.Error("expected unimported result")
	}
}

func TestIngestResultHandler_Validation(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"external_system_id":"LAB-1","test_type":"laboratory"}`

	_, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", body, nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

// failingResultRepo simulates a backing store that is down.
type failingResultRepo struct {
	*mockResultRepo
	createErr error
}

func (f *failingResultRepo) Create(_ context.Context, _ *ExternalResult) error {
	return f.createErr
}

func TestIngestResultHandler_StoreFailure(t *testing.T) {
	eng := newEngine()
	repo := &failingResultRepo{mockResultRepo: eng.repo, createErr: errors.New("connection refused")}
	h := NewHandler(NewService(repo, eng.patients, eng.ledger))
	eng.patients.register("MRN-1001")

	// A persistence failure is the server's fault, not the sender's.
	_, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", ingestBody, nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestIngestResultHandler_Duplicate(t *testing.T) {
	h, eng := newTestHandler()
	eng.patients.register("MRN-1001")

	if _, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", ingestBody, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := doRequest(h.IngestResult, http.MethodPost, "/external-lab-api/results", ingestBody, nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestGetResultHandler_NotFound(t *testing.T) {
	h, _ := newTestHandler()
	id := uuid.New().String()

	_, err := doRequest(h.GetResult, http.MethodGet, "/api/v1/external-results/"+id, "", map[string]string{"id": id})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestListResultsHandler_UnimportedFilter(t *testing.T) {
	h, eng := newTestHandler()
	patientID := eng.patients.register("MRN-1001")
	eng.ledger.addOrder(patientID, orders.TestTypeLaboratory, "CBC", time.Now())

	// One matches and imports, one stays pending.
	eng.svc.Ingest(context.Background(), validResult("LAB-1", "MRN-1001"))
	eng.svc.Ingest(context.Background(), validResult("LAB-2", "MRN-9999"))

	rec, err := doRequest(h.ListResults, http.MethodGet, "/api/v1/external-results?imported=false", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []ExternalResult `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected 1 pending result, got %d", len(resp.Data))
	}
	if resp.Data[0].ExternalSystemID != "LAB-2" {
		t.Error("expected the unmatched delivery")
	}
}

func TestReconcileResultHandler(t *testing.T) {
	h, eng := newTestHandler()
	stored, outcome, err := eng.svc.Ingest(context.Background(), validResult("LAB-1", "MRN-1001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusNoPatient {
		t.Fatalf("expected no-patient, got %q", outcome.Status)
	}

	patientID := eng.patients.register("MRN-1001")
	order := eng.ledger.addOrder(patientID, orders.TestTypeLaboratory, "CBC", time.Now())

	id := stored.ID.String()
	rec, err := doRequest(h.ReconcileResult, http.MethodPost, "/api/v1/external-results/"+id+"/reconcile", "", map[string]string{"id": id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Outcome
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusMatched {
		t.Errorf("expected matched, got %q", got.Status)
	}
	if got.OrderID == nil || *got.OrderID != order.ID {
		t.Error("expected completed order in outcome")
	}
}

func TestImportResultHandler(t *testing.T) {
	h, eng := newTestHandler()
	patientID := eng.patients.register("MRN-1001")
	order := eng.ledger.addOrder(patientID, orders.TestTypeLaboratory, "Complete Blood Count", time.Now())
	stored, _, _ := eng.svc.Ingest(context.Background(), validResult("LAB-1", "MRN-1001"))

	id := stored.ID.String()
	body := `{"order_id":"` + order.ID.String() + `","imported_by":"Dr. Adams"}`
	rec, err := doRequest(h.ImportResult, http.MethodPost, "/api/v1/external-results/"+id+"/import", body, map[string]string{"id": id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got ExternalResult
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.Imported || got.OrderID == nil || *got.OrderID != order.ID {
		t.Error("expected imported result linked to the chosen order")
	}
}

func TestImportResultHandler_Conflict(t *testing.T) {
	h, eng := newTestHandler()
	patientID := eng.patients.register("MRN-1001")
	order := eng.ledger.addOrder(patientID, orders.TestTypeLaboratory, "CBC", time.Now())
	stored, _, _ := eng.svc.Ingest(context.Background(), validResult("LAB-1", "MRN-1001"))

	// Automatic reconciliation already imported it.
	id := stored.ID.String()
	body := `{"order_id":"` + order.ID.String() + `","imported_by":"Dr. Adams"}`
	_, err := doRequest(h.ImportResult, http.MethodPost, "/api/v1/external-results/"+id+"/import", body, map[string]string{"id": id})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}
