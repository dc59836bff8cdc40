package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bankops/retail-analytics/pkg/logger"
	"github.com/bankops/retail-analytics/pkg/models"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

func TestWriteError(t *testing.T) {
	s := &Server{}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no data", models.ErrNoData, http.StatusNotFound, "no_data"},
		{"wrapped no data", errors.Join(errors.New("load failed"), models.ErrNoData), http.StatusNotFound, "no_data"},
		{"insufficient data", &models.InsufficientDataError{Rows: 2, Min: 3}, http.StatusUnprocessableEntity, "insufficient_data"},
		{"artifact missing", models.ErrArtifactMissing, http.StatusServiceUnavailable, "artifact_missing"},
		{"schema mismatch", &models.FeatureSchemaError{Missing: []string{"income"}}, http.StatusInternalServerError, "feature_schema_mismatch"},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, "segmentation", c.err)

			if rec.Code != c.status {
				t.Errorf("Expected status %d, got %d", c.status, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Code != c.code {
				t.Errorf("Expected code %q, got %q", c.code, body.Code)
			}
		})
	}

	t.Run("unexpected errors never leak internals", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.writeError(rec, "loan_risk", errors.New("pq: password authentication failed for user admin"))

		body := decodeError(t, rec)
		if body.Error != "internal error" {
			t.Errorf("Internal detail leaked: %q", body.Error)
		}
	})
}

func TestHandleSegmentation_BadK(t *testing.T) {
	s := &Server{}

	for _, raw := range []string{"abc", "0", "-2", "1.5"} {
		t.Run(raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/segmentation?k="+raw, nil)
			rec := httptest.NewRecorder()
			s.handleSegmentation(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for k=%q, got %d", raw, rec.Code)
			}
			if body := decodeError(t, rec); body.Code != "bad_request" {
				t.Errorf("Expected bad_request code, got %q", body.Code)
			}
		})
	}
}
