//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL = "http://localhost:3000"
	defaultAPIKey  = "test-report-key"
)

var (
	baseURL string
	apiKey  string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiKey = os.Getenv("REPORT_API_KEY")
	if apiKey == "" {
		apiKey = defaultAPIKey
	}

	os.Exit(m.Run())
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func request(t *testing.T, method, path string, body interface{}, key string) (int, *envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s %s: %v\nbody: %s", method, path, err, raw)
	}
	return resp.StatusCode, &env
}

func decodeData(t *testing.T, env *envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
}

func TestExamFlow(t *testing.T) {
	var sessionID string

	t.Run("CreateSession", func(t *testing.T) {
		status, env := request(t, http.MethodPost, "/api/v1/sessions", nil, "")
		if status != http.StatusCreated {
			t.Fatalf("status = %d, want 201", status)
		}
		var data struct {
			SessionID string `json:"session_id"`
		}
		decodeData(t, env, &data)
		if data.SessionID == "" {
			t.Fatal("empty session id")
		}
		sessionID = data.SessionID
	})

	var questions []struct {
		ID      string `json:"id"`
		Options []struct {
			ID string `json:"id"`
		} `json:"options"`
	}

	t.Run("StartAttempt", func(t *testing.T) {
		status, env := request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/start",
			map[string]string{"candidate_name": "E2E Candidate"}, "")
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		var data struct {
			Questions json.RawMessage `json:"questions"`
			Remaining int             `json:"remaining_sec"`
		}
		decodeData(t, env, &data)
		if err := json.Unmarshal(data.Questions, &questions); err != nil {
			t.Fatalf("decode questions: %v", err)
		}
		if len(questions) == 0 {
			t.Fatal("no questions in paper")
		}
		if data.Remaining <= 0 {
			t.Errorf("remaining_sec = %d, want > 0", data.Remaining)
		}
		// The paper must not leak correctness flags.
		if bytes.Contains(data.Questions, []byte("is_correct")) {
			t.Error("question paper leaks correctness flags")
		}
	})

	t.Run("SaveAnswer", func(t *testing.T) {
		q := questions[0]
		status, _ := request(t, http.MethodPut, "/api/v1/sessions/"+sessionID+"/answers",
			map[string]interface{}{"question_id": q.ID, "option_ids": []string{q.Options[0].ID}}, "")
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
	})

	t.Run("AccountingEvents", func(t *testing.T) {
		for _, typ := range []string{"blur", "hidden", "visible"} {
			status, env := request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/events",
				map[string]string{"type": typ}, "")
			if status != http.StatusOK {
				t.Fatalf("event %s: status = %d, want 200", typ, status)
			}
			var ack struct {
				Acknowledged bool `json:"acknowledged"`
				ShouldFinish bool `json:"should_finish"`
			}
			decodeData(t, env, &ack)
			if !ack.Acknowledged {
				t.Errorf("event %s not acknowledged", typ)
			}
			if ack.ShouldFinish {
				t.Errorf("single leave cycle must not trigger the auto finish")
			}
		}
	})

	t.Run("SubmitTwiceIsIdempotent", func(t *testing.T) {
		body := map[string]interface{}{
			"candidate_name": "E2E Candidate",
			"finish_reason":  "manual",
			"tg":             map[string]interface{}{"id": 1000, "username": "e2e"},
		}
		status, env := request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/submit", body, "")
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		var first struct {
			Accepted bool `json:"accepted"`
			Score    int  `json:"score"`
			Total    int  `json:"total"`
		}
		decodeData(t, env, &first)
		if !first.Accepted {
			t.Fatal("submission not accepted")
		}
		if first.Total != len(questions) {
			t.Errorf("total = %d, want %d", first.Total, len(questions))
		}

		status, env = request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/submit", body, "")
		if status != http.StatusOK {
			t.Fatalf("repeat status = %d, want 200", status)
		}
		var second struct {
			Accepted bool `json:"accepted"`
		}
		decodeData(t, env, &second)
		if !second.Accepted {
			t.Error("repeat submission not accepted")
		}
	})

	t.Run("EventAfterFinishAcknowledged", func(t *testing.T) {
		status, env := request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/events",
			map[string]string{"type": "hidden"}, "")
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		var ack struct {
			Acknowledged bool `json:"acknowledged"`
			ShouldFinish bool `json:"should_finish"`
		}
		decodeData(t, env, &ack)
		if !ack.Acknowledged || !ack.ShouldFinish {
			t.Errorf("finished session ack = %+v, want acknowledged and should_finish", ack)
		}
	})
}

func TestAdminSurface(t *testing.T) {
	t.Run("RejectsMissingKey", func(t *testing.T) {
		status, _ := request(t, http.MethodGet, "/api/v1/admin/results", nil, "")
		if status != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", status)
		}
	})

	t.Run("ListResults", func(t *testing.T) {
		status, env := request(t, http.MethodGet, "/api/v1/admin/results", nil, apiKey)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		var data struct {
			Results []json.RawMessage `json:"results"`
			Count   int               `json:"count"`
		}
		decodeData(t, env, &data)
		if data.Count != len(data.Results) {
			t.Errorf("count = %d for %d rows", data.Count, len(data.Results))
		}
	})

	t.Run("ExportCSV", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/admin/results.csv", nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set("X-API-Key", apiKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
			t.Errorf("content type = %s", ct)
		}
		body, _ := io.ReadAll(resp.Body)
		if !bytes.HasPrefix(body, []byte("id,ts,date_iso,")) {
			t.Errorf("unexpected csv head: %s", firstLine(body))
		}
	})
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return string(b[:i])
	}
	return fmt.Sprintf("%.120s", b)
}
