package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Password accepted for every seeded account.
const Password = "Secret123!"

// Seeded identities. Ids are only unique per role.
const (
	EmployeeID int64 = 11
	HRID       int64 = 7
	AdminID    int64 = 1
	AgentID    int64 = 21
)

// FakeBackend is an in-process stand-in for the InsurAI REST API. Payloads use
// snake_case keys so responses pass through key normalisation.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	expired  bool
	claims   map[int64]map[string]any
	read     map[int64]bool
	calls    map[string]int
	decided  []string
	answered map[int64]string
}

// NewFakeBackend starts the fake server and stops it on test cleanup.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		claims: map[int64]map[string]any{
			101: claim(101, EmployeeID, HRID, "250000", "Pending", "2026-09-01"),
			102: claim(102, EmployeeID, HRID, "5000", "Pending", "2026-09-12"),
			103: claim(103, EmployeeID, HRID, "100000", "Approved", "2026-08-20"),
			104: claim(104, EmployeeID, 8, "9000", "Pending", "2026-09-15"),
		},
		read:     map[int64]bool{2: true},
		calls:    make(map[string]int),
		answered: map[int64]string{302: "Submit the discharge summary."},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", fb.login("employee"))
	mux.HandleFunc("POST /hr/login", fb.login("hr"))
	mux.HandleFunc("POST /admin/login", fb.login("admin"))
	mux.HandleFunc("POST /agent/login", fb.login("agent"))
	mux.HandleFunc("POST /auth/register", fb.text("Registration successful"))
	mux.HandleFunc("POST /auth/forgot-password", fb.text("Password reset link sent"))
	mux.HandleFunc("POST /auth/reset-password/{token}", fb.text("Password updated"))

	mux.HandleFunc("GET /employee/policies", fb.authed(fb.policies))
	mux.HandleFunc("GET /employee/claims", fb.authed(fb.employeeClaims))
	mux.HandleFunc("POST /employee/claims", fb.authed(fb.saveClaim))
	mux.HandleFunc("POST /employee/claims/update", fb.authed(fb.saveClaim))
	mux.HandleFunc("GET /employee/queries", fb.authed(fb.queries))
	mux.HandleFunc("POST /employee/queries", fb.authed(fb.askQuery))
	mux.HandleFunc("GET /agent/availability/all", fb.authed(fb.availability))

	mux.HandleFunc("GET /hr/claims", fb.authed(fb.hrClaims))
	mux.HandleFunc("POST /hr/claims/approve/{id}", fb.authed(fb.decide("Approved")))
	mux.HandleFunc("POST /hr/claims/reject/{id}", fb.authed(fb.decide("Rejected")))
	mux.HandleFunc("GET /hr/claims/fraud", fb.authed(fb.fraudAlerts))
	mux.HandleFunc("GET /hr", fb.authed(fb.hrUsers))
	mux.HandleFunc("GET /auth/employees", fb.authed(fb.employees))

	mux.HandleFunc("GET /agent/queries", fb.authed(fb.queries))
	mux.HandleFunc("PUT /agent/queries/{id}/respond", fb.authed(fb.respond))

	mux.HandleFunc("GET /notifications/user/{id}", fb.authed(fb.notifications))
	mux.HandleFunc("GET /notifications/user/{id}/unread", fb.authed(fb.unreadNotifications))
	mux.HandleFunc("PUT /notifications/{id}/read", fb.authed(fb.markRead))

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Expire makes every authenticated endpoint answer 401 from now on.
func (fb *FakeBackend) Expire() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.expired = true
}

// Calls reports how often the named route was served.
func (fb *FakeBackend) Calls(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[route]
}

// Decisions lists the approve/reject calls received as "Status:id".
func (fb *FakeBackend) Decisions() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.decided...)
}

// IsRead reports whether a notification was acknowledged.
func (fb *FakeBackend) IsRead(id int64) bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.read[id]
}

func (fb *FakeBackend) count(r *http.Request) {
	fb.mu.Lock()
	fb.calls[r.Pattern]++
	fb.mu.Unlock()
}

func (fb *FakeBackend) login(role string) http.HandlerFunc {
	identities := map[string]map[string]any{
		"employee": {"id": EmployeeID, "employee_id": strconv.FormatInt(EmployeeID, 10), "name": "Asha Rao", "role": "EMPLOYEE"},
		"hr":       {"id": HRID, "name": "Meera Iyer", "role": "HR"},
		"admin":    {"id": AdminID, "name": "Root Admin", "role": "ADMIN"},
		"agent":    {"id": 99, "agent_id": AgentID, "name": "Ravi Kumar", "role": "AGENT"},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		fb.count(r)
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != Password {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		body := map[string]any{"token": "backend-" + role, "email": creds.Email}
		for k, v := range identities[role] {
			body[k] = v
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (fb *FakeBackend) text(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.count(r)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(message))
	}
}

func (fb *FakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.count(r)
		fb.mu.Lock()
		expired := fb.expired
		fb.mu.Unlock()
		if expired || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer backend-") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
			return
		}
		next(w, r)
	}
}

func (fb *FakeBackend) policies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{{
		"id":              1,
		"name":            "Health Plus",
		"provider":        "Acme Mutual",
		"coverage_amount": "500000",
		"monthly_premium": "1200.50",
		"renewal_date":    "2027-01-01",
		"status":          "Active",
		"policy_type":     "Health",
		"benefits":        []string{"OPD", "Hospitalisation"},
	}})
}

func (fb *FakeBackend) employeeClaims(w http.ResponseWriter, r *http.Request) {
	employeeID, _ := strconv.ParseInt(r.URL.Query().Get("employeeId"), 10, 64)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]map[string]any, 0, len(fb.claims))
	for _, id := range sortedIDs(fb.claims) {
		if c := fb.claims[id]; c["employee_id"] == employeeID {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) hrClaims(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]map[string]any, 0, len(fb.claims))
	for _, id := range sortedIDs(fb.claims) {
		out = append(out, fb.claims[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) saveClaim(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad claim"})
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	id := int64(500 + len(fb.claims))
	if raw, ok := payload["id"].(float64); ok && raw != 0 {
		id = int64(raw)
	}
	stored := claim(id, EmployeeID, HRID, payload["amount"], "Pending", payload["claimDate"])
	stored["title"] = payload["title"]
	stored["type"] = payload["claimType"]
	stored["description"] = payload["description"]
	stored["policy_id"] = payload["policyId"]
	fb.claims[id] = stored
	writeJSON(w, http.StatusOK, stored)
}

func (fb *FakeBackend) decide(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var body struct {
			Remarks string `json:"remarks"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.decided = append(fb.decided, status+":"+strconv.FormatInt(id, 10))
		c, ok := fb.claims[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "claim not found"})
			return
		}
		c["status"] = status
		c["remarks"] = body.Remarks
		if status == "Approved" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("Claim approved"))
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (fb *FakeBackend) queries(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 301, "employee_id": EmployeeID, "agent_id": AgentID, "query_text": "How do I add a dependant?", "response": fb.answered[301], "created_at": "2026-10-01T09:00:00"},
		{"id": 302, "employee_id": EmployeeID, "agent_id": AgentID, "query_text": "Which documents are needed?", "response": fb.answered[302], "created_at": "2026-09-28T12:30:00"},
	})
}

func (fb *FakeBackend) askQuery(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          303,
		"employee_id": payload["employeeId"],
		"agent_id":    payload["agentId"],
		"query_text":  payload["queryText"],
		"created_at":  "2026-10-15T08:00:00",
	})
}

func (fb *FakeBackend) respond(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var body struct {
		Response string `json:"response"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	fb.mu.Lock()
	fb.answered[id] = body.Response
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "employee_id": EmployeeID, "agent_id": AgentID, "response": body.Response})
}

func (fb *FakeBackend) availability(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"agent_id": AgentID, "agent_name": "Ravi Kumar", "available": true},
		{"agent_id": 22, "agent_name": "Nina Das", "available": false},
	})
}

func (fb *FakeBackend) fraudAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 401, "claim_id": 101, "employee_id": EmployeeID, "title": "Surgery", "amount": "250000", "policy_name": "Health Plus", "claim_date": "2026-09-01", "status": "Pending", "fraud_flag": true, "fraud_reason": "duplicate invoice; high amount"},
		{"id": 402, "claim_id": 103, "employee_id": EmployeeID, "title": "Dental", "amount": "100000", "policy_name": "Health Plus", "claim_date": "2026-08-20", "status": "Resolved", "fraud_flag": false},
	})
}

func (fb *FakeBackend) employees(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": EmployeeID, "employee_id": "11", "name": "Asha Rao", "email": "asha@insurai.test", "department": "Finance"},
	})
}

func (fb *FakeBackend) hrUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": HRID, "name": "Meera Iyer", "email": "meera@insurai.test"},
	})
}

func (fb *FakeBackend) notifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "user_id": userID, "title": "Claim submitted", "message": "Claim 102 is pending review", "read_status": fb.read[1], "created_at": "2026-10-02T10:00:00"},
		{"id": 2, "user_id": userID, "title": "Welcome", "message": "Your account is ready", "read_status": fb.read[2], "created_at": "2026-09-01T10:00:00"},
		{"id": 3, "user_id": userID, "title": "Query answered", "message": "An agent replied", "read_status": fb.read[3], "created_at": "2026-10-03T10:00:00"},
	})
}

func (fb *FakeBackend) unreadNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	items := []map[string]any{}
	for _, id := range []int64{1, 2, 3} {
		if !fb.read[id] {
			items = append(items, map[string]any{"id": id, "user_id": userID, "is_read": false})
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (fb *FakeBackend) markRead(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if id > 3 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "notification not found"})
		return
	}
	fb.mu.Lock()
	fb.read[id] = true
	fb.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func claim(id, employeeID, hrID int64, amount any, status string, date any) map[string]any {
	return map[string]any{
		"id":             id,
		"employee_id":    employeeID,
		"policy_id":      int64(1),
		"title":          "Claim " + strconv.FormatInt(id, 10),
		"type":           "Medical",
		"amount":         amount,
		"description":    "Hospital bill",
		"claim_date":     date,
		"status":         status,
		"assigned_hr_id": hrID,
	}
}

func sortedIDs(m map[int64]map[string]any) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
