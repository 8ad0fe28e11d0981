package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/userdex/internal/repository/userstore"
	searchuc "github.com/kailas-cloud/userdex/internal/usecase/search"
	useruc "github.com/kailas-cloud/userdex/internal/usecase/user"
)

func newTestServer(t *testing.T) (http.Handler, *userstore.Store) {
	t.Helper()

	store, err := userstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	srv := NewServer(
		searchuc.New(store, logger),
		useruc.New(store, logger),
		store,
		logger,
	)

	r := chi.NewRouter()
	srv.Routes(r)
	return r, store
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rr.Body.String())
	}
	return rr, env
}

func createUser(t *testing.T, h http.Handler, name, email, role string) {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","role":"` + role + `"}`
	rr, env := doJSON(t, h, "POST", "/v1/users", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %s: status %d, EM %q", email, rr.Code, env.EM)
	}
}

type searchBody struct {
	Users []struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Email          string   `json:"email"`
		Role           string   `json:"role"`
		RelevanceScore *float64 `json:"relevanceScore"`
	} `json:"users"`
	Pagination pageDTO    `json:"pagination"`
	Filters    filtersDTO `json:"filters"`
}

func decodeSearchDT(t *testing.T, env envelope) searchBody {
	t.Helper()
	raw, err := json.Marshal(env.DT)
	if err != nil {
		t.Fatalf("remarshal DT: %v", err)
	}
	var dt searchBody
	if err := json.Unmarshal(raw, &dt); err != nil {
		t.Fatalf("decode DT: %v", err)
	}
	return dt
}

func TestSearchUsers_OK(t *testing.T) {
	h, _ := newTestServer(t)
	createUser(t, h, "Ann", "ann@example.com", "Admin")
	createUser(t, h, "Joanna", "joanna@example.com", "User")
	createUser(t, h, "Bob", "bob@example.com", "User")

	rr, env := doJSON(t, h, "GET", "/v1/users/search?keyword=ann", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if env.EC != ecOK || env.EM != "user search completed" {
		t.Errorf("envelope = EC %d, EM %q", env.EC, env.EM)
	}

	dt := decodeSearchDT(t, env)
	if len(dt.Users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(dt.Users))
	}
	// Exact name match ranks first and carries the higher score.
	if dt.Users[0].Name != "Ann" {
		t.Errorf("top hit = %q, want Ann", dt.Users[0].Name)
	}
	if dt.Users[0].RelevanceScore == nil || *dt.Users[0].RelevanceScore != 150 {
		t.Errorf("top score = %v, want 150", dt.Users[0].RelevanceScore)
	}
	if dt.Filters.Keyword == nil || *dt.Filters.Keyword != "ann" {
		t.Errorf("filters.keyword = %v", dt.Filters.Keyword)
	}
	if dt.Pagination.TotalItems != 2 || dt.Pagination.TotalPages != 1 {
		t.Errorf("pagination = %+v", dt.Pagination)
	}
}

func TestSearchUsers_NoKeywordOmitsScores(t *testing.T) {
	h, _ := newTestServer(t)
	createUser(t, h, "Ann", "ann@example.com", "")

	_, env := doJSON(t, h, "GET", "/v1/users/search", "")
	dt := decodeSearchDT(t, env)

	if len(dt.Users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(dt.Users))
	}
	if dt.Users[0].RelevanceScore != nil {
		t.Error("relevanceScore should be omitted without a keyword")
	}
	if dt.Filters.Keyword != nil {
		t.Errorf("filters.keyword = %v, want null", dt.Filters.Keyword)
	}
}

func TestSearchUsers_FilterEcho(t *testing.T) {
	h, _ := newTestServer(t)

	_, env := doJSON(t, h, "GET",
		"/v1/users/search?role=Admin&createdFrom=2024-01-01&createdTo=2024-02-01", "")
	dt := decodeSearchDT(t, env)

	if dt.Filters.Role == nil || *dt.Filters.Role != "Admin" {
		t.Errorf("filters.role = %v", dt.Filters.Role)
	}
	if dt.Filters.CreatedFrom == nil || *dt.Filters.CreatedFrom != "2024-01-01" {
		t.Errorf("filters.createdFrom = %v", dt.Filters.CreatedFrom)
	}
	if dt.Filters.CreatedTo == nil || *dt.Filters.CreatedTo != "2024-02-01" {
		t.Errorf("filters.createdTo = %v", dt.Filters.CreatedTo)
	}
}

func TestSearchUsers_EmptyResultKeepsUsersArray(t *testing.T) {
	h, _ := newTestServer(t)

	rr, env := doJSON(t, h, "GET", "/v1/users/search?keyword=nobody", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	dt := decodeSearchDT(t, env)
	if dt.Users == nil {
		t.Error("users must be an empty array, not null")
	}
	if dt.Pagination.TotalItems != 0 || dt.Pagination.TotalPages != 0 {
		t.Errorf("pagination = %+v", dt.Pagination)
	}
}

func TestSearchUsers_StoreFailure(t *testing.T) {
	h, store := newTestServer(t)
	store.Close()

	rr, env := doJSON(t, h, "GET", "/v1/users/search?page=3&limit=20", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if env.EC != ecInternal {
		t.Errorf("EC = %d, want %d", env.EC, ecInternal)
	}
	if env.EM != "an error occurred while searching users" {
		t.Errorf("EM = %q", env.EM)
	}

	dt := decodeSearchDT(t, env)
	if len(dt.Users) != 0 {
		t.Errorf("users = %v, want empty", dt.Users)
	}
	// The failure body still echoes the requested page and limit.
	if dt.Pagination.CurrentPage != 3 || dt.Pagination.ItemsPerPage != 20 {
		t.Errorf("pagination = %+v", dt.Pagination)
	}
}

func TestCreateUser(t *testing.T) {
	h, _ := newTestServer(t)

	rr, env := doJSON(t, h, "POST", "/v1/users",
		`{"name":"Ann","email":"Ann@Example.com","role":"Admin"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, EM %q", rr.Code, env.EM)
	}
	if env.EC != ecOK {
		t.Errorf("EC = %d", env.EC)
	}

	dt, ok := env.DT.(map[string]any)
	if !ok {
		t.Fatalf("DT = %T", env.DT)
	}
	if dt["email"] != "ann@example.com" {
		t.Errorf("email = %v, want lowercased", dt["email"])
	}
	if dt["role"] != "Admin" {
		t.Errorf("role = %v", dt["role"])
	}
	if dt["id"] == "" {
		t.Error("expected generated id")
	}
}

func TestCreateUser_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		em   string
	}{
		{"invalid json", `{not json`, "invalid request body"},
		{"missing fields", `{"name":"Ann"}`, "name and email are required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestServer(t)

			rr, env := doJSON(t, h, "POST", "/v1/users", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if env.EC != ecInput || env.EM != tc.em {
				t.Errorf("envelope = EC %d, EM %q", env.EC, env.EM)
			}
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	h, _ := newTestServer(t)
	createUser(t, h, "Ann", "ann@example.com", "")

	rr, env := doJSON(t, h, "POST", "/v1/users",
		`{"name":"Other","email":"ann@example.com"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.EM != "email already taken" {
		t.Errorf("EM = %q", env.EM)
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	h, _ := newTestServer(t)

	rr, env := doJSON(t, h, "POST", "/v1/users",
		`{"name":"Ann","email":"a@example.com","role":"Root"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.EC != ecInput {
		t.Errorf("EC = %d", env.EC)
	}
}

func TestDeleteUser(t *testing.T) {
	h, _ := newTestServer(t)
	createUser(t, h, "Ann", "ann@example.com", "")

	// Fetch the generated id via search.
	_, env := doJSON(t, h, "GET", "/v1/users/search", "")
	dt := decodeSearchDT(t, env)
	if len(dt.Users) != 1 {
		t.Fatalf("expected one user, got %d", len(dt.Users))
	}
	id := dt.Users[0].ID

	rr, env := doJSON(t, h, "DELETE", "/v1/users/"+id, "")
	if rr.Code != http.StatusOK || env.EC != ecOK {
		t.Fatalf("status = %d, EC = %d", rr.Code, env.EC)
	}

	rr, _ = doJSON(t, h, "DELETE", "/v1/users/"+id, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
}

func TestListUsers(t *testing.T) {
	h, _ := newTestServer(t)
	createUser(t, h, "Ann", "ann@example.com", "")
	createUser(t, h, "Bob", "bob@example.com", "")

	rr, env := doJSON(t, h, "GET", "/v1/users?page=1&limit=1", "")
	if rr.Code != http.StatusOK || env.EC != ecOK {
		t.Fatalf("status = %d, EC = %d", rr.Code, env.EC)
	}

	raw, _ := json.Marshal(env.DT)
	var dt struct {
		Users      []map[string]any `json:"users"`
		Pagination pageDTO          `json:"pagination"`
	}
	if err := json.Unmarshal(raw, &dt); err != nil {
		t.Fatalf("decode DT: %v", err)
	}
	if len(dt.Users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(dt.Users))
	}
	if dt.Pagination.TotalItems != 2 || dt.Pagination.TotalPages != 2 || !dt.Pagination.HasNextPage {
		t.Errorf("pagination = %+v", dt.Pagination)
	}
}

func TestHealthz(t *testing.T) {
	h, store := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	store.Close()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after close = %d, want 503", rr.Code)
	}
}
