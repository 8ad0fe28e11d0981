package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/userdex/internal/domain"
	"github.com/kailas-cloud/userdex/internal/domain/search/page"
	"github.com/kailas-cloud/userdex/internal/domain/search/query"
	"github.com/kailas-cloud/userdex/internal/domain/search/result"
	domuser "github.com/kailas-cloud/userdex/internal/domain/user"
	searchuc "github.com/kailas-cloud/userdex/internal/usecase/search"
	useruc "github.com/kailas-cloud/userdex/internal/usecase/user"
)

// Envelope codes: 0 success, >0 caller-input failure, -1 internal failure.
const (
	ecOK       = 0
	ecInput    = 1
	ecInternal = -1
)

// Pinger reports primary store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the user search API over HTTP.
type Server struct {
	search       *searchuc.Service
	users        *useruc.Service
	store        Pinger
	logger       *zap.Logger
	defaultLimit int
	maxLimit     int
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	users *useruc.Service,
	store Pinger,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:       search,
		users:        users,
		store:        store,
		logger:       logger,
		defaultLimit: query.DefaultLimit,
		maxLimit:     query.MaxLimit,
	}
}

// WithPageSizes overrides the pagination policy applied while parsing.
func (s *Server) WithPageSizes(defaultLimit, maxLimit int) *Server {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Delete("/{id}", s.deleteUser)
		r.Get("/search", s.searchUsers)
	})
}

// searchUsers handles GET /v1/users/search.
func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := query.ParseWithLimits(r.URL.Query(), s.defaultLimit, s.maxLimit)

	res, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("user search failed", zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, ecInternal,
			"an error occurred while searching users", emptySearchDT(q))
		return
	}

	writeEnvelope(w, http.StatusOK, ecOK, "user search completed", searchDTFromResult(res))
}

// listUsers handles GET /v1/users.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, info, err := s.users.List(r.Context(), pageNum, limit)
	if err != nil {
		s.logger.Error("user list failed", zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, ecInternal,
			"an error occurred while listing users", nil)
		return
	}

	writeEnvelope(w, http.StatusOK, ecOK, "user list retrieved", listDT{
		Users:      plainUserDTOs(users),
		Pagination: paginationDTO(info),
	})
}

// createUser handles POST /v1/users.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, ecInput, "invalid request body", nil)
		return
	}
	if req.Name == "" || req.Email == "" {
		writeEnvelope(w, http.StatusBadRequest, ecInput, "name and email are required", nil)
		return
	}

	u, err := s.users.Create(r.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		s.handleUserError(w, err, "an error occurred while creating the user")
		return
	}

	writeEnvelope(w, http.StatusCreated, ecOK, "user created", plainUserDTO(u))
}

// deleteUser handles DELETE /v1/users/{id}.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.handleUserError(w, err, "an error occurred while deleting the user")
		return
	}

	writeEnvelope(w, http.StatusOK, ecOK, "user deleted", nil)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUserError(w http.ResponseWriter, err error, internalMsg string) {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		writeEnvelope(w, http.StatusBadRequest, ecInput, "email already taken", nil)
	case errors.Is(err, domain.ErrInvalidArgument):
		writeEnvelope(w, http.StatusBadRequest, ecInput, err.Error(), nil)
	case errors.Is(err, domain.ErrUserNotFound):
		writeEnvelope(w, http.StatusNotFound, ecInput, "user not found", nil)
	default:
		s.logger.Error(internalMsg, zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, ecInternal, internalMsg, nil)
	}
}

// --- Response shaping ---

type envelope struct {
	EC int    `json:"EC"`
	EM string `json:"EM"`
	DT any    `json:"DT"`
}

type userDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Role           string   `json:"role"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	RelevanceScore *float64 `json:"relevanceScore,omitempty"`
}

type pageDTO struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

type filtersDTO struct {
	Keyword     *string `json:"keyword"`
	Role        *string `json:"role"`
	CreatedFrom *string `json:"createdFrom"`
	CreatedTo   *string `json:"createdTo"`
}

type searchDT struct {
	Users      []userDTO  `json:"users"`
	Pagination pageDTO    `json:"pagination"`
	Filters    filtersDTO `json:"filters"`
}

type listDT struct {
	Users      []userDTO `json:"users"`
	Pagination pageDTO   `json:"pagination"`
}

func searchDTFromResult(res result.Result) searchDT {
	users := make([]userDTO, len(res.Users))
	for i, rec := range res.Users {
		users[i] = plainUserDTO(rec.User)
		if rec.Scored {
			score := rec.Score
			users[i].RelevanceScore = &score
		}
	}
	return searchDT{
		Users:      users,
		Pagination: paginationDTO(res.Pagination),
		Filters:    filtersFromResult(res.Filters),
	}
}

// emptySearchDT is the body returned when search fails outright: no users,
// zeroed pagination that still echoes the requested page and limit.
func emptySearchDT(q query.Query) searchDT {
	return searchDT{
		Users: []userDTO{},
		Pagination: pageDTO{
			CurrentPage:  q.Page(),
			ItemsPerPage: q.Limit(),
		},
		Filters: filtersDTO{},
	}
}

func plainUserDTO(u domuser.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func plainUserDTOs(users []domuser.User) []userDTO {
	out := make([]userDTO, len(users))
	for i, u := range users {
		out[i] = plainUserDTO(u)
	}
	return out
}

func paginationDTO(info page.Info) pageDTO {
	return pageDTO{
		CurrentPage:  info.CurrentPage,
		TotalPages:   info.TotalPages,
		TotalItems:   info.TotalItems,
		ItemsPerPage: info.ItemsPerPage,
		HasNextPage:  info.HasNextPage,
		HasPrevPage:  info.HasPrevPage,
	}
}

func filtersFromResult(f result.Filters) filtersDTO {
	dto := filtersDTO{
		Keyword: f.Keyword,
		Role:    f.Role,
	}
	if f.CreatedFrom != nil {
		day := f.CreatedFrom.Format("2006-01-02")
		dto.CreatedFrom = &day
	}
	if f.CreatedTo != nil {
		day := f.CreatedTo.Format("2006-01-02")
		dto.CreatedTo = &day
	}
	return dto
}

func writeEnvelope(w http.ResponseWriter, status, ec int, em string, dt any) {
	writeJSON(w, status, envelope{EC: ec, EM: em, DT: dt})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
