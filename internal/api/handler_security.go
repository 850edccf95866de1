package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"datashield/internal/domain"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userToAPI(p *domain.Principal) userResponse {
	return userResponse{ID: p.ID, Name: p.Name, Role: p.Role, CreatedAt: p.CreatedAt}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	principal, err := h.identity.CreateUser(r.Context(), req.Name, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToAPI(principal))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	principals, err := h.identity.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	users := make([]userResponse, len(principals))
	for i := range principals {
		users[i] = userToAPI(&principals[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.DeleteUser(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantRequest struct {
	Principal   string  `json:"principal"`
	Table       string  `json:"table"`
	Column      *string `json:"column,omitempty"` // nil means table-wide
	AccessLevel string  `json:"access_level,omitempty"`
}

type grantResponse struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Table       string    `json:"table"`
	Column      *string   `json:"column,omitempty"`
	AccessLevel string    `json:"access_level"`
	GrantedAt   time.Time `json:"granted_at"`
}

func grantToAPI(g *domain.Grant) grantResponse {
	return grantResponse{
		ID:          g.ID,
		PrincipalID: g.PrincipalID,
		Table:       g.TableName,
		Column:      g.ColumnName,
		AccessLevel: g.AccessLevel,
		GrantedAt:   g.GrantedAt,
	}
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AccessLevel == "" {
		req.AccessLevel = domain.AccessRead
	}

	grant, err := h.policy.Grant(r.Context(), req.Principal, req.Table, req.Column, req.AccessLevel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grantToAPI(grant))
}

func (h *Handler) revokeGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.policy.Revoke(r.Context(), req.Principal, req.Table, req.Column); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.policy.ListGrants(r.Context(), chi.URLParam(r, "principal"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]grantResponse, len(grants))
	for i := range grants {
		out[i] = grantToAPI(&grants[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": out})
}

type secureColumnRequest struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// secureColumn registers a column for envelope encryption. The generated data
// key never leaves the server.
func (h *Handler) secureColumn(w http.ResponseWriter, r *http.Request) {
	var req secureColumnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Table == "" || req.Column == "" {
		writeError(w, domain.ErrValidation("table and column are required"))
		return
	}

	if _, err := h.vault.SecureColumn(r.Context(), req.Table, req.Column); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"table":  req.Table,
		"column": req.Column,
		"status": "secured",
	})
}
