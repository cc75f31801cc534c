package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/view"
)

// UpdateRequest is the JSON body of an update call.
type UpdateRequest struct {
	View  map[string]any `json:"view_admin_as"`
	Nonce string         `json:"view_admin_as_nonce"`
}

// StatusResponse describes the view of the current request.
type StatusResponse struct {
	Active   bool           `json:"active"`
	Mode     view.Mode      `json:"mode"`
	View     map[string]any `json:"view,omitempty"`
	Title    string         `json:"title,omitempty"`
	Identity IdentityBody   `json:"identity"`
	Nonce    string         `json:"nonce"`
}

// IdentityBody is the presented identity.
type IdentityBody struct {
	UserID   string   `json:"user_id,omitempty"`
	Login    string   `json:"login,omitempty"`
	LoggedIn bool     `json:"logged_in"`
	Roles    []string `json:"roles,omitempty"`
	Locale   string   `json:"locale,omitempty"`
}

// handleUpdate applies a change-set. The token is checked before the
// payload is read; a missing or bad token and a malformed body share one
// generic rejection. JSON calls get the result as JSON; form posts are
// answered with a redirect back to the referring page.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := engine.FromContext(r.Context())
	if !ok {
		writeResult(w, http.StatusUnauthorized, view.Failure(view.MessageError, "Access denied"))
		return
	}
	body, err := readUpdate(r)
	if err != nil || req.VerifyNonce(body.nonce) != nil {
		reject(w)
		return
	}
	changes, err := body.changes()
	if err != nil {
		reject(w)
		return
	}

	res, err := req.Update(r.Context(), changes, body.nonce)
	status := http.StatusOK
	switch {
	case errors.Is(err, ferrors.ErrNonceInvalid):
		reject(w)
		return
	case err != nil:
		s.logger.WithContext(r.Context()).Error("view update failed", "error", err)
		status = http.StatusInternalServerError
	}

	if isJSON(r) {
		writeResult(w, status, res)
		return
	}
	target := res.Data.Redirect
	if target == "" {
		target = r.Referer()
	}
	if target == "" {
		target = s.fallback
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := engine.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, view.Failure(view.MessageError, "Access denied"))
		return
	}
	id := req.Identity()
	body := StatusResponse{
		Active: req.Active(),
		Mode:   req.Controller().Mode(r.Context()),
		Nonce:  req.Nonce(),
		Identity: IdentityBody{
			UserID:   id.UserID,
			Login:    id.Login,
			LoggedIn: id.LoggedIn,
			Roles:    id.Roles,
			Locale:   id.Locale,
		},
	}
	if body.Active {
		body.View = req.Resolution().View.Map()
		body.Title = req.Title(r.Context(), s.resolver)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	req, ok := engine.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, view.Failure(view.MessageError, "Access denied"))
		return
	}
	menu, err := req.Menu(r.Context())
	if err != nil {
		s.logger.WithContext(r.Context()).Error("view menu failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, view.Fail())
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// TypeBody describes one available view type.
type TypeBody struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	req, ok := engine.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, view.Failure(view.MessageError, "Access denied"))
		return
	}
	ctx := r.Context()
	locale := req.Identity().Locale
	out := []TypeBody{}
	for _, def := range req.ViewTypes(ctx) {
		body := TypeBody{ID: def.ID}
		body.Label, _ = s.resolver.Resolve(ctx, locale, def.Label)
		body.Description, _ = s.resolver.Resolve(ctx, locale, def.Description)
		if body.Label == "" {
			body.Label = def.ID
		}
		out = append(out, body)
	}
	writeJSON(w, http.StatusOK, out)
}

// updateBody is a change request whose view payload is still encoded.
type updateBody struct {
	view  []byte
	nonce string
}

func readUpdate(r *http.Request) (updateBody, error) {
	if isJSON(r) {
		raw := struct {
			View  json.RawMessage `json:"view_admin_as"`
			Nonce string          `json:"view_admin_as_nonce"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return updateBody{}, err
		}
		return updateBody{view: raw.View, nonce: raw.Nonce}, nil
	}
	if err := r.ParseForm(); err != nil {
		return updateBody{}, err
	}
	return updateBody{
		view:  []byte(r.PostFormValue(controller.ParamView)),
		nonce: r.PostFormValue(controller.ParamNonce),
	}, nil
}

func (b updateBody) changes() (map[string]any, error) {
	changes := map[string]any{}
	if len(b.view) == 0 || string(b.view) == "null" {
		return changes, nil
	}
	if err := json.Unmarshal(b.view, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// reject answers every token or transport failure the same way.
func reject(w http.ResponseWriter) {
	writeResult(w, http.StatusForbidden, view.Fail())
}

func writeResult(w http.ResponseWriter, status int, res view.Result) {
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
