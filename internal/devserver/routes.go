package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"notes-client/internal/converter"
	"notes-client/internal/gateway"
	"notes-client/internal/gateway/memory"
	"notes-client/internal/remoteerr"
	"notes-client/internal/session"
)

// routes регистрирует REST маршруты на runtime.ServeMux
func (s *Server) routes() error {
	type route struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}

	table := []route{
		{http.MethodPost, "/v1/auth/login", s.login},
		{http.MethodPost, "/v1/auth/register", s.register},
		{http.MethodPost, "/v1/auth/logout", s.authed(s.logout)},
		{http.MethodGet, "/v1/auth/session", s.authed(s.currentSession)},
		{http.MethodPost, "/v1/auth/password", s.authed(s.changePassword)},
		{http.MethodPatch, "/v1/auth/profile", s.authed(s.updateProfile)},
		{http.MethodDelete, "/v1/auth/account", s.authed(s.deleteAccount)},
		{http.MethodGet, "/v1/auth/events", s.authed(s.events)},

		{http.MethodGet, "/v1/notes", s.authed(s.listNotes)},
		{http.MethodPost, "/v1/notes", s.authed(s.createNote)},
		{http.MethodPut, "/v1/notes/{id}", s.authed(s.updateNote)},
		{http.MethodDelete, "/v1/notes/{id}", s.authed(s.deleteNote)},
		{http.MethodPost, "/v1/notes/{id}/toggle", s.authed(s.toggleNote)},
		{http.MethodGet, "/v1/categories", s.authed(s.listCategories)},
		{http.MethodGet, "/v1/tags", s.authed(s.listTags)},
		{http.MethodGet, "/v1/statistics", s.authed(s.statistics)},
	}

	for _, rt := range table {
		if err := s.gw.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req converter.LoginRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, token, err := s.accounts.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.SessionResponse{Token: token, User: user})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req gateway.RegisterRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := session.ValidateRegistration(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, token, err := s.accounts.Register(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("account registered")
	writeJSON(w, http.StatusCreated, converter.SessionResponse{Token: token, User: user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	if err := s.accounts.Logout(sess.token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) currentSession(w http.ResponseWriter, _ *http.Request, _ map[string]string, sess caller) {
	writeJSON(w, http.StatusOK, converter.SessionResponse{User: sess.user})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	var req converter.PasswordChangeRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := session.ValidatePassword(req.NewPassword, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.accounts.ChangePassword(sess.token, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	var upd gateway.ProfileUpdate
	if err := decodeJSON(r, w, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	if upd.Username != nil {
		if err := session.ValidateUsername(*upd.Username); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	user, err := s.accounts.UpdateProfile(sess.token, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	if err := s.accounts.DeleteAccount(sess.token); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dropNotes(sess.user.ID)
	s.log.Info().Str("user_id", sess.user.ID).Msg("account deleted")
	w.WriteHeader(http.StatusNoContent)
}

// events NDJSON поток событий сессии: одна строка gateway.AuthEvent на событие.
// Поток закрывается после события невалидной сессии или отмены запроса.
func (s *Server) events(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, remoteerr.Server(http.StatusInternalServerError, "streaming not supported"))
		return
	}

	ch := make(chan memory.AccountEvent, 16)
	sub := s.accounts.Subscribe(func(ev memory.AccountEvent) {
		if ev.Token != sess.token {
			return
		}
		select {
		case ch <- ev:
		default:
			s.log.Warn().Str("user_id", ev.UserID).Msg("session event dropped")
		}
	})
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := enc.Encode(gateway.AuthEvent{User: ev.User, SessionValid: ev.SessionValid}); err != nil {
				return
			}
			flusher.Flush()
			if !ev.SessionValid {
				return
			}
		}
	}
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	q, err := converter.ValuesToQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.NotesFor(sess.user.ID).FetchPage(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.PageToDTO(page))
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	var dto converter.NoteDTO
	if err := decodeJSON(r, w, &dto); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.NotesFor(sess.user.ID).Create(r.Context(), converter.DTOToModel(&dto))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, converter.ModelToDTO(created))
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request, params map[string]string, sess caller) {
	var dto converter.NoteDTO
	if err := decodeJSON(r, w, &dto); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.NotesFor(sess.user.ID).Update(r.Context(), params["id"], converter.DTOToModel(&dto))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.ModelToDTO(updated))
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request, params map[string]string, sess caller) {
	if err := s.NotesFor(sess.user.ID).Delete(r.Context(), params["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleNote(w http.ResponseWriter, r *http.Request, params map[string]string, sess caller) {
	note, err := s.NotesFor(sess.user.ID).ToggleCompletion(r.Context(), params["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.ModelToDTO(note))
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	categories, err := s.NotesFor(sess.user.ID).ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.CategoriesResponse{Categories: categories})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	tags, err := s.NotesFor(sess.user.ID).ListTags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.TagsResponse{Tags: tags})
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request, _ map[string]string, sess caller) {
	stats, err := s.NotesFor(sess.user.ID).GetStatistics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, converter.StatisticsResponse{Statistics: stats})
}
