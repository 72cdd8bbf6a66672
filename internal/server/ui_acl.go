package server

import (
	"net/http"

	"github.com/QuocDuong16/headscale-dashboard/internal/acl"
	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
)

type aclData struct {
	Text       string
	ParseError string
	Empty      bool
}

func (s *Server) handleACLPage(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	policy, err := q.policy(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "acls", s.page(w, r, "acls", "acls.title", aclData{
		Text:  acl.Present(policy),
		Empty: acl.IsEmpty(policy),
	}))
}

// handleACLSubmit formats or saves the editor text. Text that does not parse
// is never sent upstream; it is shown again with the error.
func (s *Server) handleACLSubmit(w http.ResponseWriter, r *http.Request) {
	text := r.PostFormValue("policy")
	invalid := func(err error) {
		p := s.page(w, r, "acls", "acls.title", aclData{Text: text, ParseError: err.Error()})
		s.render(w, http.StatusBadRequest, "acls", p)
	}

	if r.PostFormValue("action") == "format" {
		formatted, err := acl.Format(text)
		if err != nil {
			invalid(err)
			return
		}
		s.render(w, http.StatusOK, "acls", s.page(w, r, "acls", "acls.title", aclData{Text: formatted}))
		return
	}

	compact, err := acl.Prepare(text)
	if err != nil {
		invalid(err)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.SetPolicy(r.Context(), compact)
	}
	if err != nil {
		s.failMutation(w, r, "/acls", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/acls", tr.T("toast.aclSaved"), keyACL)
}
