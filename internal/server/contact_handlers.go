package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/session"
)

// contactPanels renders the grouped list and the detail of the selected
// contact (empty when nothing is selected).
func (s *Server) contactPanels(p *pageState) (list, detail template.HTML, err error) {
	list, err = s.renderer.ContactList(domain.GroupContacts(p.ws.Contacts()), p.selected.Has)
	if err != nil {
		return "", "", err
	}
	for _, id := range p.selected.IDs() {
		c, ok := p.ws.Contact(id)
		if !ok {
			continue
		}
		if detail, err = s.renderer.ContactDetail(c); err != nil {
			return "", "", err
		}
		break
	}
	return list, detail, nil
}

func (s *Server) respondWithContacts(w http.ResponseWriter, p *pageState, code int, f fragment) {
	list, detail, err := s.contactPanels(p)
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	f.HTML, f.Detail = list, detail
	respondWithJSON(w, code, f)
}

func (s *Server) getAllContactsHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		respondWithJSON(w, http.StatusOK, p.ws.Contacts())
	})
}

func (s *Server) createContactHandler(w http.ResponseWriter, r *http.Request) {
	var req service.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		c, err := s.contactService.CreateContact(r.Context(), p.ws, req)
		if err != nil {
			s.respondWithServiceError(w, err, "create contact")
			return
		}
		p.selected.Only(c.ID)
		toast := notify.Success("Contact successfully created")
		s.respondWithContacts(w, p, http.StatusCreated, fragment{Toast: &toast, Data: c})
	})
}

func (s *Server) updateContactHandler(w http.ResponseWriter, r *http.Request) {
	var req service.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		c, err := s.contactService.UpdateContact(r.Context(), p.ws, id, req)
		if err != nil {
			s.respondWithServiceError(w, err, "update contact")
			return
		}
		toast := notify.Success("Contact updated")
		s.respondWithContacts(w, p, http.StatusOK, fragment{Toast: &toast, Data: c})
	})
}

func (s *Server) deleteContactHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		if err := s.contactService.DeleteContact(r.Context(), p.ws, id); err != nil {
			s.respondWithServiceError(w, err, "delete contact")
			return
		}
		if p.selected.Has(id) {
			p.selected.Clear()
		}
		delete(p.form.Assignees(), id)
		toast := notify.Success("Contact deleted")
		s.respondWithContacts(w, p, http.StatusOK, fragment{Toast: &toast})
	})
}

func (s *Server) selectContactHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		if _, ok := p.ws.Contact(id); !ok {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("contact %s not found", id))
			return
		}
		p.selected.Only(id)
		s.respondWithContacts(w, p, http.StatusOK, fragment{})
	})
}
