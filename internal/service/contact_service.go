package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/validate"
	"github.com/Tomlord1122/join/internal/workspace"
)

type ContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ContactService interface {
	// CreateContact re-reads the remote collection and rejects the contact
	// with ErrDuplicateContact when its email or phone is already in use.
	CreateContact(ctx context.Context, ws *workspace.Workspace, req ContactRequest) (*domain.Contact, error)
	UpdateContact(ctx context.Context, ws *workspace.Workspace, id string, req ContactRequest) (*domain.Contact, error)
	DeleteContact(ctx context.Context, ws *workspace.Workspace, id string) error
}

type contactService struct {
	repo      repository.ContactRepository
	validator *validate.Validator
	logger    *logrus.Logger
	now       func() time.Time
}

func NewContactService(repo repository.ContactRepository, v *validate.Validator, logger *logrus.Logger) ContactService {
	return &contactService{repo: repo, validator: v, logger: logger, now: time.Now}
}

func (s *contactService) CreateContact(ctx context.Context, ws *workspace.Workspace, req ContactRequest) (*domain.Contact, error) {
	req = trimContact(req)
	if err := s.validator.Contact(validate.ContactInput(req)); err != nil {
		return nil, err
	}

	// Fetched right before writing to narrow the window in which another
	// client could add the same person.
	fresh, err := s.repo.All(ctx, ws.Namespace())
	if err != nil {
		s.logger.WithError(err).Error("load contacts for duplicate check failed")
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	if dup, ok := findDuplicate(fresh, req, ""); ok {
		s.logger.WithField("existing", dup.ID).Info("duplicate contact rejected")
		return nil, ErrDuplicateContact
	}

	now := s.now()
	contact := domain.Contact{
		ID:    domain.NewContactID(req.Name, now),
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Color: domain.ColorFor(req.Name),
	}
	for {
		if _, taken := fresh[contact.ID]; !taken {
			break
		}
		now = now.Add(time.Millisecond)
		contact.ID = domain.NewContactID(req.Name, now)
	}

	if err := s.repo.Put(ctx, ws.Namespace(), contact); err != nil {
		s.logger.WithError(err).WithField("contact", contact.ID).Error("create contact failed")
		return nil, fmt.Errorf("create contact: %w", err)
	}
	for _, c := range fresh {
		ws.PutContact(c)
	}
	ws.PutContact(contact)
	return &contact, nil
}

func (s *contactService) UpdateContact(ctx context.Context, ws *workspace.Workspace, id string, req ContactRequest) (*domain.Contact, error) {
	existing, ok := ws.Contact(id)
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	req = trimContact(req)
	if err := s.validator.Contact(validate.ContactInput(req)); err != nil {
		return nil, err
	}

	updated := existing
	updated.Name = req.Name
	updated.Email = req.Email
	updated.Phone = req.Phone
	if updated.Color == "" {
		updated.Color = domain.ColorFor(updated.Name)
	}

	if err := s.repo.Put(ctx, ws.Namespace(), updated); err != nil {
		s.logger.WithError(err).WithField("contact", id).Error("update contact failed")
		return nil, fmt.Errorf("update contact: %w", err)
	}
	ws.PutContact(updated)
	return &updated, nil
}

func (s *contactService) DeleteContact(ctx context.Context, ws *workspace.Workspace, id string) error {
	if _, ok := ws.Contact(id); !ok {
		return fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	if err := s.repo.Delete(ctx, ws.Namespace(), id); err != nil {
		s.logger.WithError(err).WithField("contact", id).Error("delete contact failed")
		return fmt.Errorf("delete contact: %w", err)
	}
	ws.RemoveContact(id)
	return nil
}

func trimContact(req ContactRequest) ContactRequest {
	return ContactRequest{
		Name:  strings.Join(strings.Fields(req.Name), " "),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
}

// findDuplicate matches on email OR phone, ignoring the contact skipID.
func findDuplicate(contacts map[string]domain.Contact, req ContactRequest, skipID string) (domain.Contact, bool) {
	email := domain.NormalizeEmail(req.Email)
	phone := domain.NormalizePhone(req.Phone)
	for id, c := range contacts {
		if id == skipID {
			continue
		}
		if email != "" && domain.NormalizeEmail(c.Email) == email {
			return c, true
		}
		if phone != "" && domain.NormalizePhone(c.Phone) == phone {
			return c, true
		}
	}
	return domain.Contact{}, false
}
