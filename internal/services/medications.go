// Package services holds the application logic between the CLI and the
// repositories. This file implements MedicationService, the session-aware
// controller that validates input, scopes every operation to the logged-in
// user and tells listeners about changes.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/notify"
	"github.com/dmitrijs2005/meditrack/internal/repositories/medications"
	"github.com/dmitrijs2005/meditrack/internal/storage"
)

// Keys of the persisted session in the local key-value store.
const (
	SessionEmailKey = "@user_email"
	SessionTokenKey = "@app_token"
)

// MedicationInput is what the user types when adding or editing an entry.
// CreatedAt is honored by Create only.
type MedicationInput struct {
	Name      string
	Dose      string
	Frequency string
	Notes     string
	StartTime string
	CreatedAt time.Time
}

type MedicationService struct {
	repo   medications.Repository
	store  kv.Store
	hub    *notify.Hub
	logger logging.Logger
	now    func() time.Time

	mu          sync.Mutex
	initialized bool
	session     models.Session
	// sessionSet is true once SetSession or ClearSession ran; Initialize
	// then leaves the in-memory session alone.
	sessionSet bool
}

// NewMedicationService wires the controller. store keeps the session across
// runs.
func NewMedicationService(repo medications.Repository, store kv.Store, logger logging.Logger) *MedicationService {
	return &MedicationService{
		repo:   repo,
		store:  store,
		hub:    notify.NewHub(logger),
		logger: logger.With("component", "medication-service"),
		now:    time.Now,
	}
}

// Initialize prepares storage and restores the persisted session. Only the
// first successful call does any work; a failed call may be retried.
func (s *MedicationService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := s.repo.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if !s.sessionSet {
		s.session = s.loadSession(ctx)
	}
	s.initialized = true
	return nil
}

func (s *MedicationService) loadSession(ctx context.Context) models.Session {
	email, err := s.store.Get(ctx, SessionEmailKey)
	if err != nil {
		s.logger.Warn(ctx, "failed to load session", "err", err)
		return models.Session{}
	}
	token, err := s.store.Get(ctx, SessionTokenKey)
	if err != nil {
		s.logger.Warn(ctx, "failed to load session token", "err", err)
	}
	return models.Session{Email: string(email), Token: string(token)}
}

// SetSession makes email the current tenant. The session is persisted on a
// best-effort basis: write failures are logged and the in-memory session is
// still switched.
func (s *MedicationService) SetSession(ctx context.Context, email, token string) {
	s.mu.Lock()
	s.session = models.Session{Email: email, Token: token}
	s.sessionSet = true
	s.mu.Unlock()

	if err := s.store.Set(ctx, SessionEmailKey, []byte(email)); err != nil {
		s.logger.Warn(ctx, "failed to persist session", "err", err)
	}
	if err := s.store.Set(ctx, SessionTokenKey, []byte(token)); err != nil {
		s.logger.Warn(ctx, "failed to persist session token", "err", err)
	}
}

// ClearSession logs out. Like SetSession it never fails.
func (s *MedicationService) ClearSession(ctx context.Context) {
	s.mu.Lock()
	s.session = models.Session{}
	s.sessionSet = true
	s.mu.Unlock()

	for _, k := range []string{SessionEmailKey, SessionTokenKey} {
		if err := s.store.Delete(ctx, k); err != nil {
			s.logger.Warn(ctx, "failed to clear persisted session", "key", k, "err", err)
		}
	}
}

func (s *MedicationService) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *MedicationService) tenant() string {
	return s.Session().Email
}

// List returns the medications visible to the current user, newest first.
func (s *MedicationService) List(ctx context.Context) ([]models.Medication, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	rows, err := s.repo.GetAll(ctx, storage.Filter{OwnerEmail: s.tenant()})
	if err != nil {
		return nil, err
	}
	return models.MedicationsFromRows(rows), nil
}

func (in MedicationInput) medication() models.Medication {
	return models.Medication{
		Name:      strings.TrimSpace(in.Name),
		Dose:      strings.TrimSpace(in.Dose),
		Frequency: strings.TrimSpace(in.Frequency),
		Notes:     strings.TrimSpace(in.Notes),
		StartTime: strings.TrimSpace(in.StartTime),
		CreatedAt: in.CreatedAt,
	}
}

// stamp sets the owner of m to the current user once the persisted session
// is loaded, and checks the owner email.
func (s *MedicationService) stamp(m *models.Medication) error {
	m.OwnerEmail = s.tenant()
	return models.ValidateMedication(*m)
}

// Create validates in, stamps it with the current user and stores it.
// Invalid input is rejected before any storage call.
func (s *MedicationService) Create(ctx context.Context, in MedicationInput) (models.Medication, error) {
	m := in.medication()
	if err := models.ValidateMedication(m); err != nil {
		return models.Medication{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	if err := s.Initialize(ctx); err != nil {
		return models.Medication{}, err
	}
	if err := s.stamp(&m); err != nil {
		return models.Medication{}, err
	}

	row, err := s.repo.Add(ctx, storage.Record{
		Name:       m.Name,
		Dose:       m.Dose,
		Frequency:  m.Frequency,
		Notes:      m.Notes,
		StartTime:  m.StartTime,
		CreatedAt:  m.CreatedAt,
		OwnerEmail: m.OwnerEmail,
	})
	if err != nil {
		return models.Medication{}, err
	}

	created := models.MedicationFromRow(row)
	s.hub.Notify(ctx, notify.Event{Kind: notify.EventCreated, MedicationID: created.ID})
	return created, nil
}

// Edit replaces the editable fields of medication id. A logged-in user may
// edit their own entries and unowned ones, which then become theirs.
func (s *MedicationService) Edit(ctx context.Context, id int64, in MedicationInput) error {
	m := in.medication()
	if err := models.ValidateMedication(m); err != nil {
		return err
	}
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	if err := s.stamp(&m); err != nil {
		return err
	}
	owner := m.OwnerEmail

	p := storage.Patch{
		Name:      &m.Name,
		Dose:      &m.Dose,
		Frequency: &m.Frequency,
		Notes:     &m.Notes,
		StartTime: &m.StartTime,
	}
	if owner != "" {
		p.OwnerEmail = &owner
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return err
	}

	s.hub.Notify(ctx, notify.Event{Kind: notify.EventUpdated, MedicationID: id})
	return nil
}

func (s *MedicationService) Delete(ctx context.Context, id int64) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, storage.Filter{OwnerEmail: s.tenant()}); err != nil {
		return err
	}

	s.hub.Notify(ctx, notify.Event{Kind: notify.EventDeleted, MedicationID: id})
	return nil
}

// AddListener registers l for change events. The returned id removes it.
func (s *MedicationService) AddListener(l notify.Listener) notify.ListenerID {
	return s.hub.AddListener(l)
}

func (s *MedicationService) RemoveListener(id notify.ListenerID) {
	s.hub.RemoveListener(id)
}
