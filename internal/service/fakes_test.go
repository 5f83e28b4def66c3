package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/property-listings/internal/mail"
	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/repository"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*model.User{}} }

func (s *memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) List(context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.User{}
	for _, u := range s.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memUsers) update(id string, fn func(u *model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *memUsers) UpdateRole(_ context.Context, id string, role model.Role, now time.Time) error {
	return s.update(id, func(u *model.User) { u.Role = role; u.UpdatedAt = now })
}

func (s *memUsers) UpdatePassword(_ context.Context, id, hash string, now time.Time) error {
	return s.update(id, func(u *model.User) { u.HashedPassword = hash; u.UpdatedAt = now })
}

func (s *memUsers) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(u *model.User) { u.EmailVerified = &at; u.UpdatedAt = at })
}

func (s *memUsers) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memTokens struct {
	mu   sync.Mutex
	rows []*model.Token
}

func (s *memTokens) Create(_ context.Context, t *model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *memTokens) DeleteBySubject(_ context.Context, kind model.TokenKind, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, t := range s.rows {
		if t.Kind != kind || t.Subject != subject {
			kept = append(kept, t)
		}
	}
	s.rows = kept
	return nil
}

func (s *memTokens) Find(_ context.Context, kind model.TokenKind, value, subject string) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rows {
		if t.Kind != kind || t.Value != value {
			continue
		}
		if kind == model.TokenVerification && t.Subject != subject {
			continue
		}
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memTokens) Delete(_ context.Context, t *model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.Kind == t.Kind && row.Value == t.Value && row.Subject == t.Subject {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memTokens) live(kind model.TokenKind, subject string) []*model.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Token
	for _, t := range s.rows {
		if t.Kind == kind && t.Subject == subject {
			out = append(out, t)
		}
	}
	return out
}

type memProperties struct {
	mu    sync.Mutex
	byID  map[string]*model.Property
	calls int
}

func newMemProperties() *memProperties { return &memProperties{byID: map[string]*model.Property{}} }

func clone(p *model.Property) *model.Property {
	cp := *p
	cp.Images = append([]model.PropertyImage{}, p.Images...)
	return &cp
}

func (s *memProperties) List(_ context.Context, f model.PropertyFilter) ([]*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Property{}
	for _, p := range s.byID {
		switch {
		case f.MinPrice != nil && p.Price < *f.MinPrice,
			f.MaxPrice != nil && p.Price > *f.MaxPrice,
			f.Type != "" && p.Type != f.Type,
			f.Operation != "" && p.Operation != f.Operation,
			f.MinBedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms < *f.MinBedrooms),
			f.MinBathrooms != nil && (p.Bathrooms == nil || *p.Bathrooms < *f.MinBathrooms),
			f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)),
			f.OwnerID != "" && p.OwnerID != f.OwnerID:
			continue
		}
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memProperties) GetByID(_ context.Context, id string) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p), nil
}

func (s *memProperties) Create(_ context.Context, p *model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.byID[p.ID] = clone(p)
	return nil
}

func (s *memProperties) Update(_ context.Context, p *model.Property, replaceImages bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.byID[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := clone(p)
	if !replaceImages {
		next.Images = cur.Images
	}
	s.byID[p.ID] = next
	return nil
}

func (s *memProperties) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) { p.n++ }

var errStoreDown = errors.New("store down")

type brokenTokens struct{ memTokens }

func (*brokenTokens) DeleteBySubject(context.Context, model.TokenKind, string) error {
	return errStoreDown
}
