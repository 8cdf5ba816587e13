package testutil

import (
	"context"
	"sync"

	"prosphere/internal/identity"
)

// IdentityStub is an in-memory identity.Client.
type IdentityStub struct {
	mu      sync.Mutex
	Users   map[string]*identity.ProviderUser
	Members map[string]map[string]bool
	Err     error
	Calls   int
}

// NewIdentityStub creates an empty stub.
func NewIdentityStub() *IdentityStub {
	return &IdentityStub{
		Users:   make(map[string]*identity.ProviderUser),
		Members: make(map[string]map[string]bool),
	}
}

// AddUser registers a provider user with a primary email.
func (s *IdentityStub) AddUser(id, first, last, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &identity.ProviderUser{ID: id, FirstName: &first, LastName: &last}
	if email != "" {
		emailID := "email_" + id
		u.PrimaryEmailAddressID = &emailID
		u.EmailAddresses = []identity.EmailAddress{{ID: emailID, EmailAddress: email}}
	}
	s.Users[id] = u
}

// AddMember records userID as a member of orgID.
func (s *IdentityStub) AddMember(orgID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Members[orgID] == nil {
		s.Members[orgID] = make(map[string]bool)
	}
	s.Members[orgID][userID] = true
}

func (s *IdentityStub) GetUser(_ context.Context, id string) (*identity.ProviderUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.Users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (s *IdentityStub) IsOrganizationMember(_ context.Context, orgID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return false, s.Err
	}
	return s.Members[orgID][userID], nil
}
