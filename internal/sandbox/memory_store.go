package sandbox

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
)

var _ Store = (*MemoryStore)(nil)

type refID struct {
	kind string
	id   int64
}

type pair struct {
	userID int64
	petID  int64
}

// MemoryStore keeps the sandbox state in process.
type MemoryStore struct {
	mu           sync.RWMutex
	pets         map[int64]contract.Pet
	refs         map[refID]contract.Reference
	favorites    map[pair]bool
	profiles     map[int64]contract.Profile
	tokens       map[string]int64
	terms        map[TermKey]contract.Term
	nextTermID   int64
	associations []contract.Association
	nextAssocID  int64
	idempotency  map[string]IdempotencyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pets:        map[int64]contract.Pet{},
		refs:        map[refID]contract.Reference{},
		favorites:   map[pair]bool{},
		profiles:    map[int64]contract.Profile{},
		tokens:      map[string]int64{},
		terms:       map[TermKey]contract.Term{},
		idempotency: map[string]IdempotencyRecord{},
	}
}

func (s *MemoryStore) Pet(_ context.Context, id int64) (contract.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pet, ok := s.pets[id]
	if !ok {
		return contract.Pet{}, ErrNotFound
	}
	return clonePet(pet), nil
}

func (s *MemoryStore) Pets(_ context.Context, filter PetFilter) ([]contract.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contract.Pet, 0, len(s.pets))
	for _, pet := range s.pets {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, pet.Status) {
			continue
		}
		if filter.OwnerID != 0 && pet.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, clonePet(pet))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SavePet(_ context.Context, pet contract.Pet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pets[pet.ID] = clonePet(pet)
	return nil
}

func (s *MemoryStore) SetPetStatus(_ context.Context, id int64, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pet, ok := s.pets[id]
	if !ok {
		return ErrNotFound
	}
	pet.Status = status
	s.pets[id] = pet
	return nil
}

func (s *MemoryStore) Reference(_ context.Context, kind string, id int64) (contract.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[refID{kind: kind, id: id}]
	if !ok {
		return contract.Reference{}, ErrNotFound
	}
	return ref, nil
}

func (s *MemoryStore) SaveReference(_ context.Context, ref contract.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[refID{kind: ref.Kind, id: ref.ID}] = ref
	return nil
}

func (s *MemoryStore) Favorite(_ context.Context, userID, petID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites[pair{userID: userID, petID: petID}], nil
}

func (s *MemoryStore) SetFavorite(_ context.Context, userID, petID int64, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.favorites[pair{userID: userID, petID: petID}] = true
	} else {
		delete(s.favorites, pair{userID: userID, petID: petID})
	}
	return nil
}

func (s *MemoryStore) Profile(_ context.Context, userID int64) (contract.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return contract.Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, profile contract.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *MemoryStore) UserForToken(_ context.Context, token string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) SaveToken(_ context.Context, token string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *MemoryStore) CreateTerm(_ context.Context, term contract.Term) (contract.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := KeyOf(term)
	if _, exists := s.terms[key]; exists {
		return contract.Term{}, ErrDuplicate
	}
	s.nextTermID++
	term.ID = s.nextTermID
	s.terms[key] = cloneTerm(term)
	return cloneTerm(term), nil
}

func (s *MemoryStore) ReplaceTerm(_ context.Context, term contract.Term) (contract.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := KeyOf(term)
	existing, ok := s.terms[key]
	if !ok {
		return contract.Term{}, ErrNotFound
	}
	term.ID = existing.ID
	s.terms[key] = cloneTerm(term)
	return cloneTerm(term), nil
}

func (s *MemoryStore) TermByKey(_ context.Context, key TermKey) (contract.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term, ok := s.terms[key]
	if !ok {
		return contract.Term{}, ErrNotFound
	}
	return cloneTerm(term), nil
}

func (s *MemoryStore) TermByID(_ context.Context, kind string, id int64) (contract.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, term := range s.terms {
		if term.ID == id && term.Kind == kind {
			return cloneTerm(term), nil
		}
	}
	return contract.Term{}, ErrNotFound
}

func (s *MemoryStore) MarkTermEmailed(_ context.Context, kind string, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, term := range s.terms {
		if term.ID == id && term.Kind == kind {
			sent := at
			term.EmailSentAt = &sent
			s.terms[key] = term
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Associations(_ context.Context, petID, userID int64) ([]contract.Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contract.Association
	for _, a := range s.associations {
		if a.PetID == petID && a.UserID == userID {
			out = append(out, cloneAssociation(a))
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAssociation(_ context.Context, assoc contract.Association) (contract.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.associations {
		if a.PetID == assoc.PetID && a.UserID == assoc.UserID && a.ReleasedAt == nil {
			return contract.Association{}, ErrDuplicate
		}
	}
	s.nextAssocID++
	assoc.ID = s.nextAssocID
	s.associations = append(s.associations, cloneAssociation(assoc))
	return cloneAssociation(assoc), nil
}

func (s *MemoryStore) ReleaseAssociation(_ context.Context, petID, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.associations {
		if a.PetID == petID && a.UserID == userID && a.ReleasedAt == nil {
			released := at
			s.associations[i].ReleasedAt = &released
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Idempotent(_ context.Context, key string) (*IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) SaveIdempotent(_ context.Context, rec IdempotencyRecord) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.idempotency[rec.Key]; ok {
		return &existing, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.idempotency[rec.Key] = rec
	return &rec, nil
}

func clonePet(p contract.Pet) contract.Pet {
	if p.Diseases != nil {
		p.Diseases = append([]string{}, p.Diseases...)
	}
	return p
}

func cloneTerm(t contract.Term) contract.Term {
	if t.Adopter != nil {
		a := *t.Adopter
		t.Adopter = &a
	}
	if t.EmailSentAt != nil {
		at := *t.EmailSentAt
		t.EmailSentAt = &at
	}
	return t
}

func cloneAssociation(a contract.Association) contract.Association {
	if a.ReleasedAt != nil {
		at := *a.ReleasedAt
		a.ReleasedAt = &at
	}
	return a
}
