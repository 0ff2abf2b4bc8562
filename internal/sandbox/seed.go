package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
)

// Demo users and their bearer tokens.
const (
	UserOperator = int64(1)
	UserBruno    = int64(10)
	UserAna      = int64(20)
	UserCaio     = int64(30)

	TokenOperator = "tok-operator"
	TokenBruno    = "tok-bruno"
	TokenAna      = "tok-ana"
	TokenCaio     = "tok-caio"
)

// Seed loads the demo marketplace: Bruno donates pets 42 to 44 and 46, Ana
// owns 45 and once released 44, and Caio's mailbox bounces. The operator
// account is what the status finalization worker signs in as. Seeding an
// already seeded store is a no-op.
func Seed(ctx context.Context, b *Backend) error {
	store := b.Store()
	if _, err := store.Profile(ctx, UserOperator); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("seed: %w", err)
	}
	profiles := []contract.Profile{
		{UserID: UserOperator, Name: "Operador", Email: "operador@example.com"},
		{UserID: UserBruno, Name: "Bruno", Email: "bruno@example.com", Phone: "81999990000", City: "Recife", State: "PE"},
		{UserID: UserAna, Name: "Ana", Email: "ana@example.com", Phone: "81988880000", City: "Olinda", State: "PE"},
		{UserID: UserCaio, Name: "Caio", Email: "caio.bounce@example.com", Phone: "81977770000", City: "Recife", State: "PE"},
	}
	for _, p := range profiles {
		if err := store.SaveProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %d: %w", p.UserID, err)
		}
	}
	tokens := map[string]int64{TokenOperator: UserOperator, TokenBruno: UserBruno, TokenAna: UserAna, TokenCaio: UserCaio}
	for token, userID := range tokens {
		if err := store.SaveToken(ctx, token, userID); err != nil {
			return fmt.Errorf("seed token: %w", err)
		}
	}
	pets := []contract.Pet{
		{ID: 42, OwnerID: UserBruno, Name: "Rex", BreedID: 1, Breed: "Vira-lata", AgeBand: "adulto", Status: StatusAvailable},
		{ID: 43, OwnerID: UserBruno, Name: "Mel", BreedID: 2, Breed: "Labrador", AgeBand: "filhote", Status: StatusAvailable},
		{ID: 44, OwnerID: UserBruno, Name: "Toby", BreedID: 1, Breed: "Vira-lata", AgeBand: "idoso", Diseases: []string{"Cinomose"}, Status: StatusAvailable},
		{ID: 45, OwnerID: UserAna, Name: "Nina", BreedID: 3, Breed: "Siamês", AgeBand: "adulto", Status: StatusAvailable},
		{ID: 46, OwnerID: UserBruno, Name: "Bidu", BreedID: 1, Breed: "Vira-lata", AgeBand: "filhote", Status: StatusDraft},
		{ID: 47, OwnerID: UserBruno, Name: "Luna", BreedID: 2, Breed: "Labrador", AgeBand: "adulto", Status: StatusAdopted},
	}
	for _, p := range pets {
		if err := store.SavePet(ctx, p); err != nil {
			return fmt.Errorf("seed pet %d: %w", p.ID, err)
		}
	}
	refs := []contract.Reference{
		{Kind: "breeds", ID: 1, Name: "Vira-lata"},
		{Kind: "breeds", ID: 2, Name: "Labrador"},
		{Kind: "breeds", ID: 3, Name: "Siamês"},
		{Kind: "statuses", ID: StatusDraft, Name: "Rascunho"},
		{Kind: "statuses", ID: StatusAvailable, Name: "Disponível"},
		{Kind: "statuses", ID: StatusPending, Name: "Não informado"},
		{Kind: "statuses", ID: StatusAdopted, Name: "Adotado"},
		{Kind: "age-bands", ID: 1, Name: "Filhote"},
		{Kind: "age-bands", ID: 2, Name: "Adulto"},
		{Kind: "age-bands", ID: 3, Name: "Idoso"},
		{Kind: "diseases", ID: 1, Name: "Cinomose"},
	}
	for _, r := range refs {
		if err := store.SaveReference(ctx, r); err != nil {
			return fmt.Errorf("seed reference %s/%d: %w", r.Kind, r.ID, err)
		}
	}
	if _, err := store.CreateAssociation(ctx, contract.Association{PetID: 44, UserID: UserAna, CreatedAt: b.now().UTC()}); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}
	if err := b.Release(ctx, 44, UserAna); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}
	return nil
}
