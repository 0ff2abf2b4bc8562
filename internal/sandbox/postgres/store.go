// Package postgres persists the sandbox backend in PostgreSQL. Uniqueness of
// terms and active associations is enforced by indexes, so concurrent sandbox
// replicas agree on the winner.
package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	"github.com/Apurer/pet-adoption-engine/internal/sandbox"
)

var _ sandbox.Store = (*Store)(nil)

// Store is a GORM-backed sandbox.Store. The DB must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type Store struct {
	db *gorm.DB
}

// NewStore wires the store. The caller owns the DB lifecycle and the schema
// (see migrations.Run).
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres sandbox store not configured")
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sandbox.ErrNotFound
	}
	return err
}

func (s *Store) Pet(ctx context.Context, id int64) (contract.Pet, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Pet{}, err
	}
	var rec petRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return contract.Pet{}, notFound(err)
	}
	return rec.toContract(), nil
}

func (s *Store) Pets(ctx context.Context, filter sandbox.PetFilter) ([]contract.Pet, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Order("id")
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	var records []petRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	pets := make([]contract.Pet, 0, len(records))
	for _, rec := range records {
		pets = append(pets, rec.toContract())
	}
	return pets, nil
}

// SavePet inserts or replaces a pet.
func (s *Store) SavePet(ctx context.Context, pet contract.Pet) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := newPetRecord(pet)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"owner_id":   rec.OwnerID,
				"name":       rec.Name,
				"breed_id":   rec.BreedID,
				"breed":      rec.Breed,
				"age_band":   rec.AgeBand,
				"photo_url":  rec.PhotoURL,
				"diseases":   rec.Diseases,
				"status":     rec.Status,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&rec).Error
}

func (s *Store) SetPetStatus(ctx context.Context, id int64, status int) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&petRecord{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sandbox.ErrNotFound
	}
	return nil
}

func (s *Store) Reference(ctx context.Context, kind string, id int64) (contract.Reference, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Reference{}, err
	}
	var rec referenceRecord
	if err := s.db.WithContext(ctx).First(&rec, "kind = ? AND id = ?", kind, id).Error; err != nil {
		return contract.Reference{}, notFound(err)
	}
	return contract.Reference{Kind: rec.Kind, ID: rec.ID, Name: rec.Name}, nil
}

func (s *Store) SaveReference(ctx context.Context, ref contract.Reference) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := referenceRecord{Kind: ref.Kind, ID: ref.ID, Name: ref.Name}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&rec).Error
}

func (s *Store) Favorite(ctx context.Context, userID, petID int64) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&favoriteRecord{}).
		Where("user_id = ? AND pet_id = ?", userID, petID).Count(&count).Error
	return count > 0, err
}

// SetFavorite is idempotent in both directions.
func (s *Store) SetFavorite(ctx context.Context, userID, petID int64, on bool) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	if !on {
		return db.Where("user_id = ? AND pet_id = ?", userID, petID).Delete(&favoriteRecord{}).Error
	}
	rec := favoriteRecord{UserID: userID, PetID: petID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (s *Store) Profile(ctx context.Context, userID int64) (contract.Profile, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Profile{}, err
	}
	var rec profileRecord
	if err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error; err != nil {
		return contract.Profile{}, notFound(err)
	}
	return rec.toContract(), nil
}

func (s *Store) SaveProfile(ctx context.Context, p contract.Profile) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := profileRecord{UserID: p.UserID, Name: p.Name, Email: p.Email, Phone: p.Phone, City: p.City, State: p.State}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":       rec.Name,
				"email":      rec.Email,
				"phone":      rec.Phone,
				"city":       rec.City,
				"state":      rec.State,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&rec).Error
}

func (s *Store) UserForToken(ctx context.Context, token string) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var rec tokenRecord
	if err := s.db.WithContext(ctx).First(&rec, "token = ?", token).Error; err != nil {
		return 0, notFound(err)
	}
	return rec.UserID, nil
}

func (s *Store) SaveToken(ctx context.Context, token string, userID int64) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := tokenRecord{Token: token, UserID: userID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id"}),
		}).Create(&rec).Error
}

// CreateTerm relies on idx_terms_key; the losing insert of a race gets ErrDuplicate.
func (s *Store) CreateTerm(ctx context.Context, term contract.Term) (contract.Term, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Term{}, err
	}
	term.ID = 0
	rec := newTermRecord(term, sandbox.KeyOf(term).DonorID)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.Term{}, sandbox.ErrDuplicate
		}
		return contract.Term{}, err
	}
	return rec.toContract(), nil
}

// ReplaceTerm overwrites the content of the term stored under the same key,
// keeping its id.
func (s *Store) ReplaceTerm(ctx context.Context, term contract.Term) (contract.Term, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Term{}, err
	}
	var out contract.Term
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing termRecord
		if err := whereKey(tx, sandbox.KeyOf(term)).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing).Error; err != nil {
			return notFound(err)
		}
		term.ID = existing.ID
		rec := newTermRecord(term, existing.DonorID)
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = rec.toContract()
		return nil
	})
	return out, err
}

func (s *Store) TermByKey(ctx context.Context, key sandbox.TermKey) (contract.Term, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Term{}, err
	}
	var rec termRecord
	if err := whereKey(s.db.WithContext(ctx), key).First(&rec).Error; err != nil {
		return contract.Term{}, notFound(err)
	}
	return rec.toContract(), nil
}

func (s *Store) TermByID(ctx context.Context, kind string, id int64) (contract.Term, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Term{}, err
	}
	var rec termRecord
	if err := s.db.WithContext(ctx).First(&rec, "kind = ? AND id = ?", kind, id).Error; err != nil {
		return contract.Term{}, notFound(err)
	}
	return rec.toContract(), nil
}

func (s *Store) MarkTermEmailed(ctx context.Context, kind string, id int64, at time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&termRecord{}).
		Where("kind = ? AND id = ?", kind, id).Update("email_sent_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sandbox.ErrNotFound
	}
	return nil
}

func whereKey(db *gorm.DB, key sandbox.TermKey) *gorm.DB {
	return db.Where("kind = ? AND pet_id = ? AND adopter_id = ? AND donor_id = ?",
		key.Kind, key.PetID, key.AdopterID, key.DonorID)
}

func (s *Store) Associations(ctx context.Context, petID, userID int64) ([]contract.Association, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []associationRecord
	if err := s.db.WithContext(ctx).
		Where("pet_id = ? AND user_id = ?", petID, userID).
		Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]contract.Association, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toContract())
	}
	return out, nil
}

// CreateAssociation relies on the partial index over active rows.
func (s *Store) CreateAssociation(ctx context.Context, assoc contract.Association) (contract.Association, error) {
	if err := s.ensureDB(); err != nil {
		return contract.Association{}, err
	}
	rec := associationRecord{PetID: assoc.PetID, UserID: assoc.UserID, CreatedAt: assoc.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.Association{}, sandbox.ErrDuplicate
		}
		return contract.Association{}, err
	}
	return rec.toContract(), nil
}

func (s *Store) ReleaseAssociation(ctx context.Context, petID, userID int64, at time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&associationRecord{}).
		Where("pet_id = ? AND user_id = ? AND released_at IS NULL", petID, userID).
		Update("released_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sandbox.ErrNotFound
	}
	return nil
}

// Idempotent loads a record by key, returning nil when absent.
func (s *Store) Idempotent(ctx context.Context, key string) (*sandbox.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toSandboxRecord(rec), nil
}

// SaveIdempotent inserts the record; when the key is already taken the stored
// record wins.
func (s *Store) SaveIdempotent(ctx context.Context, record sandbox.IdempotencyRecord) (*sandbox.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	rec := idempotencyRecord{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		Status:      record.Status,
		Body:        record.Body,
		CreatedAt:   record.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		existing, getErr := s.Idempotent(ctx, record.Key)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	return toSandboxRecord(rec), nil
}

func toSandboxRecord(rec idempotencyRecord) *sandbox.IdempotencyRecord {
	return &sandbox.IdempotencyRecord{
		Key:         rec.Key,
		RequestHash: rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt,
	}
}
