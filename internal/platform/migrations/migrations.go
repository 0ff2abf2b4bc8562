package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the sandbox backend schema. The records mirror the sandbox
// Postgres store; the partial index on associations only covers active rows.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&petRecord{},
		&referenceRecord{},
		&favoriteRecord{},
		&profileRecord{},
		&tokenRecord{},
		&termRecord{},
		&associationRecord{},
		&idempotencyRecord{},
	)
}

type petRecord struct {
	ID        int64          `gorm:"primaryKey;column:id"`
	OwnerID   int64          `gorm:"column:owner_id;index"`
	Name      string         `gorm:"column:name"`
	BreedID   int64          `gorm:"column:breed_id"`
	Breed     string         `gorm:"column:breed"`
	AgeBand   string         `gorm:"column:age_band"`
	PhotoURL  string         `gorm:"column:photo_url"`
	Diseases  pq.StringArray `gorm:"column:diseases;type:text[]"`
	Status    int            `gorm:"column:status;index"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (petRecord) TableName() string { return "pets" }

type referenceRecord struct {
	Kind string `gorm:"primaryKey;column:kind;size:64"`
	ID   int64  `gorm:"primaryKey;column:id;autoIncrement:false"`
	Name string `gorm:"column:name"`
}

func (referenceRecord) TableName() string { return "reference_items" }

type favoriteRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	PetID     int64     `gorm:"primaryKey;column:pet_id;autoIncrement:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (favoriteRecord) TableName() string { return "favorites" }

type profileRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	City      string    `gorm:"column:city"`
	State     string    `gorm:"column:state;size:2"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (profileRecord) TableName() string { return "profiles" }

type tokenRecord struct {
	Token     string    `gorm:"primaryKey;column:token;size:512"`
	UserID    int64     `gorm:"column:user_id;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tokenRecord) TableName() string { return "access_tokens" }

type termRecord struct {
	ID           int64      `gorm:"primaryKey;column:id"`
	Kind         string     `gorm:"column:kind;size:16;uniqueIndex:idx_terms_key,priority:1"`
	PetID        int64      `gorm:"column:pet_id;uniqueIndex:idx_terms_key,priority:2"`
	AdopterID    int64      `gorm:"column:adopter_id;uniqueIndex:idx_terms_key,priority:3"`
	DonorID      int64      `gorm:"column:donor_id;uniqueIndex:idx_terms_key,priority:4"`
	Donor        string     `gorm:"column:donor;type:text"`
	Adopter      *string    `gorm:"column:adopter;type:text"`
	Signature    string     `gorm:"column:signature"`
	Observations string     `gorm:"column:observations"`
	Hash         string     `gorm:"column:hash;size:64"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	EmailSentAt  *time.Time `gorm:"column:email_sent_at"`
}

func (termRecord) TableName() string { return "terms" }

type associationRecord struct {
	ID         int64      `gorm:"primaryKey;column:id"`
	PetID      int64      `gorm:"column:pet_id;index:idx_associations_pair;uniqueIndex:idx_associations_active,where:released_at IS NULL"`
	UserID     int64      `gorm:"column:user_id;index:idx_associations_pair;uniqueIndex:idx_associations_active,where:released_at IS NULL"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
}

func (associationRecord) TableName() string { return "associations" }

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	Status      int       `gorm:"column:status"`
	Body        []byte    `gorm:"column:body"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "idempotency_keys" }
