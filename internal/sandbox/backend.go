package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	termdomain "github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	apierrors "github.com/Apurer/pet-adoption-engine/internal/shared/errors"
)

// Messages mirror the marketplace backend; clients match on them.
const (
	msgTokenInvalid       = "Token expirado ou inválido"
	msgForbidden          = "Acesso negado"
	msgPetNotFound        = "Pet não encontrado"
	msgTermNotFound       = "Termo não encontrado"
	msgProfileNotFound    = "Usuário não encontrado"
	msgReferenceNotFound  = "Registro não encontrado"
	msgOwnPet             = "Você não pode adotar seu próprio pet"
	msgTermExists         = "Termo já existe para esta adoção"
	msgDonationTermExists = "Termo de doação já existe para este usuário"
	msgSignatureRequired  = "Assinatura obrigatória"
	msgMotiveRequired     = "Motivo da doação obrigatório"
	msgAlreadyInList      = "Este pet já está na sua lista"
	msgAdoptedBefore      = "Você já adotou anteriormente este pet"
	msgPetUnavailable     = "Pet indisponível para adoção"
	msgStatusInvalid      = "Status inválido"
	msgNameRequired       = "Nome obrigatório"
	msgEmailInvalid       = "E-mail inválido"
	msgIdempotencyReuse   = "Idempotency-Key reutilizada com outra requisição"
	msgMailboxUnavailable = "mailbox unavailable"
)

// Pet status codes.
const (
	StatusDraft     = 1
	StatusAvailable = 2
	StatusPending   = 3
	StatusAdopted   = 4
)

func problem(status int, message string) apierrors.ProblemDetail {
	return apierrors.Refusal(status, message)
}

// Backend applies the marketplace rules on top of a Store.
type Backend struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
	// undeliverable reports whether mail to address bounces.
	undeliverable func(address string) bool
	// operator may write any pet status; the finalization worker signs in as it.
	operator int64
}

type Option func(*Backend)

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithUndeliverable replaces the bounce rule used by the email endpoints.
func WithUndeliverable(fn func(address string) bool) Option {
	return func(b *Backend) {
		if fn != nil {
			b.undeliverable = fn
		}
	}
}

// WithOperator names the account allowed to write any pet status. Zero disables it.
func WithOperator(userID int64) Option {
	return func(b *Backend) { b.operator = userID }
}

// NewBackend builds a Backend. By default every address containing "bounce" fails delivery.
func NewBackend(store Store, opts ...Option) *Backend {
	b := &Backend{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		undeliverable: func(address string) bool {
			return strings.Contains(strings.ToLower(address), "bounce")
		},
		operator: UserOperator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Store exposes the underlying store for seeding.
func (b *Backend) Store() Store { return b.store }

// Authenticate resolves a bearer token to a user id.
func (b *Backend) Authenticate(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, problem(http.StatusUnauthorized, msgTokenInvalid)
	}
	userID, err := b.store.UserForToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return 0, problem(http.StatusUnauthorized, msgTokenInvalid)
	}
	return userID, err
}

func (b *Backend) Pet(ctx context.Context, id int64) (contract.Pet, error) {
	pet, err := b.store.Pet(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return contract.Pet{}, problem(http.StatusNotFound, msgPetNotFound)
	}
	return pet, err
}

func (b *Backend) Pets(ctx context.Context, filter PetFilter) ([]contract.Pet, error) {
	return b.store.Pets(ctx, filter)
}

// UpdateStatus lets the owner, or an adopter holding an active association, move a pet.
func (b *Backend) UpdateStatus(ctx context.Context, userID, petID int64, status int) error {
	if status < StatusDraft || status > StatusAdopted {
		return problem(http.StatusBadRequest, msgStatusInvalid)
	}
	pet, err := b.Pet(ctx, petID)
	if err != nil {
		return err
	}
	if pet.OwnerID != userID && (b.operator == 0 || userID != b.operator) {
		active, err := b.activeAssociation(ctx, petID, userID)
		if err != nil {
			return err
		}
		if !active {
			return problem(http.StatusForbidden, msgForbidden)
		}
	}
	if err := b.store.SetPetStatus(ctx, petID, status); err != nil {
		return err
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "pet status updated",
		slog.Int64("pet.id", petID), slog.Int("pet.status", status), slog.Int64("user.id", userID))
	return nil
}

func (b *Backend) Reference(ctx context.Context, kind string, id int64) (contract.Reference, error) {
	ref, err := b.store.Reference(ctx, kind, id)
	if errors.Is(err, ErrNotFound) {
		return contract.Reference{}, problem(http.StatusNotFound, msgReferenceNotFound)
	}
	return ref, err
}

func (b *Backend) Favorite(ctx context.Context, authID, userID, petID int64) (bool, error) {
	if authID != userID {
		return false, problem(http.StatusForbidden, msgForbidden)
	}
	if _, err := b.Pet(ctx, petID); err != nil {
		return false, err
	}
	return b.store.Favorite(ctx, userID, petID)
}

func (b *Backend) SetFavorite(ctx context.Context, authID, userID, petID int64, on bool) error {
	if authID != userID {
		return problem(http.StatusForbidden, msgForbidden)
	}
	if _, err := b.Pet(ctx, petID); err != nil {
		return err
	}
	return b.store.SetFavorite(ctx, userID, petID, on)
}

func (b *Backend) Profile(ctx context.Context, userID int64) (contract.Profile, error) {
	profile, err := b.store.Profile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return contract.Profile{}, problem(http.StatusNotFound, msgProfileNotFound)
	}
	return profile, err
}

// UpdateProfile replaces the caller's personal data. Terms keep their snapshots
// and become stale for the clients that compare them.
func (b *Backend) UpdateProfile(ctx context.Context, authID int64, profile contract.Profile) (contract.Profile, error) {
	if authID != profile.UserID {
		return contract.Profile{}, problem(http.StatusForbidden, msgForbidden)
	}
	profile = normalizeParty(profile)
	if profile.Name == "" {
		return contract.Profile{}, problem(http.StatusBadRequest, msgNameRequired)
	}
	if !strings.Contains(profile.Email, "@") {
		return contract.Profile{}, problem(http.StatusBadRequest, msgEmailInvalid)
	}
	if err := b.store.SaveProfile(ctx, profile); err != nil {
		return contract.Profile{}, err
	}
	return profile, nil
}

// SaveAdoptionTerm creates the term of (pet, adopter) or, with Update, replaces
// its content and clears the email confirmation.
func (b *Backend) SaveAdoptionTerm(ctx context.Context, authID int64, req contract.SaveAdoptionTerm) (contract.Term, error) {
	if authID != req.AdopterID {
		return contract.Term{}, problem(http.StatusForbidden, msgForbidden)
	}
	pet, err := b.Pet(ctx, req.PetID)
	if err != nil {
		return contract.Term{}, err
	}
	if pet.OwnerID == req.AdopterID {
		return contract.Term{}, problem(http.StatusBadRequest, msgOwnPet)
	}
	if strings.TrimSpace(req.Signature) == "" {
		return contract.Term{}, problem(http.StatusBadRequest, msgSignatureRequired)
	}
	donor, err := b.Profile(ctx, pet.OwnerID)
	if err != nil {
		return contract.Term{}, err
	}
	adopter, err := b.Profile(ctx, req.AdopterID)
	if err != nil {
		return contract.Term{}, err
	}
	term := contract.Term{
		Kind:         KindAdoption,
		PetID:        req.PetID,
		Donor:        donor,
		Adopter:      &adopter,
		Signature:    strings.TrimSpace(req.Signature),
		Observations: strings.TrimSpace(req.Observations),
		CreatedAt:    b.now().UTC(),
	}
	return b.saveTerm(ctx, term, req.Update, msgTermExists)
}

// SaveDonationTerm creates or updates the donor's term. A motive is required.
func (b *Backend) SaveDonationTerm(ctx context.Context, authID int64, req contract.SaveDonationTerm) (contract.Term, error) {
	if authID != req.DonorID {
		return contract.Term{}, problem(http.StatusForbidden, msgForbidden)
	}
	if strings.TrimSpace(req.Signature) == "" {
		return contract.Term{}, problem(http.StatusBadRequest, msgSignatureRequired)
	}
	if strings.TrimSpace(req.Observations) == "" {
		return contract.Term{}, problem(http.StatusBadRequest, msgMotiveRequired)
	}
	donor, err := b.Profile(ctx, req.DonorID)
	if err != nil {
		return contract.Term{}, err
	}
	term := contract.Term{
		Kind:         KindDonation,
		Donor:        donor,
		Signature:    strings.TrimSpace(req.Signature),
		Observations: strings.TrimSpace(req.Observations),
		CreatedAt:    b.now().UTC(),
	}
	return b.saveTerm(ctx, term, req.Update, msgDonationTermExists)
}

func (b *Backend) saveTerm(ctx context.Context, term contract.Term, update bool, existsMsg string) (contract.Term, error) {
	term.Hash = termHash(term)
	var (
		saved contract.Term
		err   error
	)
	if update {
		saved, err = b.store.ReplaceTerm(ctx, term)
		if errors.Is(err, ErrNotFound) {
			return contract.Term{}, problem(http.StatusNotFound, msgTermNotFound)
		}
	} else {
		saved, err = b.store.CreateTerm(ctx, term)
		if errors.Is(err, ErrDuplicate) {
			return contract.Term{}, problem(http.StatusBadRequest, existsMsg)
		}
	}
	if err != nil {
		return contract.Term{}, err
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "term saved",
		slog.String("term.kind", saved.Kind), slog.Int64("term.id", saved.ID), slog.Bool("term.update", update))
	return saved, nil
}

// AdoptionTerm returns the term of (pet, adopter) to either party.
func (b *Backend) AdoptionTerm(ctx context.Context, authID, petID, adopterID int64) (contract.Term, error) {
	if authID != adopterID {
		pet, err := b.Pet(ctx, petID)
		if err != nil {
			return contract.Term{}, err
		}
		if pet.OwnerID != authID {
			return contract.Term{}, problem(http.StatusForbidden, msgForbidden)
		}
	}
	return b.termByKey(ctx, TermKey{Kind: KindAdoption, PetID: petID, AdopterID: adopterID})
}

func (b *Backend) DonationTerm(ctx context.Context, authID, donorID int64) (contract.Term, error) {
	if authID != donorID {
		return contract.Term{}, problem(http.StatusForbidden, msgForbidden)
	}
	return b.termByKey(ctx, TermKey{Kind: KindDonation, DonorID: donorID})
}

func (b *Backend) termByKey(ctx context.Context, key TermKey) (contract.Term, error) {
	term, err := b.store.TermByKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return contract.Term{}, problem(http.StatusNotFound, msgTermNotFound)
	}
	return term, err
}

// EmailTerm mails the term to every party. The term is marked emailed only
// when all recipients accepted it; a partial delivery still answers 200.
func (b *Backend) EmailTerm(ctx context.Context, authID int64, kind string, termID int64) (contract.Delivery, error) {
	term, err := b.store.TermByID(ctx, kind, termID)
	if errors.Is(err, ErrNotFound) {
		return contract.Delivery{}, problem(http.StatusNotFound, msgTermNotFound)
	}
	if err != nil {
		return contract.Delivery{}, err
	}
	if !isParty(term, authID) {
		return contract.Delivery{}, problem(http.StatusForbidden, msgForbidden)
	}
	delivery := contract.Delivery{TermID: term.ID, Recipients: []contract.Recipient{b.deliver(termdomain.RoleDonor, term.Donor)}}
	if term.Adopter != nil {
		delivery.Recipients = append(delivery.Recipients, b.deliver(termdomain.RoleAdopter, *term.Adopter))
	}
	complete := true
	for _, r := range delivery.Recipients {
		complete = complete && r.Delivered
	}
	if complete {
		if err := b.store.MarkTermEmailed(ctx, kind, term.ID, b.now().UTC()); err != nil {
			return contract.Delivery{}, err
		}
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "term emailed",
		slog.String("term.kind", kind), slog.Int64("term.id", term.ID), slog.Bool("delivery.complete", complete))
	return delivery, nil
}

func (b *Backend) deliver(role string, party contract.Party) contract.Recipient {
	r := contract.Recipient{Role: role, Email: party.Email}
	if b.undeliverable(party.Email) {
		r.Error = msgMailboxUnavailable
		return r
	}
	r.Delivered = true
	return r
}

func isParty(term contract.Term, userID int64) bool {
	if term.Donor.UserID == userID {
		return true
	}
	return term.Adopter != nil && term.Adopter.UserID == userID
}

// CreateAssociation adds a pet to the caller's "my pets". With an idempotency
// key, a repeated request replays the first successful response.
func (b *Backend) CreateAssociation(ctx context.Context, authID int64, idempotencyKey string, req contract.AssociationRequest) (int, []byte, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	var fingerprint string
	if idempotencyKey != "" {
		fingerprint = requestHash(req)
		stored, err := b.store.Idempotent(ctx, idempotencyKey)
		if err != nil {
			return 0, nil, err
		}
		if stored != nil {
			if stored.RequestHash != fingerprint {
				return 0, nil, problem(http.StatusUnprocessableEntity, msgIdempotencyReuse)
			}
			b.logger.LogAttrs(ctx, slog.LevelInfo, "replaying association", slog.String("idempotency.key", idempotencyKey))
			return stored.Status, stored.Body, nil
		}
	}

	assoc, err := b.createAssociation(ctx, authID, req)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(assoc)
	if err != nil {
		return 0, nil, fmt.Errorf("encode association: %w", err)
	}
	if idempotencyKey != "" {
		stored, err := b.store.SaveIdempotent(ctx, IdempotencyRecord{
			Key: idempotencyKey, RequestHash: fingerprint, Status: http.StatusCreated, Body: body, CreatedAt: b.now().UTC(),
		})
		if err != nil {
			return 0, nil, err
		}
		return stored.Status, stored.Body, nil
	}
	return http.StatusCreated, body, nil
}

func (b *Backend) createAssociation(ctx context.Context, authID int64, req contract.AssociationRequest) (contract.Association, error) {
	if authID != req.UserID {
		return contract.Association{}, problem(http.StatusForbidden, msgForbidden)
	}
	pet, err := b.Pet(ctx, req.PetID)
	if err != nil {
		return contract.Association{}, err
	}
	if pet.OwnerID == req.UserID {
		return contract.Association{}, problem(http.StatusBadRequest, msgOwnPet)
	}
	history, err := b.store.Associations(ctx, req.PetID, req.UserID)
	if err != nil {
		return contract.Association{}, err
	}
	released := false
	for _, a := range history {
		if a.ReleasedAt == nil {
			return contract.Association{}, problem(http.StatusBadRequest, msgAlreadyInList)
		}
		released = true
	}
	if released && !req.Force {
		return contract.Association{}, problem(http.StatusBadRequest, msgAdoptedBefore)
	}
	if pet.Status != StatusAvailable {
		return contract.Association{}, problem(http.StatusBadRequest, msgPetUnavailable)
	}
	assoc, err := b.store.CreateAssociation(ctx, contract.Association{PetID: req.PetID, UserID: req.UserID, CreatedAt: b.now().UTC()})
	if errors.Is(err, ErrDuplicate) {
		return contract.Association{}, problem(http.StatusBadRequest, msgAlreadyInList)
	}
	if err != nil {
		return contract.Association{}, err
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "association created",
		slog.Int64("pet.id", req.PetID), slog.Int64("user.id", req.UserID), slog.Bool("force", req.Force))
	return assoc, nil
}

// Release ends an association, leaving it in the user's history.
func (b *Backend) Release(ctx context.Context, petID, userID int64) error {
	return b.store.ReleaseAssociation(ctx, petID, userID, b.now().UTC())
}

func (b *Backend) activeAssociation(ctx context.Context, petID, userID int64) (bool, error) {
	history, err := b.store.Associations(ctx, petID, userID)
	if err != nil {
		return false, err
	}
	for _, a := range history {
		if a.ReleasedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func normalizeParty(p contract.Party) contract.Party {
	return contract.Party{
		UserID: p.UserID,
		Name:   strings.TrimSpace(p.Name),
		Email:  strings.TrimSpace(p.Email),
		Phone:  strings.TrimSpace(p.Phone),
		City:   strings.TrimSpace(p.City),
		State:  strings.ToUpper(strings.TrimSpace(p.State)),
	}
}

func termHash(t contract.Term) string {
	term := termdomain.Term{
		Kind:         termdomain.Kind(t.Kind),
		PetID:        t.PetID,
		Donor:        termdomain.Party(t.Donor),
		Signature:    t.Signature,
		Observations: t.Observations,
	}
	if t.Adopter != nil {
		adopter := termdomain.Party(*t.Adopter)
		term.Adopter = &adopter
	}
	return termdomain.ContentHash(term)
}

func requestHash(req contract.AssociationRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
