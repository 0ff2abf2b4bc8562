package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	petmemory "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/memory"
	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type adoptionFixture struct {
	catalog   *petmemory.Catalog
	directory *fakeDirectory
	adoptions *fakeAdoptions
	terms     *fakeTerms
	gate      *countingGate
	logs      *bytes.Buffer
	order     []string
	svc       *Orchestrator
}

func newAdoptionFixture(t *testing.T, pets ...*domain.Pet) *adoptionFixture {
	t.Helper()
	f := &adoptionFixture{
		directory: newFakeDirectory(pets...),
		adoptions: newFakeAdoptions(),
		terms:     &fakeTerms{emailed: map[adoptKey]bool{}},
		gate:      &countingGate{},
		logs:      &bytes.Buffer{},
	}
	f.catalog = seededCatalog(t, pets...)
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.svc = NewOrchestrator(f.catalog, f.directory, f.adoptions,
		directoryFinalizer{dir: f.directory, order: &f.order}, f.terms,
		WithSponsorGate(f.gate), WithAdoptionLogger(logger))
	return f
}

func availablePet(id, owner int64) *domain.Pet {
	return &domain.Pet{ID: id, OwnerID: owner, Name: "Rex", Status: domain.StatusAvailable}
}

func TestRequestAdopt_IdempotentInSequence(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(7, 1))
	ctx := context.Background()

	first, err := f.svc.RequestAdopt(ctx, 7, 3)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, first.Outcome)
	require.NotNil(t, first.Association)

	second, err := f.svc.RequestAdopt(ctx, 7, 3)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAlreadyAdded, second.Outcome)
	require.Equal(t, 1, f.adoptions.activeCount())
}

func TestRequestAdopt_UsesFreshIdempotencyKeys(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(7, 1), availablePet(8, 1))
	ctx := context.Background()
	_, err := f.svc.RequestAdopt(ctx, 7, 3)
	require.NoError(t, err)
	_, err = f.svc.RequestAdopt(ctx, 8, 3)
	require.NoError(t, err)

	require.Len(t, f.adoptions.requests, 2)
	require.NotEmpty(t, f.adoptions.requests[0].IdempotencyKey)
	require.NotEqual(t, f.adoptions.requests[0].IdempotencyKey, f.adoptions.requests[1].IdempotencyKey)
}

func TestRequestAdopt_ConcurrentCallsShareOneRequest(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(7, 1))
	f.adoptions.release = make(chan struct{})
	f.adoptions.entered = make(chan struct{}, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]pettypes.AdoptResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = f.svc.RequestAdopt(ctx, 7, 3)
	}()
	<-f.adoptions.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = f.svc.RequestAdopt(ctx, 7, 3)
	}()
	require.Eventually(t, func() bool {
		return f.svc.flight.Waiting(adoptKey{petID: 7, userID: 3}) == 1
	}, time.Second, time.Millisecond)

	close(f.adoptions.release)
	wg.Wait()

	outcomes := []pettypes.Outcome{results[0].Outcome, results[1].Outcome}
	require.ElementsMatch(t, []pettypes.Outcome{pettypes.OutcomeAdded, pettypes.OutcomeAlreadyAdded}, outcomes)
	require.Equal(t, 1, f.adoptions.requestCount())
	require.Equal(t, 1, f.adoptions.activeCount())
}

func TestRequestAdopt_WaitingCallerStopsWhenDismissed(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(7, 1))
	f.adoptions.release = make(chan struct{})
	f.adoptions.entered = make(chan struct{}, 1)

	first := make(chan pettypes.AdoptResult, 1)
	go func() {
		res, _ := f.svc.RequestAdopt(context.Background(), 7, 3)
		first <- res
	}()
	<-f.adoptions.entered

	ctx, cancel := context.WithCancel(context.Background())
	waiting := make(chan error, 1)
	go func() {
		_, err := f.svc.RequestAdopt(ctx, 7, 3)
		waiting <- err
	}()
	require.Eventually(t, func() bool {
		return f.svc.flight.Waiting(adoptKey{petID: 7, userID: 3}) == 1
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-waiting, context.Canceled)

	close(f.adoptions.release)
	require.Equal(t, pettypes.OutcomeAdded, (<-first).Outcome)
	require.Equal(t, 1, f.adoptions.requestCount())
}

func TestRequestAdopt_OwnPetBlockedWithoutRemoteCall(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))

	res, err := f.svc.RequestAdopt(context.Background(), 42, 10)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeBlocked, res.Outcome)
	require.Contains(t, res.Message, "own pet")
	require.Zero(t, f.adoptions.requestCount())
	require.Zero(t, f.directory.calls)
}

func TestRequestAdopt_CacheMissFetchesPet(t *testing.T) {
	f := newAdoptionFixture(t)
	f.directory.pets[42] = availablePet(42, 10)

	res, err := f.svc.RequestAdopt(context.Background(), 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, res.Outcome)
	require.Equal(t, 1, f.directory.calls)

	cached, err := f.catalog.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(10), cached.OwnerID)
}

func TestAdoptionScenario_StatusFollowsTermAndHandoff(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	ctx := context.Background()

	res, err := f.svc.RequestAdopt(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, res.Outcome)
	require.Equal(t, domain.StatusAvailable, f.directory.status(42))

	_, err = f.svc.CompleteAdoption(ctx, 42, 20, func(context.Context) error {
		f.order = append(f.order, "handoff")
		return nil
	})
	require.ErrorIs(t, err, ErrTermNotEmailed)
	require.Empty(t, f.order)
	require.Equal(t, domain.StatusAvailable, f.directory.status(42))

	f.terms.markEmailed(42, 20)
	done, err := f.svc.CompleteAdoption(ctx, 42, 20, func(context.Context) error {
		f.order = append(f.order, "handoff")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, done.StatusErr)
	require.NoError(t, done.HandoffErr)
	require.Equal(t, []string{"status", "handoff"}, f.order)
	require.Equal(t, domain.StatusAdopted, f.directory.status(42))

	local, err := f.catalog.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAdopted, local.Status)
}

func TestCompleteAdoption_StatusFailureDoesNotBlockHandoff(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	f.directory.statusErr = remoteerr.Classify("update status", 503, "upstream down")
	f.terms.markEmailed(42, 20)
	handedOff := false

	done, err := f.svc.CompleteAdoption(context.Background(), 42, 20, func(context.Context) error {
		handedOff = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, handedOff)
	require.ErrorIs(t, done.StatusErr, remoteerr.ErrTransient)
	require.Contains(t, f.logs.String(), "adopted status write failed")
	require.Contains(t, f.logs.String(), `"level":"ERROR"`)

	local, err := f.catalog.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAvailable, local.Status)
}

func TestCompleteAdoption_RefusedUntilTermEmailed(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	ctx := context.Background()
	res, err := f.svc.RequestAdopt(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, res.Outcome)

	handedOff := false
	_, err = f.svc.CompleteAdoption(ctx, 42, 20, func(context.Context) error {
		handedOff = true
		return nil
	})
	require.ErrorIs(t, err, ErrTermNotEmailed)
	require.False(t, handedOff)
	require.Equal(t, domain.StatusAvailable, f.directory.status(42))

	f.terms.markEmailed(42, 21)
	_, err = f.svc.CompleteAdoption(ctx, 42, 20, nil)
	require.ErrorIs(t, err, ErrTermNotEmailed)

	f.terms.err = remoteerr.Classify("fetch term", 503, "upstream down")
	_, err = f.svc.CompleteAdoption(ctx, 42, 20, nil)
	require.ErrorIs(t, err, remoteerr.ErrTransient)
	require.False(t, handedOff)
	require.Equal(t, 3, f.terms.checks)
}

func TestRequestAdopt_ReadoptionNeedsConfirmation(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	f.adoptions.released[adoptKey{petID: 42, userID: 20}] = true
	ctx := context.Background()

	_, err := f.svc.ConfirmReadoption(ctx, 42, 20)
	require.ErrorIs(t, err, ErrNoReadoptionOffer)

	res, err := f.svc.RequestAdopt(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeReadoptionOffered, res.Outcome)
	require.Equal(t, 1, f.adoptions.requestCount())
	require.Zero(t, f.gate.presented)

	confirmed, err := f.svc.ConfirmReadoption(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, confirmed.Outcome)
	require.Equal(t, 1, f.gate.presented)
	require.True(t, f.adoptions.requests[1].Force)

	_, err = f.svc.ConfirmReadoption(ctx, 42, 20)
	require.ErrorIs(t, err, ErrNoReadoptionOffer)
}

func TestRequestAdopt_Classification(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		outcome pettypes.Outcome
	}{
		{"self adoption", remoteerr.Classify("create", 400, "Você não pode adotar seu próprio pet"), pettypes.OutcomeBlocked},
		{"server error", remoteerr.Classify("create", 502, "bad gateway"), pettypes.OutcomeRetryable},
		{"unknown text", remoteerr.Classify("create", 400, "algo estranho aconteceu"), pettypes.OutcomeRetryable},
		{"plain error", errors.New("socket closed"), pettypes.OutcomeRetryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAdoptionFixture(t, availablePet(42, 10))
			f.adoptions.err = tc.err
			res, err := f.svc.RequestAdopt(context.Background(), 42, 20)
			require.NoError(t, err)
			require.Equal(t, tc.outcome, res.Outcome)
			require.NotEmpty(t, res.Message)
		})
	}
}

func TestRequestAdopt_UnknownMessageLoggedAsWarning(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	f.adoptions.err = remoteerr.Classify("create", 400, "algo estranho aconteceu")

	res, err := f.svc.RequestAdopt(context.Background(), 42, 20)
	require.NoError(t, err)
	require.Equal(t, "algo estranho aconteceu", res.Message)
	require.Contains(t, f.logs.String(), `"level":"WARN"`)
	require.Contains(t, f.logs.String(), "algo estranho aconteceu")
}

func TestRequestAdopt_SessionExpiredIsFatal(t *testing.T) {
	f := newAdoptionFixture(t, availablePet(42, 10))
	f.adoptions.err = remoteerr.Classify("create", 401, "Token expirado")

	_, err := f.svc.RequestAdopt(context.Background(), 42, 20)
	require.ErrorIs(t, err, remoteerr.ErrSession)
}

func TestConfirmReadoption_DefaultsToNoSponsorGate(t *testing.T) {
	directory := newFakeDirectory(availablePet(42, 10))
	adoptions := newFakeAdoptions()
	adoptions.released[adoptKey{petID: 42, userID: 20}] = true
	svc := NewOrchestrator(seededCatalog(t, availablePet(42, 10)), directory, adoptions,
		directoryFinalizer{dir: directory}, &fakeTerms{emailed: map[adoptKey]bool{}},
		WithSponsorGate(nil))
	ctx := context.Background()

	res, err := svc.RequestAdopt(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeReadoptionOffered, res.Outcome)

	res, err = svc.ConfirmReadoption(ctx, 42, 20)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, res.Outcome)
}
