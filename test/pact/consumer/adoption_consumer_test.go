//go:build pact
// +build pact

package consumer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/clients/http/adoption"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
	pacttest "github.com/Apurer/pet-adoption-engine/test/pact"
)

func TestAdoptionEngineContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	example := pacttest.ExamplePetPayload()
	petBodyMatcher := matchers.Map{
		"id":      matchers.Like(example["id"]),
		"ownerId": matchers.Like(example["ownerId"]),
		"name":    matchers.Like(example["name"]),
		"status":  matchers.Like(example["status"]),
	}
	bearer := matchers.S("Bearer " + pacttest.OwnerToken)
	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")

	pact.AddInteraction().
		Given(pacttest.StateSeeded).
		UponReceiving("a request to fetch an existing pet").
		WithRequest("GET", fmt.Sprintf("/v1/pets/%d", pacttest.ExistingPetID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(petBodyMatcher)
		})

	pact.AddInteraction().
		Given(pacttest.StateSeeded).
		UponReceiving("a request for a missing pet").
		WithRequest("GET", fmt.Sprintf("/v1/pets/%d", pacttest.MissingPetID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"title":  matchers.Like("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
				"detail": matchers.S("Pet não encontrado"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateSeeded).
		UponReceiving("an owner marking their pet adopted").
		WithRequest("PATCH", fmt.Sprintf("/v1/pets/%d/status", pacttest.OwnedPetID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{"status": matchers.Like(int(domain.StatusAdopted))})
		}).
		WillRespondWith(http.StatusNoContent)

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		client, err := adoption.New(fmt.Sprintf("http://%s:%d", host, config.Port),
			adoption.WithTimeout(5*time.Second),
			adoption.WithTokenSource(adoption.StaticToken(pacttest.OwnerToken)),
		)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pet, err := client.GetPet(ctx, pacttest.ExistingPetID)
		if err != nil {
			return fmt.Errorf("get pet: %w", err)
		}
		if pet.ID != pacttest.ExistingPetID {
			return fmt.Errorf("expected pet id %d, got %d", pacttest.ExistingPetID, pet.ID)
		}

		if _, err := client.GetPet(ctx, pacttest.MissingPetID); remoteerr.KindOf(err) != remoteerr.KindNotFound {
			return fmt.Errorf("expected not found for pet %d, got %v", pacttest.MissingPetID, err)
		}

		if err := client.UpdateStatus(ctx, pacttest.OwnedPetID, domain.StatusAdopted); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	require.NoError(t, err)
}
