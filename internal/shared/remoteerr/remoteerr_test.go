package remoteerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_MessagePatterns(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		message string
		want    Kind
	}{
		{"duplicate portuguese with accent", 400, "Este pet já existe em seus pets", KindConflict},
		{"duplicate english", 400, "Pet already added", KindConflict},
		{"self adoption", 400, "Você não pode adotar seu próprio pet", KindSelfAction},
		{"history block", 400, "Este pet já foi seu anteriormente", KindHistoryBlock},
		{"history wins over already", 400, "already adopted: previously owned by requester", KindHistoryBlock},
		{"session", 401, "Token expirado", KindSession},
		{"delivery", 502, "Falha ao enviar e-mail para doador", KindDelivery},
		{"validation", 400, "assinatura é obrigatória", KindValidation},
		{"server error without pattern", 503, "upstream exploded", KindTransient},
		{"unknown", 400, "something odd happened", KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify("op", tc.status, tc.message)
			assert.Equal(t, tc.want, got.Kind)
			assert.Equal(t, tc.status, got.Status)
		})
	}
}

func TestClassify_StatusFallback(t *testing.T) {
	require.Equal(t, KindSession, Classify("op", http.StatusUnauthorized, "").Kind)
	require.Equal(t, KindNotFound, Classify("op", http.StatusNotFound, "").Kind)
	require.Equal(t, KindConflict, Classify("op", http.StatusConflict, "").Kind)
}

func TestError_IsSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Classify("CreateAssociation", 400, "duplicate association"))
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrSession)
	require.Equal(t, KindConflict, KindOf(err))
	require.Equal(t, "duplicate association", MessageOf(err))
}

func TestFromTransport(t *testing.T) {
	require.Equal(t, KindCanceled, FromTransport("op", context.Canceled).Kind)
	require.Equal(t, KindTransient, FromTransport("op", context.DeadlineExceeded).Kind)
	require.Equal(t, KindUnknown, FromTransport("op", errors.New("boom")).Kind)
	require.Nil(t, FromTransport("op", nil))
}

func TestKindOf_Unclassified(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, KindCanceled, KindOf(fmt.Errorf("x: %w", context.Canceled)))
}
