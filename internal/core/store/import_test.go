package store

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/solatis/segmentkeeper/internal/audience"
	"github.com/solatis/segmentkeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersJSONL = `{"name":"Ada","email":"ada@example.com","totalSpend":1500,"visitCount":4,"lastPurchaseDate":"2025-01-10"}

{"id":"c-grace","name":"Grace","totalSpend":20,"visitCount":1}
{"name":"Linus","totalSpend":5000,"visitCount":12,"lastPurchaseDate":"2024-06-01T10:00:00Z"}
`

func TestImportCustomers(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	n, err := ImportCustomers(ctx, s, strings.NewReader(customersJSONL))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byName := map[string]types.Customer{}
	require.NoError(t, s.ForEachCustomer(ctx, func(c *types.Customer) error {
		byName[c.Name] = *c
		return nil
	}))
	require.Len(t, byName, 3)
	assert.Equal(t, types.CustomerID("c-grace"), byName["Grace"].ID)
	assert.NotEmpty(t, byName["Ada"].ID)
	assert.True(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).Equal(byName["Ada"].LastPurchaseDate))
	assert.True(t, byName["Grace"].LastPurchaseDate.IsZero())

	t.Run("feeds the dataset estimator", func(t *testing.T) {
		est, err := audience.NewDatasetEstimator(s).Estimate(ctx, []types.Rule{
			{Field: types.FieldTotalSpend, Operator: types.OpGreaterThan, Value: "1000"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, est.AudienceSize)
	})

	t.Run("random estimator ignores customers", func(t *testing.T) {
		est, err := audience.NewRandomEstimator(rand.NewPCG(7, 7)).Estimate(ctx, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, est.AudienceSize, 100)
	})
}

func TestImportCustomersRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{\"name\":\"Ada\"}\n{oops}\n", "line 2"},
		{"bad date", `{"name":"Ada","lastPurchaseDate":"yesterday"}`, "lastPurchaseDate"},
		{"negative spend", `{"name":"Ada","totalSpend":-1}`, "totalSpend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSQLStore(t)
			_, err := ImportCustomers(context.Background(), s, strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
