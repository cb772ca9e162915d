package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/model"
)

func TestIntersect(t *testing.T) {
	assert.Equal(t, []int64{2, 3}, intersect([]int64{3, 1, 2}, []int64{2, 3, 4}))
	assert.Equal(t, []int64{}, intersect([]int64{1}, []int64{2}))
	assert.Equal(t, []int64{5}, intersect([]int64{5, 5}))
	assert.Equal(t, []int64{}, intersect([]int64{1, 2}, nil))
	assert.Nil(t, intersect())
}

func TestCatalog_ResolveFoldsCase(t *testing.T) {
	store := newMemStore()
	store.facets[model.FacetCuisine] = []model.Facet{
		{ID: 1, Name: "Italian"},
		{ID: 2, Name: "Straße Food"},
		{ID: 3, Name: "Crème Brûlée"},
	}
	c := NewCatalog(store, nil)

	ids, err := c.Resolve(context.Background(), model.FacetCuisine,
		[]string{"ITALIAN", "strasse food", "CRÈME BRÛLÉE", "italian", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = c.Resolve(context.Background(), model.FacetCuisine, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestCatalog_CacheReadFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.facets[model.FacetDietary] = []model.Facet{{ID: 9, Name: "Vegan"}}
	cache := &memCache{getErr: errors.New("redis: connection refused")}
	c := NewCatalog(store, cache)

	facets, err := c.List(context.Background(), model.FacetDietary)
	require.NoError(t, err)
	assert.Equal(t, []model.Facet{{ID: 9, Name: "Vegan"}}, facets)
	assert.Equal(t, 1, store.callCount("ListFacets"))
}

func TestCatalog_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("relation does not exist")
	c := NewCatalog(store, &memCache{})

	_, err := c.List(context.Background(), model.FacetCuisine)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load cuisine catalog")
}

func TestService_SelectFacetsUnionsIDsAndNames(t *testing.T) {
	svc := NewService(torontoStore())

	q := NewQuery()
	q.Cuisines = FacetFilter{IDs: []int64{mexican}, Names: []string{"italian", "Mexican"}}

	sel, err := svc.selectFacets(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{italian, mexican}, sel[model.FacetCuisine])
	_, dietary := sel[model.FacetDietary]
	assert.False(t, dietary)
	assert.False(t, sel.unmatched())
}

func TestService_CandidatesWithoutFacets(t *testing.T) {
	store := torontoStore()
	svc := NewService(store)

	ids, empty, err := svc.candidates(context.Background(), facetSelection{}, ModeDeals)
	require.NoError(t, err)
	assert.Nil(t, ids)
	assert.False(t, empty)
	assert.Equal(t, 0, store.callCount("FacetCandidates"))
}

func TestService_CandidatesDealMode(t *testing.T) {
	svc := NewService(torontoStore())

	ids, empty, err := svc.candidates(context.Background(), facetSelection{
		model.FacetCuisine: {italian, japanese},
		model.FacetDietary: {halal, vegan},
	}, ModeDeals)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, []int64{101, 105}, ids)
}
