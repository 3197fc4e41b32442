package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"plan-service/internal/common/apperror"
	"plan-service/internal/planner/geometry"
	"plan-service/internal/planner/llm"
	"plan-service/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider выдает заранее заданные ответы по одному на вызов.
type fakeProvider struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	content string
	err     error
}

func (f *fakeProvider) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return nil, llm.NewTransientError(llm.CodeProvider, errors.New("no scripted response"))
	}
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{
		Content: r.content,
		Usage:   models.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

const validPlanJSON = `{
	"buildingType": "Residential",
	"buildingDimensions": {"width": 40, "depth": 30},
	"floors": [{"level": "Ground", "rooms": [
		{"name": "Living Room", "dimensions": {"length": 14, "width": 16}, "position": {"x": 0, "y": 0}},
		{"name": "Kitchen", "areaSqft": 120, "dimensions": {"length": 10, "width": 12}, "position": {"x": 16, "y": 0}}
	]}]
}`

// overlapPlanJSON проваливает геометрию: две комнаты друг на друге.
const overlapPlanJSON = `{
	"buildingDimensions": {"width": 20, "depth": 20},
	"floors": [{"rooms": [
		{"name": "Room A", "dimensions": {"length": 10, "width": 10}, "position": {"x": 0, "y": 0}},
		{"name": "Room B", "dimensions": {"length": 10, "width": 10}, "position": {"x": 5, "y": 5}}
	]}]
}`

func testConfig() GeneratorConfig {
	cfg := DefaultGeneratorConfig()
	cfg.BaseDelay = time.Millisecond
	return cfg
}

func newTestGenerator(provider Provider) *Generator {
	return NewGenerator(provider, geometry.NewValidator(geometry.DefaultTolerances()), nil, testConfig())
}

func TestGenerateAcceptsValidPlanFirstAttempt(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{{content: validPlanJSON}}}
	g := newTestGenerator(provider)

	result, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.NotEmpty(t, result.PlanID)
	assert.Equal(t, 30, result.Usage.TotalTokens)
	assert.Empty(t, result.ValidationWarnings)
	require.Len(t, result.Plan.Floors, 1)
}

func TestGenerateRetriesOnGeometryViolations(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{
		{content: overlapPlanJSON},
		{content: validPlanJSON},
	}}
	g := newTestGenerator(provider)

	result, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.Empty(t, result.ValidationWarnings)
}

func TestGenerateAcceptsWithWarningsOnFinalAttempt(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{
		{content: overlapPlanJSON},
		{content: overlapPlanJSON},
		{content: overlapPlanJSON},
	}}
	g := newTestGenerator(provider)

	result, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.NoError(t, err, "final attempt must return a plan, not an error")

	assert.Equal(t, 3, provider.calls, "provider invoked at most MaxAttempts times")
	assert.NotEmpty(t, result.ValidationWarnings)
	assert.NotNil(t, result.Plan)
}

func TestGenerateEmptyResponseRetried(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{
		{content: "   "},
		{content: validPlanJSON},
	}}
	g := newTestGenerator(provider)

	result, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.NotNil(t, result.Plan)
}

func TestGenerateNonRetryableFailsImmediately(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{
		{err: llm.NewFatalError(llm.CodeQuotaExceeded, errors.New("quota exceeded"))},
	}}
	g := newTestGenerator(provider)

	_, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.Error(t, err)

	appErr := apperror.From(err)
	assert.Equal(t, apperror.KindQuotaExceeded, appErr.Kind)
	assert.Equal(t, 1, provider.calls, "fatal errors must not be retried")
}

func TestGenerateRateLimitExhaustion(t *testing.T) {
	rateLimited := fakeResponse{err: llm.NewTransientError(llm.CodeRateLimited, errors.New("429"))}
	provider := &fakeProvider{responses: []fakeResponse{rateLimited, rateLimited, rateLimited}}
	g := newTestGenerator(provider)

	_, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.Error(t, err)

	appErr := apperror.From(err)
	assert.Equal(t, apperror.KindRateLimited, appErr.Kind)
	assert.Equal(t, 429, appErr.Status)
	assert.Equal(t, 3, provider.calls)
}

func TestGenerateStructuralResponseNotRetried(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{
		{content: `{"buildingType": "Residential"}`}, // нет floors
	}}
	g := newTestGenerator(provider)

	_, err := g.Generate(context.Background(), "a small house", models.Meta{})
	require.Error(t, err)
	assert.Equal(t, apperror.KindStructural, apperror.From(err).Kind)
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateEmptyPromptRejected(t *testing.T) {
	provider := &fakeProvider{}
	g := newTestGenerator(provider)

	_, err := g.Generate(context.Background(), "   ", models.Meta{})
	require.Error(t, err)
	assert.Equal(t, 0, provider.calls)
}

func TestGenerateCacheRoundTrip(t *testing.T) {
	provider := &fakeProvider{responses: []fakeResponse{{content: validPlanJSON}}}
	g := newTestGenerator(provider)

	first, err := g.Generate(context.Background(), "a small house", models.Meta{Style: "modern"})
	require.NoError(t, err)

	second, err := g.Generate(context.Background(), "a small house", models.Meta{Style: "modern"})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "cache hit must not call the provider")
	assert.Equal(t, first.PlanID, second.PlanID)
	assert.True(t, second.Cached)

	// другая meta — другой отпечаток
	_, err = g.Generate(context.Background(), "a small house", models.Meta{Style: "classic"})
	require.Error(t, err, "no scripted response left, so this must reach the provider")
	assert.Greater(t, provider.calls, 1)
}

func TestResultCacheTTL(t *testing.T) {
	cache := newResultCache(100, 5*time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	key := generationKey("prompt", models.Meta{})
	cache.put(key, Result{PlanID: "p1"})

	got, ok := cache.get(key)
	require.True(t, ok)
	assert.Equal(t, "p1", got.PlanID)

	// через 6 минут запись протухла
	current = current.Add(6 * time.Minute)
	_, ok = cache.get(key)
	assert.False(t, ok)
}

func TestResultCacheSweepOnInsert(t *testing.T) {
	cache := newResultCache(3, 5*time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		cache.put(generationKey(fmt.Sprintf("old-%d", i), models.Meta{}), Result{})
	}
	assert.Len(t, cache.entries, 3)

	// живые записи сверх capacity не выметаются
	cache.put(generationKey("live", models.Meta{}), Result{})
	assert.Len(t, cache.entries, 4, "only expired entries are swept")

	// после протухания старых вставка выметает именно их
	current = current.Add(6 * time.Minute)
	cache.put(generationKey("fresh", models.Meta{}), Result{})
	assert.Len(t, cache.entries, 1)
	_, ok := cache.get(generationKey("fresh", models.Meta{}))
	assert.True(t, ok)
}
