package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "loom-test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testTemplate(version string) *schema.WorkflowTemplate {
	return &schema.WorkflowTemplate{
		Account:      "acme",
		Organization: "",
		ID:           "signup-flow",
		Version:      version,
		Label:        "Signup Flow",
		Description:  "Onboarding workflow",
		Status:       schema.StatusDraft,
		Tags:         []string{"onboarding", "core"},
		Definition: schema.WorkflowDefinition{Steps: []schema.Step{
			{ID: "aB3k9ZpQ1x", Label: "Start", Type: schema.StepTypeTrigger,
				Next: []schema.StepRef{schema.RefByID("bC4l0ApR2y")}},
			{ID: "bC4l0ApR2y", Label: "End", Type: schema.StepTypeTerminate},
		}},
		CreatedBy: "tester",
		UpdatedBy: "tester",
	}
}

func TestCreateAndGetTemplate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl := testTemplate("1.0.0")
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, tpl.Label, got.Label)
	assert.Equal(t, tpl.Description, got.Description)
	assert.Equal(t, schema.StatusDraft, got.Status)
	assert.Equal(t, tpl.Tags, got.Tags)
	require.Len(t, got.Definition.Steps, 2)
	assert.Equal(t, "aB3k9ZpQ1x", got.Definition.Steps[0].ID)
	assert.Equal(t, "bC4l0ApR2y", got.Definition.Steps[0].Next[0].ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetTemplateNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTemplate(context.Background(), "acme", "", "missing", "1.0.0")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

	_, err = s.GetTemplate(context.Background(), "acme", "", "missing", "")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestCreateDuplicateVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTemplate(ctx, testTemplate("1.0.0")))
	err := s.CreateTemplate(ctx, testTemplate("1.0.0"))
	assert.True(t, schema.IsCode(err, schema.ErrCodeDuplicateVersion))

	// A different version under the same id is fine.
	require.NoError(t, s.CreateTemplate(ctx, testTemplate("1.0.1")))
}

func TestConcurrentCreateSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateTemplate(ctx, testTemplate("2.0.0"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, schema.IsCode(err, schema.ErrCodeDuplicateVersion), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestOrganizationScopesAreDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	accountWide := testTemplate("1.0.0")
	orgScoped := testTemplate("1.0.0")
	orgScoped.Organization = "ops"
	orgScoped.Label = "Ops Signup Flow"

	require.NoError(t, s.CreateTemplate(ctx, accountWide))
	require.NoError(t, s.CreateTemplate(ctx, orgScoped))

	got, err := s.GetTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Signup Flow", got.Label)

	got, err = s.GetTemplate(ctx, "acme", "ops", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Ops Signup Flow", got.Label)
}

func TestGetLatestUsesSemverOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 0.10.0 sorts before 0.9.1 lexicographically but is the higher version.
	for _, v := range []string{"0.9.1", "0.10.0", "0.2.3"} {
		require.NoError(t, s.CreateTemplate(ctx, testTemplate(v)))
	}

	got, err := s.GetTemplate(ctx, "acme", "", "signup-flow", "")
	require.NoError(t, err)
	assert.Equal(t, "0.10.0", got.Version)
}

func TestGetLatestWithStatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	published := testTemplate("1.0.0")
	published.Status = schema.StatusPublished
	require.NoError(t, s.CreateTemplate(ctx, published))

	draft := testTemplate("1.1.0")
	require.NoError(t, s.CreateTemplate(ctx, draft))

	got, err := s.GetTemplate(ctx, "acme", "", "signup-flow", "", schema.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got.Version)

	got, err = s.GetTemplate(ctx, "acme", "", "signup-flow", "")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", got.Version)
}

func TestListTemplates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tpl := testTemplate("1.0.0")
		tpl.ID = fmt.Sprintf("flow-%d", i)
		tpl.Label = fmt.Sprintf("Flow %d", i)
		if i%2 == 0 {
			tpl.Status = schema.StatusPublished
		}
		require.NoError(t, s.CreateTemplate(ctx, tpl))
	}

	page, err := s.ListTemplates(ctx, TemplateFilter{Account: "acme", Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Templates, 3)
	assert.Equal(t, "Flow 0", page.Templates[0].Label)

	page, err = s.ListTemplates(ctx, TemplateFilter{Account: "acme", Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page.Templates, 2)

	page, err = s.ListTemplates(ctx, TemplateFilter{
		Account: "acme", Status: schema.StatusPublished, Page: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = s.ListTemplates(ctx, TemplateFilter{
		Account: "acme", Label: "Flow 1", Page: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestListTemplatesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListTemplates(ctx, TemplateFilter{Account: "acme", Page: 0})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	// Defaults and the clamp are reported on the page itself.
	page, err := s.ListTemplates(ctx, TemplateFilter{Account: "acme", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)

	page, err = s.ListTemplates(ctx, TemplateFilter{Account: "acme", Page: 1, PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
}

func TestUpdateTemplate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t0 := time.Now().UTC().Truncate(time.Second)
	tpl := testTemplate("1.0.0")
	tpl.CreatedAt = t0
	tpl.UpdatedAt = t0
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	tpl.Label = "Renamed Flow"
	tpl.UpdatedAt = t0.Add(time.Second)
	require.NoError(t, s.UpdateTemplate(ctx, tpl, &t0))

	got, err := s.GetTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Flow", got.Label)

	// The stored updated_at moved on, so the original precondition is stale.
	err = s.UpdateTemplate(ctx, tpl, &t0)
	assert.True(t, schema.IsCode(err, schema.ErrCodeVersionConflict))

	// Unconditional update always wins.
	tpl.Label = "Renamed Again"
	require.NoError(t, s.UpdateTemplate(ctx, tpl, nil))
}

func TestUpdateTemplateNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTemplate(context.Background(), testTemplate("9.9.9"), nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestDeleteTemplateIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTemplate(ctx, testTemplate("1.0.0")))

	n, err := s.DeleteTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.GetTemplate(ctx, "acme", "", "signup-flow", "1.0.0")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestAppendAndListTemplateEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, typ := range []string{EventCreated, EventSaved, EventPublished} {
		event := &TemplateEvent{
			Account:    "acme",
			TemplateID: "signup-flow",
			Version:    "1.0.0",
			Type:       typ,
			Actor:      "tester",
		}
		require.NoError(t, s.AppendTemplateEvent(ctx, event))
		assert.Equal(t, int64(i+1), event.Sequence)
	}

	// Events for another template keep their own sequence.
	other := &TemplateEvent{Account: "acme", TemplateID: uuid.NewString(), Version: "1.0.0", Type: EventCreated}
	require.NoError(t, s.AppendTemplateEvent(ctx, other))
	assert.Equal(t, int64(1), other.Sequence)

	events, err := s.ListTemplateEvents(ctx, "acme", "", "signup-flow", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, EventPublished, events[2].Type)
	assert.Equal(t, "tester", events[0].Actor)
	assert.False(t, events[0].Timestamp.IsZero())

	events, err = s.ListTemplateEvents(ctx, "acme", "", "signup-flow", 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(3), events[0].Sequence)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major())

	for _, bad := range []string{"", "1.0", "v1.0.0", "1.0.0.0", "latest"} {
		_, err := ParseVersion(bad)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation), "version %q", bad)
	}
}

func TestVacuum(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Vacuum(context.Background()))
}
