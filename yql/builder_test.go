package yql

import (
	"strings"
	"testing"
	"time"

	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicySelection(t *testing.T) {
	t.Run("identity collection only", func(t *testing.T) {
		email := condition.Must(condition.Contains("email", "x@y.com"))
		query, err := New("req@x.com").
			From(core.SourceUser).
			WhereOr(email).
			Build()
		require.NoError(t, err)
		assert.Contains(t, query, "owner contains req@x.com")
		assert.NotContains(t, query, "permissions contains")
	})

	t.Run("content collections", func(t *testing.T) {
		freeText := condition.Must(condition.NewFreeText("@query", 10))
		nearest := condition.Must(condition.NewVectorNearest("chunk_embeddings", "e", 10))
		query, err := New("a@b.com").
			From(core.SourceFile, core.SourceMail).
			WhereOr(freeText, nearest).
			FilterByApp("gmail").
			Build()
		require.NoError(t, err)
		assert.Contains(t, query, "from sources file, mail")
		assert.Contains(t, query, "({targetHits:10}userInput(@query))")
		assert.Contains(t, query, "({targetHits:10}nearestNeighbor(chunk_embeddings, e))")
		assert.Contains(t, query, "app contains 'gmail'")
		assert.Contains(t, query, "permissions contains a@b.com")
		assert.NotContains(t, query, "owner contains")
		assert.Equal(t, 1, strings.Count(query, "permissions contains a@b.com"))
	})

	t.Run("mixed collections", func(t *testing.T) {
		freeText := condition.Must(condition.NewFreeText("query", 10))
		query, err := New("a@b.com").
			From(core.SourceUser, core.SourceFile).
			WhereOr(freeText).
			Build()
		require.NoError(t, err)
		assert.Contains(t, query, "(owner contains a@b.com or permissions contains a@b.com)")
	})
}

func TestBuildClauseOrder(t *testing.T) {
	app := condition.Must(condition.Contains("app", "gmail"))
	query, err := New("a@b.com").
		Select("title", "app").
		From(core.SourceFile).
		Where(app).
		Limit(10).
		Offset(20).
		Timeout(1500 * time.Millisecond).
		GroupBy("all(group(app) each(output(count())))").
		OrderBy("created", core.Descending).
		OrderBy("title", core.Ascending).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		"select title, app from sources file where (app contains 'gmail' and permissions contains a@b.com)"+
			" limit 10 offset 20 timeout 1500 | all(group(app) each(output(count())))"+
			" order by created desc, title asc",
		query)
}

func TestBuildEmptyWhere(t *testing.T) {
	query, err := New("a@b.com").From(core.SourceMail).Build()
	require.NoError(t, err)
	assert.Equal(t, "select * from sources mail where (permissions contains a@b.com)", query)
}

func TestBuildWithoutPermissions(t *testing.T) {
	a := condition.Must(condition.Contains("app", "gmail"))
	b := condition.Must(condition.Contains("app", "slack"))

	t.Run("no where clause", func(t *testing.T) {
		query, err := New("").WithoutPermissions().From(core.SourceFile).Build()
		require.NoError(t, err)
		assert.Equal(t, "select * from sources file", query)
	})

	t.Run("policy-checked or renders no predicate", func(t *testing.T) {
		query, err := New("").WithoutPermissions().From(core.SourceFile).WhereOr(a, b).Build()
		require.NoError(t, err)
		assert.Equal(t, "select * from sources file where ((app contains 'gmail' or app contains 'slack'))", query)
		assert.NotContains(t, query, condition.IdentityPlaceholder)
	})
}

func TestBuildBypassedSubtree(t *testing.T) {
	a := condition.Must(condition.Contains("app", "gmail"))
	b := condition.Must(condition.Contains("app", "slack"))
	lookup := condition.Must(condition.OrWithoutPermissions(a, b))

	rendered := condition.Render(condition.ApplyPermissions(lookup, condition.AccessOwnerOrPermissions), "a@b.com")
	assert.NotContains(t, rendered, "owner contains")
	assert.NotContains(t, rendered, "permissions contains")

	query, err := New("a@b.com").From(core.SourceFile).Where(lookup).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(query, "permissions contains a@b.com"))
}

func TestBuildNestedOrGetsOwnPredicate(t *testing.T) {
	a := condition.Must(condition.Contains("app", "gmail"))
	b := condition.Must(condition.Contains("app", "slack"))
	c := condition.Must(condition.Contains("app", "drive"))
	d := condition.Must(condition.Contains("app", "notion"))

	query, err := New("a@b.com").
		From(core.SourceFile).
		WhereAnd(condition.Must(condition.NewOr(a, b)), condition.Must(condition.NewOr(c, d))).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(query, "permissions contains a@b.com"))
}

func TestBuildMultipleWhereCombineWithOr(t *testing.T) {
	a := condition.Must(condition.Contains("app", "gmail"))
	b := condition.Must(condition.Contains("app", "slack"))
	query, err := New("a@b.com").From(core.SourceFile).Where(a).Where(b).Build()
	require.NoError(t, err)
	assert.Equal(t,
		"select * from sources file where ((app contains 'gmail' or app contains 'slack') and permissions contains a@b.com)",
		query)
}

func TestBuildFilters(t *testing.T) {
	query, err := New("a@b.com").
		From(core.SourceFile).
		FilterByApp("gmail", "slack").
		FilterByEntity("ada").
		ExcludeDocIDs("d1").
		IncludeDocIDs("d2", "d3").
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		"select * from sources file where ((app contains 'gmail' or app contains 'slack') and entity contains 'ada'"+
			" and !(docId contains 'd1') and (docId contains 'd2' or docId contains 'd3') and permissions contains a@b.com)",
		query)
}

func TestBuildOmitsVacuousSets(t *testing.T) {
	app := condition.Must(condition.Contains("app", "gmail"))
	empty := condition.Must(condition.NewInclude("docId", nil))
	query, err := New("a@b.com").
		From(core.SourceFile).
		Where(empty).
		WhereAnd(app, condition.Must(condition.NewExclude("docId", nil))).
		ExcludeDocIDs().
		IncludeDocIDs().
		Build()
	require.NoError(t, err)
	assert.NotContains(t, query, "docId")
	assert.NotContains(t, query, "!()")
	assert.Equal(t, "select * from sources file where (app contains 'gmail' and permissions contains a@b.com)", query)

	t.Run("composites of empty sets are no-ops", func(t *testing.T) {
		exclude := condition.Must(condition.NewExclude("docId", nil))
		for name, b := range map[string]*Builder{
			"where or":  New("a@b.com").From(core.SourceFile).WhereOr(empty),
			"where and": New("a@b.com").From(core.SourceFile).WhereAnd(empty, exclude),
		} {
			t.Run(name, func(t *testing.T) {
				query, err := b.Build()
				require.NoError(t, err)
				assert.Equal(t, "select * from sources file where (permissions contains a@b.com)", query)
			})
		}
	})

	t.Run("empty sets are dropped from or", func(t *testing.T) {
		query, err := New("a@b.com").From(core.SourceFile).WhereOr(empty, app).Build()
		require.NoError(t, err)
		assert.Equal(t, "select * from sources file where ((app contains 'gmail') and permissions contains a@b.com)", query)
	})

	t.Run("nil is still rejected", func(t *testing.T) {
		_, err := New("a@b.com").From(core.SourceFile).WhereOr(empty, nil).Build()
		assert.ErrorIs(t, err, core.ErrNilValue)
	})
}

func TestBuildErrors(t *testing.T) {
	app := condition.Must(condition.Contains("app", "gmail"))

	tests := []struct {
		name    string
		builder *Builder
		want    error
	}{
		{"sources required", New("a@b.com").Where(app), core.ErrSourcesRequired},
		{"empty sources", New("a@b.com").From(), core.ErrSourcesRequired},
		{"invalid source", New("a@b.com").From("Bad Source"), core.ErrInvalidSource},
		{"blank identity", New(" ").From(core.SourceFile), core.ErrBlankIdentity},
		{"invalid identity", New("a b'").From(core.SourceFile), core.ErrInvalidIdentity},
		{"negative limit", New("a@b.com").From(core.SourceFile).Limit(-1), core.ErrNegativeValue},
		{"negative offset", New("a@b.com").From(core.SourceFile).Offset(-5), core.ErrNegativeValue},
		{"negative timeout", New("a@b.com").From(core.SourceFile).Timeout(-time.Second), core.ErrNegativeValue},
		{"empty composite", New("a@b.com").From(core.SourceFile).WhereOr(), core.ErrEmptyComposite},
		{"nil where", New("a@b.com").From(core.SourceFile).Where(nil), core.ErrNilValue},
		{"no select fields", New("a@b.com").From(core.SourceFile).Select(), ErrNoFields},
		{"invalid select field", New("a@b.com").From(core.SourceFile).Select("a b"), core.ErrInvalidFieldName},
		{"empty group", New("a@b.com").From(core.SourceFile).GroupBy(" "), core.ErrEmptyFragment},
		{"invalid direction", New("a@b.com").From(core.SourceFile).OrderBy("title", "up"), core.ErrInvalidDirection},
		{"raw breaks syntax", New("a@b.com").From(core.SourceFile).Where(condition.NewRaw("a contains 'x")), core.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFirstErrorWins(t *testing.T) {
	b := New("a@b.com").From(core.SourceFile).Limit(-1).Offset(-1)
	var verr *core.ValidationError
	require.ErrorAs(t, b.Err(), &verr)
	assert.Equal(t, "limit", verr.Arg)
}

func TestBuildIsDeterministic(t *testing.T) {
	build := func() string {
		freeText := condition.Must(condition.NewFreeText("query", 10))
		app := condition.Must(condition.Contains("app", "o'hare\\"))
		query, err := New("a@b.com").
			From(core.SourceUser, core.SourceMail).
			WhereOr(freeText, app).
			FilterByEntity("ada", "grace").
			ExcludeDocIDs("x", "y").
			Limit(5).
			Build()
		require.NoError(t, err)
		return query
	}
	assert.Equal(t, build(), build())
}

func TestBuildProfile(t *testing.T) {
	b := New("a@b.com").From(core.SourceFile)

	scoped, err := b.BuildProfile("hybrid")
	require.NoError(t, err)
	assert.Equal(t, "hybrid", scoped.Profile)
	query, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, query, scoped.YQL)

	_, err = b.BuildProfile("bad profile")
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}

func TestConfigSnapshot(t *testing.T) {
	b := New("a@b.com").From(core.SourceFile).Limit(3).FilterByApp("gmail")
	cfg := b.Config()
	before, err := Compile(cfg)
	require.NoError(t, err)

	b.Limit(9).FilterByApp("slack").From(core.SourceMail)
	after, err := Compile(cfg)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	*cfg.Limit = 100
	assert.Equal(t, 9, *b.Config().Limit)
}

func TestBuildFilterIsConjunct(t *testing.T) {
	from := time.UnixMilli(1700000000000)
	to := time.UnixMilli(1700086400000)
	window := condition.Must(condition.NewTimeRange("timestamp", "timestamp", condition.TimeBounds{From: from, To: to}))

	query, err := New("a@b.com").
		From(core.SourceFile).
		FilterByApp("gmail").
		Filter(window).
		Filter(condition.Must(condition.NewInclude("docId", nil))).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		"select * from sources file where (app contains 'gmail'"+
			" and (timestamp >= 1700000000000 and timestamp <= 1700086400000) and permissions contains a@b.com)",
		query)

	_, err = New("a@b.com").From(core.SourceFile).Filter(nil).Build()
	assert.ErrorIs(t, err, core.ErrNilValue)
}

func TestBuildFilterWithWhere(t *testing.T) {
	a := condition.Must(condition.Contains("app", "gmail"))
	b := condition.Must(condition.Contains("app", "slack"))
	window := condition.Must(condition.NewTimeRange("timestamp", "timestamp", condition.TimeBounds{From: time.UnixMilli(5)}))

	query, err := New("a@b.com").From(core.SourceFile).Where(a).Where(b).Filter(window).Build()
	require.NoError(t, err)
	assert.Equal(t,
		"select * from sources file where ((app contains 'gmail' or app contains 'slack') and permissions contains a@b.com"+
			" and (timestamp >= 5))",
		query)
	assert.Equal(t, 1, strings.Count(query, "permissions contains a@b.com"))
}
