package demo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
)

var fixedNow = time.Date(2025, 6, 6, 14, 3, 0, 0, time.UTC)

func newProtocol(t *testing.T) *lazyload.Protocol {
	t.Helper()
	p := New(WithNow(func() time.Time { return fixedNow }))
	proto, err := lazyload.NewProtocol(p.Info().Scopes, p.Query())
	require.NoError(t, err)
	return proto
}

func TestFetch(t *testing.T) {
	objs, err := New(WithNow(func() time.Time { return fixedNow })).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, objs, 3)

	alice := objs[0]
	assert.Equal(t, "emp_001", alice.ID)
	assert.Equal(t, []string{"person", "employee"}, alice.Types)
	assert.Equal(t, model.String("2025-06-06T14:03:00Z"), alice.Properties["hired_at"])
	assert.Equal(t, model.Map{
		"query": model.String("swipe[.employee_id == 'emp_001']"),
		"label": model.String("Swipes"),
	}, alice.Properties["swipes"])
	assert.Equal(t, model.String("2025-06-04"), objs[2].Properties["date"])
}

func TestInfo_ScopesAreValid(t *testing.T) {
	info := New().Info()
	assert.Equal(t, Name, info.Name)
	require.NoError(t, lazyload.ValidateScopes(info.Scopes))
}

func TestQuery_SwipesForWeekday(t *testing.T) {
	resp, err := newProtocol(t).Execute(context.Background(), lazyload.Request{
		Scope:      lazyload.Scope{Type: "swipe"},
		Conditions: []lazyload.Condition{lazyload.Eq("date", "2025-06-06")},
	})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Objects, 20)

	first := resp.Objects[0]
	assert.True(t, strings.HasPrefix(first.ID, "swipe_"))
	assert.Equal(t, model.String("emp_001"), first.Properties["employee_id"])
	assert.Equal(t, model.String("entrance"), first.Properties["entrance_or_exit"])
	assert.Equal(t, model.String("2025-06-06"), first.Properties["date"])

	ts := string(first.Properties["timestamp"].(model.String))
	at, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, at.Hour(), 7)
	assert.LessOrEqual(t, at.Hour(), 9)

	link := first.Properties["next_entrance"].(model.Map)
	assert.Equal(t, model.String("swipe[.employee_id == 'emp_001'][.entrance_or_exit == 'entrance'][.date == '2025-06-07']"), link["query"])
}

func TestQuery_SwipesDeterministic(t *testing.T) {
	day := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	a, err := SwipesForDate(day)
	require.NoError(t, err)
	b, err := SwipesForDate(day)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := SwipesForDate(day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.NotEqual(t, a[0].ID, other[0].ID)
}

func TestQuery_WeekendHasNoSwipes(t *testing.T) {
	swipes, err := SwipesForDate(time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, swipes)
}

func TestQuery_SwipeDeclines(t *testing.T) {
	tests := []struct {
		name  string
		conds []lazyload.Condition
		msg   string
	}{
		{"no date", nil, "must include a 'date' condition"},
		{"operator", []lazyload.Condition{{Field: "date", Operator: ">", Value: "2025-06-06"}}, "only '=='"},
		{"format", []lazyload.Condition{lazyload.Eq("date", "06/06/2025")}, "invalid date format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newProtocol(t).Execute(context.Background(), lazyload.Request{
				Scope:      lazyload.Scope{Type: "swipe"},
				Conditions: tt.conds,
			})
			require.NoError(t, err)
			require.NotNil(t, resp.Error)
			assert.Equal(t, lazyload.ErrCodeProviderDeclined, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.msg)
		})
	}
}

func TestQuery_Employee(t *testing.T) {
	proto := newProtocol(t)

	resp, err := proto.Execute(context.Background(), lazyload.Request{
		Scope:   lazyload.Scope{Type: "employee"},
		IDTypes: lazyload.NewIDTypeSet(lazyload.IDType{ID: "emp_001", Type: "employee"}),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Objects, 1)
	assert.Equal(t, model.Int(42), resp.Objects[0].Properties["favorite_number"])
	assert.Equal(t, "hr_system_extra", resp.Objects[0].Source)

	resp, err = proto.Execute(context.Background(), lazyload.Request{
		Scope:   lazyload.Scope{Type: "employee"},
		IDTypes: lazyload.NewIDTypeSet(lazyload.IDType{ID: "badge_9", Type: "badge"}),
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
	assert.Empty(t, resp.Objects, "no employee ids means no objects")
}

func TestQuery_EmployeeDeclines(t *testing.T) {
	proto := newProtocol(t)

	resp, err := proto.Execute(context.Background(), lazyload.Request{
		Scope: lazyload.Scope{Type: "employee"},
		IDTypes: lazyload.NewIDTypeSet(
			lazyload.IDType{ID: "emp_001", Type: "employee"},
			lazyload.IDType{ID: "emp_002", Type: "employee"},
		),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "one employee at a time, got 2")

	resp, err = proto.Execute(context.Background(), lazyload.Request{
		Scope:   lazyload.Scope{Type: "employee"},
		IDTypes: lazyload.NewIDTypeSet(lazyload.IDType{ID: "emp_404", Type: "employee"}),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "not found")
}

func TestQuery_EmployeeByIDCondition(t *testing.T) {
	objs, _, err := New().query(context.Background(), Scopes()[1],
		[]lazyload.Condition{lazyload.Eq(lazyload.IDField, "emp_003")}, false, nil)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "emp_003", objs[0].ID)
}

func TestQuery_Simple(t *testing.T) {
	resp, err := newProtocol(t).Execute(context.Background(), lazyload.Request{Scope: lazyload.Scope{Type: "simple"}})
	require.NoError(t, err)
	require.Len(t, resp.Objects, 1)
	assert.Equal(t, "simple_001", resp.Objects[0].ID)
}

func TestQuery_UnknownTypeDeclined(t *testing.T) {
	_, _, err := New().query(context.Background(), lazyload.Scope{Type: "badge"}, nil, false, nil)
	assert.True(t, lazyload.IsDeclined(err))
}

func TestSwipeID(t *testing.T) {
	id := SwipeID("emp_001", "2025-06-06", "entrance")
	assert.Len(t, id, len("swipe_")+8)
	assert.Equal(t, id, SwipeID("emp_001", "2025-06-06", "entrance"))
	assert.NotEqual(t, id, SwipeID("emp_001", "2025-06-06", "exit"))
}
