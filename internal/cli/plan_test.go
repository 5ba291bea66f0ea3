package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/testutil"
)

func newPlanCmd(format string, args ...string) (*bytes.Buffer, func() error) {
	buf := &bytes.Buffer{}
	opts := &RootOptions{Format: format}
	cmd := NewPlanCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute
}

func TestPlanPlanOnly(t *testing.T) {
	buf, run := newPlanCmd("text", "--type", "swipe", "--where", "date==2025-06-06", "--plan-only")
	require.NoError(t, run())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan_swipe", buf.Bytes())
}

func TestPlanExecutesQuery(t *testing.T) {
	buf, run := newPlanCmd("json", "--type", "employee", "--id", "emp_002:employee")
	require.NoError(t, run())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RequestID string            `json:"request_id"`
			Plan      string            `json:"plan"`
			Objects   []json.RawMessage `json:"sa_objects"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Data.Plan, "for ids: emp_002:employee")
	require.Len(t, resp.Data.Objects, 1)
	assert.Contains(t, string(resp.Data.Objects[0]), `"favorite_color":"green"`)
}

func TestPlanFixedRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := &PlanOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDGenerator: testutil.NewFixedIDGenerator("req-1"),
		Type:        "simple",
	}

	cmd := NewPlanCommand(opts.RootOptions)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	require.NoError(t, runPlan(opts, cmd))

	var resp struct {
		Data planResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.Data.RequestID)
}

func TestPlanDeclined(t *testing.T) {
	buf, run := newPlanCmd("text", "--type", "swipe")

	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Declined [PROVIDER_DECLINED]")
}

func TestPlanUnsupportedType(t *testing.T) {
	buf, run := newPlanCmd("json", "--type", "badge")

	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRequest, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(lazyload.ErrCodeUnsupportedType), details["code"])
}

func TestPlanBadCondition(t *testing.T) {
	_, run := newPlanCmd("text", "--type", "swipe", "--where", "date")

	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlanWithManifest(t *testing.T) {
	buf, run := newPlanCmd("text", manifestDir+"/demo.cue", "--type", "simple")
	require.NoError(t, run())

	assert.Contains(t, buf.String(), "Objects: 1")
	assert.Contains(t, buf.String(), "simple_001 (simple)")
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(&PlanOptions{
		Type:  "employee",
		Where: []string{"__id__ == 'emp_001'"},
		IDs:   []string{"emp_001:employee", "emp_001:employee"},
	})
	require.NoError(t, err)

	assert.Equal(t, "employee", req.Scope.Type)
	assert.Equal(t, []lazyload.Condition{lazyload.Eq(lazyload.IDField, "emp_001")}, req.Conditions)
	assert.Len(t, req.IDTypes, 1)

	_, err = buildRequest(&PlanOptions{Type: "employee", IDs: []string{"nocolon"}})
	assert.Error(t, err)
}
