package wsrepl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrtlang/qrt/internal/stackentry"
	"github.com/qrtlang/qrt/internal/tracestore"
	"github.com/qrtlang/qrt/internal/value"
)

// fakeStore is an in-memory tracestore.Store for asserting what evalOne
// records, without a real database backend.
type fakeStore struct {
	runs []tracestore.Run
}

func (f *fakeStore) Connect(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }
func (f *fakeStore) RecordRun(ctx context.Context, run tracestore.Run) error {
	f.runs = append(f.runs, run)
	return nil
}
func (f *fakeStore) RecentRuns(ctx context.Context, limit int) ([]tracestore.Run, error) {
	return f.runs, nil
}

func TestEvalOneSuccessPersistsSessionVars(t *testing.T) {
	srv := New(nil, nil, nil)
	session := &replSession{vars: make(map[string]value.Value)}

	resp := srv.evalOne("sess-1", session, []byte("#x{3}(x);"))
	require.Empty(t, resp.Error)
	assert.Equal(t, "3", resp.Result)
	assert.Equal(t, "sess-1", resp.SessionID)

	resp2 := srv.evalOne("sess-1", session, []byte("(x);"))
	require.Empty(t, resp2.Error)
	assert.Equal(t, "3", resp2.Result)
}

func TestEvalOneFailureReportsOffsetAndStack(t *testing.T) {
	srv := New(nil, nil, nil)
	session := &replSession{vars: make(map[string]value.Value)}

	resp := srv.evalOne("sess-2", session, []byte("(nope)"))
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 6, resp.Offset, "offset lands just past the closing paren, where the lookup fails")
	assert.Empty(t, resp.Stack, "nothing was pushed before the failing lookup")
}

func TestEvalOneSessionsAreIsolated(t *testing.T) {
	srv := New(nil, nil, nil)
	sessionA := &replSession{vars: make(map[string]value.Value)}
	sessionB := &replSession{vars: make(map[string]value.Value)}

	respA := srv.evalOne("sess-a", sessionA, []byte("#x{1}(x);"))
	respB := srv.evalOne("sess-b", sessionB, []byte("#x{2}(x);"))
	require.Empty(t, respA.Error)
	require.Empty(t, respB.Error)
	assert.Equal(t, "1", respA.Result)
	assert.Equal(t, "2", respB.Result)

	respA2 := srv.evalOne("sess-a", sessionA, []byte("(x);"))
	require.Empty(t, respA2.Error)
	assert.Equal(t, "1", respA2.Result, "session A's x must not see session B's write")
}

func TestEvalOneRecordsRunToTraceStoreOnSuccessAndFailure(t *testing.T) {
	store := &fakeStore{}
	srv := New(nil, nil, store)
	session := &replSession{vars: make(map[string]value.Value)}

	srv.evalOne("sess-3", session, []byte("1;"))
	srv.evalOne("sess-3", session, []byte("(nope)"))

	require.Len(t, store.runs, 2)
	assert.Equal(t, "ok", store.runs[0].Outcome)
	assert.Equal(t, "error", store.runs[1].Outcome)
	assert.NotEmpty(t, store.runs[1].ErrorKind)
	assert.Equal(t, "sess-3", store.runs[0].RunID)
}

func TestRenderStack(t *testing.T) {
	stack := []stackentry.Entry{
		stackentry.PendingOperator{Op: '+'},
		stackentry.ValueEntry{V: value.Linear{N: 2}},
	}
	rendered := renderStack(stack)
	assert.Equal(t, []string{"Operator(+)", "Var(2)"}, rendered)
}
