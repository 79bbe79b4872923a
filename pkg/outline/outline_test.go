// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package outline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Engine: store.EngineMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedRepository(t *testing.T, st *store.Store) string {
	t.Helper()
	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "kraklabs", Name: "docwiki", Branch: "main", Address: "https://example.com/docwiki.git",
	})
	require.NoError(t, err)
	return repo.ID
}

// gatewayWithReplies returns a Gateway whose fake provider hands back
// replies in order, one per call, so tests can script a failing attempt
// followed by a fixed one.
func gatewayWithReplies(t *testing.T, replies []string) *llmgateway.Gateway {
	t.Helper()
	var i int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := atomic.AddInt64(&i, 1) - 1
		reply := replies[len(replies)-1]
		if int(idx) < len(replies) {
			reply = replies[idx]
		}
		quoted, _ := json.Marshal(reply)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": ` + string(quoted) + `}, "finish_reason": "stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	gw, err := llmgateway.New(config.ProviderConfig{Type: "openai", Endpoint: srv.URL}, nil, observability.NewTestMetrics(), nil)
	require.NoError(t, err)
	return gw
}

const validForest = `<documentation_structure>
[{"title": "Overview", "prompt": "Describe the repository.", "children": [
	{"title": "Installation", "prompt": "Explain setup."}
]}]
</documentation_structure>`

func TestPlan_SucceedsOnFirstAttempt(t *testing.T) {
	st := newTestStore(t)
	repoID := seedRepository(t, st)
	gw := gatewayWithReplies(t, []string{validForest})

	nodes, err := Plan(context.Background(), gw, st, repoID, "gpt-4o-mini", classifier.LabelLibrary,
		RepoMeta{Organization: "kraklabs", Name: "docwiki", Branch: "main"}, "root/\n  lib.go\n", "A small library.")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "Overview", nodes[0].Title)
}

func TestPlan_RetriesAfterMissingTagThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	repoID := seedRepository(t, st)
	gw := gatewayWithReplies(t, []string{"I'm not sure what this repository does.", validForest})

	nodes, err := Plan(context.Background(), gw, st, repoID, "gpt-4o-mini", classifier.LabelApplication,
		RepoMeta{Organization: "kraklabs", Name: "docwiki", Branch: "main"}, "root/\n", "")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestPlan_RetriesAfterSchemaViolationThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	repoID := seedRepository(t, st)
	malformed := `<documentation_structure>[{"heading": "missing title field"}]</documentation_structure>`
	gw := gatewayWithReplies(t, []string{malformed, validForest})

	nodes, err := Plan(context.Background(), gw, st, repoID, "gpt-4o-mini", classifier.LabelCLITool,
		RepoMeta{Organization: "kraklabs", Name: "docwiki", Branch: "main"}, "root/\n", "")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestPlan_RetriesAfterSemanticViolationThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	repoID := seedRepository(t, st)
	duplicateSiblings := `<documentation_structure>[{"title": "Overview", "prompt": "a"}, {"title": "Overview", "prompt": "b"}]</documentation_structure>`
	gw := gatewayWithReplies(t, []string{duplicateSiblings, validForest})

	nodes, err := Plan(context.Background(), gw, st, repoID, "gpt-4o-mini", classifier.LabelFramework,
		RepoMeta{Organization: "kraklabs", Name: "docwiki", Branch: "main"}, "root/\n", "")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestPlan_ExhaustsRetriesAndReturnsPlanInvalid(t *testing.T) {
	st := newTestStore(t)
	repoID := seedRepository(t, st)
	gw := gatewayWithReplies(t, []string{"nope", "still nope", "nope again"})

	_, err := Plan(context.Background(), gw, st, repoID, "gpt-4o-mini", classifier.LabelUnknown,
		RepoMeta{Organization: "kraklabs", Name: "docwiki", Branch: "main"}, "root/\n", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "valid catalog structure")
}

func TestSystemPromptFor_HasVariantPerKnownLabel(t *testing.T) {
	for _, label := range []classifier.Label{
		classifier.LabelFramework, classifier.LabelLibrary, classifier.LabelApplication,
		classifier.LabelCLITool, classifier.LabelDevelopmentTool, classifier.LabelDocumentation,
		classifier.LabelDevopsConfiguration,
	} {
		require.Contains(t, systemPromptFor(label), promptVariants[label])
	}
	require.Contains(t, systemPromptFor(classifier.LabelUnknown), genericVariant)
}

func TestValidateSchema_RejectsMissingTitle(t *testing.T) {
	err := validateSchema(`[{"prompt": "no title here"}]`)
	require.Error(t, err)
}

func TestValidateSchema_AcceptsNestedChildren(t *testing.T) {
	err := validateSchema(`[{"title": "A", "children": [{"title": "B"}]}]`)
	require.NoError(t, err)
}
