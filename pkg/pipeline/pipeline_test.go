// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/gitworkspace"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// initOrigin creates a tiny single-package Go repo with a README so the
// classifier/outline/sectiongen stages have something real to walk.
func initOrigin(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "origin")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	runGit(t, dir, "init", "-q", "-b", "main")
	runGit(t, dir, "config", "user.email", "a@example.com")
	runGit(t, dir, "config", "user.name", "tester")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Widgets\n\nA small widget library.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widgets.go"), []byte("package widgets\n\nfunc New() int { return 1 }\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-qm", "init")
	return dir
}

func commitMore(t *testing.T, dir, file, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-qm", msg)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Engine: store.EngineMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// scriptedGateway serves every stage from one fake OpenAI endpoint: the
// first call gets classifyReply, the second outlineReply, any streaming
// call docsReply (SSE-framed), and any later non-streaming call
// miniMapReply when its system prompt mentions the mini-map, otherwise
// overviewReply.
func scriptedGateway(t *testing.T, classifyReply, outlineReply, docsReply, overviewReply, miniMapReply string) *llmgateway.Gateway {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var system string
		if len(body.Messages) > 0 {
			system = body.Messages[0].Content
		}

		idx := calls.Add(1) - 1
		// Call order across one Run: classify, outline, then
		// concurrently {section (streamed), overview, mini-map}. The
		// concurrent trio is distinguished by wire shape (stream flag)
		// and by a distinct marker phrase each stage's system prompt
		// carries, since goroutine scheduling leaves their arrival
		// order undefined.
		var reply string
		switch {
		case idx == 0:
			reply = classifyReply
		case idx == 1:
			reply = outlineReply
		case body.Stream:
			reply = docsReply
		case strings.Contains(system, "mini-map"):
			reply = miniMapReply
		default:
			reply = overviewReply
		}

		if body.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			quoted, _ := json.Marshal(reply)
			_, _ = w.Write([]byte("data: {\"choices\": [{\"delta\": {\"content\": " + string(quoted) + "}}]}\n\n"))
			_, _ = w.Write([]byte("data: {\"choices\": [{\"delta\": {}, \"finish_reason\": \"stop\"}]}\n\n"))
			_, _ = w.Write([]byte("data: [DONE]\n\n"))
			return
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

const docsReply = `<docs>Widgets provides a single constructor, New.</docs>`
const overviewReply = `<blog>A small widget library with one constructor.</blog>`
const miniMapReplyBody = `<mini_map>{"title": "Widgets", "url": "/", "children": []}</mini_map>`

func forestReply(titles ...string) string {
	nodes := make([]map[string]any, 0, len(titles))
	for _, title := range titles {
		nodes = append(nodes, map[string]any{"title": title, "prompt": "Describe " + title + "."})
	}
	raw, _ := json.Marshal(nodes)
	return "<documentation_structure>\n" + string(raw) + "\n</documentation_structure>"
}

func newOrchestrator(t *testing.T, gw *llmgateway.Gateway) (*Orchestrator, *store.Store, string) {
	t.Helper()
	st := newTestStore(t)
	ws := gitworkspace.New(t.TempDir(), nil)
	o := New(Config{
		Workspace: ws, Store: st, Gateway: gw, Model: "gpt-4o-mini",
		MaxTreeBytes: 32 * 1024, SectionConcurrency: 2,
	})
	return o, st, ""
}

func TestRun_DrivesFreshRepositoryAllTheWayToCompleted(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)

	require.NoError(t, o.Run(context.Background(), repo.ID))

	final, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, final.Status)
	require.NotEmpty(t, final.Version)
	require.Equal(t, "application", final.Classification)

	doc, err := st.GetDocument(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Contains(t, doc.Overview, "widget library")
	require.Equal(t, 1, doc.TotalLeaves)
	require.Equal(t, 1, doc.CompletedLeaves)
}

func TestRun_ResumesFromClassifiedStatusWithoutReCloning(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "ignored-classify-not-reached", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)

	tree := "root/\n  widgets.go\n"
	classifiedStatus := store.StatusClassified
	classification := "application"
	require.NoError(t, st.UpdateRepository(context.Background(), repo.ID, store.RepositoryPatch{
		Status: &classifiedStatus, Classification: &classification, TreeListing: &tree,
	}))

	require.NoError(t, o.Run(context.Background(), repo.ID))

	final, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, final.Status)
}

func TestRun_FailedStatusReturnsErrorWithoutRetrying(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)

	failedStatus := store.StatusFailed
	failMsg := "disk full"
	require.NoError(t, st.UpdateRepository(context.Background(), repo.ID, store.RepositoryPatch{Status: &failedStatus, Error: &failMsg}))

	err = o.Run(context.Background(), repo.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "FAILED state")
}

func TestRun_InvalidCloneAddressMarksRepositoryFailed(t *testing.T) {
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "not-a-valid-address",
	})
	require.NoError(t, err)

	err = o.Run(context.Background(), repo.ID)
	require.Error(t, err)

	final, getErr := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, getErr)
	require.Equal(t, store.StatusFailed, final.Status)
	require.NotEmpty(t, final.Error)
}

func TestUpdate_NoNewCommitsOnlyRefreshesHeartbeat(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), repo.ID))

	before, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)

	require.NoError(t, o.Update(context.Background(), repo.ID))

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, after.Status)
	require.Equal(t, before.Version, after.Version)
}

func TestUpdate_NewCommitRegeneratesAndReturnsToCompleted(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), repo.ID))

	commitMore(t, origin, "widgets.go", "package widgets\n\nfunc New() int { return 2 }\n", "bump")

	require.NoError(t, o.Update(context.Background(), repo.ID))

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, after.Status)

	before, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.NotEqual(t, "", before.Version)

	commits, err := st.ListCommitRecords(context.Background(), repo.ID, 10)
	require.NoError(t, err)
	require.Len(t, commits, 2)
}

func TestUpdate_NonCompletedRepositoryIsANoop(t *testing.T) {
	origin := initOrigin(t)
	gw := scriptedGateway(t, "application", forestReply("Overview"), docsReply, overviewReply, miniMapReplyBody)
	o, st, _ := newOrchestrator(t, gw)

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "file://" + origin,
	})
	require.NoError(t, err)

	require.NoError(t, o.Update(context.Background(), repo.ID))

	final, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusPending, final.Status)
}
