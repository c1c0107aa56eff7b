package simulator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/webhooks/v6/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var now = time.Date(2025, time.June, 4, 15, 42, 0, 0, time.UTC)

func marshal(t *testing.T, v any) gjson.Result {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return gjson.ParseBytes(b)
}

func TestBuildPayload_Push(t *testing.T) {
	eventType, payload, err := BuildPayload(Request{Kind: KindPush, Author: "alice", ToBranch: "main"}, now)
	require.NoError(t, err)
	assert.Equal(t, github.PushEvent, eventType)

	p := marshal(t, payload)
	assert.Equal(t, "refs/heads/main", p.Get("ref").String())
	assert.Equal(t, "alice", p.Get("sender.login").String())
	assert.Equal(t, "2025-06-04T15:42:00Z", p.Get("head_commit.timestamp").String())
	assert.Len(t, p.Get("after").String(), 40)
	assert.Equal(t, p.Get("after").String(), p.Get("head_commit.id").String())
}

func TestBuildPayload_PullRequest(t *testing.T) {
	eventType, payload, err := BuildPayload(Request{Kind: KindPullRequest, Author: "bob", ToBranch: "main", FromBranch: "feature"}, now)
	require.NoError(t, err)
	assert.Equal(t, github.PullRequestEvent, eventType)

	p := marshal(t, payload)
	assert.Equal(t, "opened", p.Get("action").String())
	assert.Equal(t, "feature", p.Get("pull_request.head.ref").String())
	assert.Equal(t, "main", p.Get("pull_request.base.ref").String())
	assert.Equal(t, "2025-06-04T15:42:00Z", p.Get("pull_request.created_at").String())
	assert.Equal(t, gjson.Number, p.Get("pull_request.id").Type)
	assert.Positive(t, p.Get("pull_request.id").Int())
	assert.Equal(t, "bob", p.Get("pull_request.user.login").String())
	assert.Equal(t, "bob", p.Get("sender.login").String())
	assert.False(t, p.Get("pull_request.merged").Bool())
	assert.Equal(t, gjson.Null, p.Get("pull_request.merged_at").Type)
}

func TestBuildPayload_Merge(t *testing.T) {
	eventType, payload, err := BuildPayload(Request{Kind: KindMerge, Author: "carol", ToBranch: "main", FromBranch: "dev"}, now)
	require.NoError(t, err)
	assert.Equal(t, github.PullRequestEvent, eventType)

	p := marshal(t, payload)
	assert.Equal(t, "closed", p.Get("action").String())
	assert.True(t, p.Get("pull_request.merged").Bool())
	assert.Equal(t, "2025-06-04T15:42:00Z", p.Get("pull_request.merged_at").String())
	assert.Equal(t, "dev", p.Get("pull_request.head.ref").String())
	assert.Equal(t, "main", p.Get("pull_request.base.ref").String())
}

func TestBuildPayload_TimestampsDropSubseconds(t *testing.T) {
	_, payload, err := BuildPayload(Request{Kind: KindPullRequest, Author: "a", ToBranch: "main"}, now.Add(123*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, "2025-06-04T15:42:00Z", marshal(t, payload).Get("pull_request.created_at").String())
}

func TestBuildPayload_RandomPullRequestIDs(t *testing.T) {
	req := Request{Kind: KindPullRequest, Author: "a", ToBranch: "main"}
	_, first, err := BuildPayload(req, now)
	require.NoError(t, err)
	_, second, err := BuildPayload(req, now)
	require.NoError(t, err)

	assert.NotEqual(t, first.(github.PullRequestPayload).PullRequest.NodeID, second.(github.PullRequestPayload).PullRequest.NodeID)
}

func TestBuildPayload_UnknownKind(t *testing.T) {
	_, _, err := BuildPayload(Request{Kind: "release", Author: "a", ToBranch: "main"}, now)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestClient_Deliver(t *testing.T) {
	var (
		gotEvent       string
		gotContentType string
		gotBody        []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-GitHub-Event")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second, nil)
	result := client.Deliver(context.Background(), Request{Kind: KindMerge, Author: "dave", ToBranch: "main", FromBranch: "fix"})

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"status":"success"}`, result.ResponseBody)
	assert.Equal(t, "pull_request", gotEvent)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "dave", gjson.GetBytes(gotBody, "sender.login").String())
}

func TestClient_DeliverServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	result := NewClient(ts.URL, time.Second, nil).Deliver(context.Background(), Request{Kind: KindPush, Author: "a", ToBranch: "main"})
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Error(t, result.Error)
}

func TestClient_DeliverUnknownKindSendsNothing(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	result := NewClient(ts.URL, time.Second, nil).Deliver(context.Background(), Request{Kind: "tag", Author: "a", ToBranch: "main"})
	assert.ErrorIs(t, result.Error, ErrUnknownKind)
	assert.False(t, called)
}

func TestClient_DeliverUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	result := NewClient(url, time.Second, nil).Deliver(context.Background(), Request{Kind: KindPush, Author: "a", ToBranch: "main"})
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}
