package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// isolate points config and store at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKDECK_CONFIG_DIR", dir)
	t.Setenv("TASKDECK_CONFIG", "")
	t.Setenv("TASKDECK_STORE", "")
	t.Setenv("TASKDECK_STORE_PATH", filepath.Join(dir, "test.sqlite"))
	t.Setenv("TASKDECK_ENDPOINT", "")
	t.Setenv("TASKDECK_API_KEY", "")
	t.Setenv("TASKDECK_LOG_LEVEL", "error")
	t.Setenv("TASKDECK_FORMAT", "")
	return dir
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	return runCLIWithInput(t, args, "")
}

func runCLIWithInput(t *testing.T, args []string, stdin string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: taskdeck %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", env["data"])
	}
	return m
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %#v", env["data"])
	}
	return xs
}

func TestProjectsCreate_DefaultNamesFollowCount(t *testing.T) {
	isolate(t)

	p1 := dataMap(t, mustRun(t, "projects", "create"))
	if p1["name"] != "New Project 1" {
		t.Fatalf("expected New Project 1, got %#v", p1["name"])
	}
	if tasks, ok := p1["tasks"].([]any); !ok || len(tasks) != 0 {
		t.Fatalf("expected empty tasks array, got %#v", p1["tasks"])
	}
	p2 := dataMap(t, mustRun(t, "projects", "create"))
	if p2["name"] != "New Project 2" {
		t.Fatalf("expected New Project 2, got %#v", p2["name"])
	}
	named := dataMap(t, mustRun(t, "projects", "create", "--name", "  Garden  "))
	if named["name"] != "Garden" {
		t.Fatalf("expected trimmed name, got %#v", named["name"])
	}

	list := dataList(t, mustRun(t, "projects", "list"))
	if len(list) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(list))
	}
	// Creation order.
	if list[0].(map[string]any)["id"] != p1["id"] || list[2].(map[string]any)["id"] != named["id"] {
		t.Fatalf("expected insertion order, got %#v", list)
	}
}

func TestTasks_AddListRemove(t *testing.T) {
	isolate(t)

	pid := dataMap(t, mustRun(t, "projects", "create", "--name", "Home"))["id"].(string)
	task := dataMap(t, mustRun(t, "tasks", "add", pid, "  Buy milk "))
	if task["name"] != "Buy milk" {
		t.Fatalf("expected trimmed task name, got %#v", task["name"])
	}
	taskID := task["id"].(string)

	tasks := dataList(t, mustRun(t, "tasks", "list", pid))
	if len(tasks) != 1 || tasks[0].(map[string]any)["id"] != taskID {
		t.Fatalf("expected the added task, got %#v", tasks)
	}

	// Declining the prompt leaves the task alone.
	_, stderr, err := runCLIWithInput(t, []string{"tasks", "rm", pid, taskID}, "n\n")
	if !errors.Is(err, errAborted) {
		t.Fatalf("expected aborted, got %v", err)
	}
	if !strings.Contains(string(stderr), `Are you sure you want to delete "Buy milk"?`) {
		t.Fatalf("expected prompt on stderr, got:\n%s", stderr)
	}
	if n := len(dataList(t, mustRun(t, "tasks", "list", pid))); n != 1 {
		t.Fatalf("expected task to survive, got %d tasks", n)
	}

	stdout, _, err := runCLIWithInput(t, []string{"tasks", "rm", pid, taskID}, "y\n")
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(string(stdout), `"deleted":true`) {
		t.Fatalf("unexpected rm output: %s", stdout)
	}
	if n := len(dataList(t, mustRun(t, "tasks", "list", pid))); n != 0 {
		t.Fatalf("expected no tasks, got %d", n)
	}
}

func TestTasksAdd_RejectsBlankName(t *testing.T) {
	isolate(t)
	pid := dataMap(t, mustRun(t, "projects", "create"))["id"].(string)

	_, stderr, err := runCLI(t, []string{"tasks", "add", pid, "   "})
	if err == nil {
		t.Fatalf("expected error for blank name")
	}
	if !strings.Contains(string(stderr), "task name is empty") {
		t.Fatalf("unexpected stderr: %s", stderr)
	}
}

func TestNotFoundErrors(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, []string{"tasks", "list", "nope"})
	var nf notFoundError
	if !errors.As(err, &nf) || nf.kind != "project" {
		t.Fatalf("expected project not found, got %v", err)
	}

	_, _, err = runCLI(t, []string{"projects", "delete", "nope"})
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found on delete, got %v", err)
	}

	pid := dataMap(t, mustRun(t, "projects", "create"))["id"].(string)
	_, _, err = runCLI(t, []string{"tasks", "rm", "--yes", pid, "123"})
	if !errors.As(err, &nf) || nf.kind != "task" {
		t.Fatalf("expected task not found, got %v", err)
	}
}

func TestProjectsDelete(t *testing.T) {
	isolate(t)
	pid := dataMap(t, mustRun(t, "projects", "create"))["id"].(string)

	out := dataMap(t, mustRun(t, "projects", "delete", pid))
	if out["deleted"] != true {
		t.Fatalf("unexpected delete output: %#v", out)
	}
	if n := len(dataList(t, mustRun(t, "projects", "list"))); n != 0 {
		t.Fatalf("expected no projects, got %d", n)
	}
}

func TestFormatFlag_YAMLAndEDN(t *testing.T) {
	isolate(t)
	mustRun(t, "projects", "create", "--name", "Home")

	stdout, _, err := runCLI(t, []string{"--format", "yaml", "projects", "list"})
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "data:\n") || !strings.Contains(string(stdout), "name: Home") {
		t.Fatalf("unexpected yaml:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, []string{"--format", "edn", "projects", "list"})
	if err != nil {
		t.Fatalf("edn: %v", err)
	}
	if !strings.Contains(string(stdout), `:name "Home"`) || !strings.Contains(string(stdout), ":created-at") {
		t.Fatalf("unexpected edn:\n%s", stdout)
	}
}

func TestConfigShow_RedactsKeys(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TASKDECK_API_KEY", "s3cret")

	cfg := dataMap(t, mustRun(t, "config", "show"))
	st := cfg["store"].(map[string]any)
	if st["apiKey"] != "********" {
		t.Fatalf("expected redacted key, got %#v", st["apiKey"])
	}
	if st["path"] != filepath.Join(dir, "test.sqlite") {
		t.Fatalf("expected env store path, got %#v", st["path"])
	}
}

func TestStoreFlag_RemoteRequiresEndpoint(t *testing.T) {
	isolate(t)
	_, _, err := runCLI(t, []string{"--store", "remote", "projects", "list"})
	if err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestDocs(t *testing.T) {
	isolate(t)

	topics := dataMap(t, mustRun(t, "docs"))["topics"].([]any)
	found := false
	for _, x := range topics {
		if x.(map[string]any)["topic"] == "keys" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected keys topic, got %#v", topics)
	}

	stdout, _, err := runCLI(t, []string{"docs", "keys", "--raw"})
	if err != nil {
		t.Fatalf("docs --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Keys") {
		t.Fatalf("expected raw markdown, got:\n%s", stdout)
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProjectsWatch_PrintsSnapshotUntilCancelled(t *testing.T) {
	isolate(t)
	mustRun(t, "projects", "create", "--name", "Watched")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd()
	var out syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"projects", "watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), "Watched") {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for snapshot; got %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}

func TestTasksWatch_MissingProjectFails(t *testing.T) {
	isolate(t)
	_, _, err := runCLI(t, []string{"tasks", "watch", "missing"})
	var nf notFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectsPublish(t *testing.T) {
	dir := isolate(t)
	pid := dataMap(t, mustRun(t, "projects", "create", "--name", "Home"))["id"].(string)
	mustRun(t, "tasks", "add", pid, "Buy milk")

	stdout, _, err := runCLI(t, []string{"projects", "publish", pid})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Home\n") || !strings.Contains(string(stdout), "- Buy milk") {
		t.Fatalf("unexpected markdown:\n%s", stdout)
	}

	out := dataMap(t, mustRun(t, "projects", "publish", pid, "--to", filepath.Join(dir, "site")))
	written := out["written"].([]any)
	if len(written) != 1 || written[0] != filepath.Join(dir, "site", "projects", pid+".md") {
		t.Fatalf("unexpected written files: %#v", written)
	}
}
