package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/rpgify/internal/index"
	"github.com/starford/rpgify/internal/progression"
	"github.com/starford/rpgify/internal/questservice"
	"github.com/starford/rpgify/internal/storage"
	"github.com/starford/rpgify/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)

	logger := testutil.DiscardLogger()
	svc, err := questservice.NewService(store, db,
		progression.NewEngine(store, progression.WithLogger(logger)),
		progression.NewSettings("Bob", "", "Mage", nil),
		questservice.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_dashboard":
		result, err = srv.getDashboard(ctx, req)
	case "render_dashboard":
		result, err = srv.renderDashboard(ctx, req)
	case "list_quests":
		result, err = srv.listQuests(ctx, req)
	case "read_quest":
		result, err = srv.readQuest(ctx, req)
	case "create_quest":
		result, err = srv.createQuest(ctx, req)
	case "toggle_task":
		result, err = srv.toggleTask(ctx, req)
	case "search_quests":
		result, err = srv.searchQuests(ctx, req)
	case "get_quest_contract":
		result, err = srv.getQuestContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestCreateReadAndToggleQuest(t *testing.T) {
	srv, store := testServer(t)

	created := decode[questservice.QuestDetail](t, callTool(t, srv, "create_quest", map[string]any{
		"type":  "Quest",
		"title": "Dragon",
		"exp":   40,
		"tasks": []any{"find lair", "slay"},
	}))
	if created.Path != "Quests/Dragon.md" || len(created.Tasks) != 2 {
		t.Fatalf("created = %+v", created)
	}

	read := decode[questservice.QuestDetail](t, callTool(t, srv, "read_quest", map[string]any{"path": created.Path}))
	last := read.Tasks[1]

	res := decode[progression.ToggleResult](t, callTool(t, srv, "toggle_task", map[string]any{
		"path": read.Path, "line": last.Line, "checked": true, "if_match": read.Checksum,
	}))
	if !res.Changed || res.Task.Text != "slay" {
		t.Errorf("toggle = %+v", res)
	}

	r := callTool(t, srv, "toggle_task", map[string]any{
		"path": read.Path, "line": last.Line, "checked": false, "if_match": read.Checksum,
	})
	if !r.IsError || !strings.Contains(resultText(r), "read_quest") {
		t.Errorf("stale checksum should fail: %q", resultText(r))
	}

	data, _ := store.Read(read.Path)
	if !strings.Contains(string(data), "- [x] slay") {
		t.Errorf("file = %q", data)
	}
}

func TestRenderAndGetDashboard(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("q.md", []byte("---\nType: Quest\nClass: Mage\nExp: 100\n---\n- [x] done\n"))

	rendered := decode[progression.Dashboard](t, callTool(t, srv, "render_dashboard", nil))
	if len(rendered.Classes) != 1 || rendered.Classes[0].TotalExp != 100 {
		t.Fatalf("classes = %+v", rendered.Classes)
	}
	got := decode[progression.Dashboard](t, callTool(t, srv, "get_dashboard", nil))
	if got.RenderID != rendered.RenderID {
		t.Errorf("get_dashboard returned %q, want last render %q", got.RenderID, rendered.RenderID)
	}
}

func TestListAndSearchQuests(t *testing.T) {
	srv, _ := testServer(t)
	for _, title := range []string{"Alpha", "Beta"} {
		r := callTool(t, srv, "create_quest", map[string]any{"type": "Quest", "title": title})
		if r.IsError {
			t.Fatal(resultText(r))
		}
	}
	_ = callTool(t, srv, "create_quest", map[string]any{"type": "Achievement", "title": "Gamma"})

	list := decode[struct {
		Total int `json:"total"`
	}](t, callTool(t, srv, "list_quests", map[string]any{"type": "Quest"}))
	if list.Total != 2 {
		t.Errorf("total = %d, want 2", list.Total)
	}

	hits := decode[[]index.SearchResult](t, callTool(t, srv, "search_quests", map[string]any{"query": "Gamma"}))
	if len(hits) != 1 || hits[0].Path != "Achievements/Gamma.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestReadQuestMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_quest", map[string]any{"path": "nope.md"})
	if !r.IsError || !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("expected not found error, got %q", resultText(r))
	}
	if r := callTool(t, srv, "read_quest", map[string]any{}); !r.IsError {
		t.Error("expected error without path")
	}
}

func TestCreateQuestInvalid(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_quest", map[string]any{"type": "Quest", "class": "Bard"})
	if !r.IsError {
		t.Error("unknown class should be rejected")
	}
}

func TestQuestContract(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_quest_contract", nil))
	for _, want := range []string{"Complete by", "- [ ]", "complete: false"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}

	contents, err := srv.readQuestFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != questFormatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
