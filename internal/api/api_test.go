package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/internal/registry"
	"github.com/sparod/melo/pkg/tags"
)

type apiModule struct{}

func (apiModule) ID() string { return "melo_file" }
func (apiModule) Info() registry.ModuleInfo {
	return registry.ModuleInfo{Name: "Files", Description: "Local media", ConfigID: "file"}
}

type apiBrowser struct {
	browser.Unsupported
	lastPath   string
	lastParams browser.ListParams
	lastAction browser.Action
}

func (b *apiBrowser) ID() string { return "melo_browser_file" }
func (b *apiBrowser) Info() browser.Info {
	return browser.Info{Name: "Files", SearchSupport: true, TagsSupport: true}
}

func (b *apiBrowser) GetList(_ context.Context, path string, p browser.ListParams) (*browser.List, error) {
	b.lastPath = path
	b.lastParams = p
	return &browser.List{
		Path:  path,
		Items: []browser.Item{{ID: "a", Name: "a.mp3", Type: browser.TypeMedia}},
		Count: 1,
	}, nil
}

func (b *apiBrowser) GetTags(_ context.Context, path string, fields tags.Fields) (*tags.Tags, error) {
	return &tags.Tags{Title: "T"}, nil
}

func (b *apiBrowser) Action(_ context.Context, path string, action browser.Action, _ map[string]any) error {
	b.lastPath = path
	b.lastAction = action
	return nil
}

type apiEngine struct{}

func (apiEngine) SetURI(string) error     { return nil }
func (apiEngine) Play() error             { return nil }
func (apiEngine) Pause() error            { return nil }
func (apiEngine) Stop() error             { return nil }
func (apiEngine) Seek(int64) error        { return nil }
func (apiEngine) SetVolume(float64) error { return nil }
func (apiEngine) SetMute(bool) error      { return nil }

type fixture struct {
	rpc     *jsonrpc.Registry
	browser *apiBrowser
	player  *player.Player
	list    *playlist.Playlist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New(nil)
	if err := reg.RegisterModule(apiModule{}); err != nil {
		t.Fatalf("register module: %v", err)
	}
	b := &apiBrowser{}
	if err := reg.RegisterBrowser("melo_file", b); err != nil {
		t.Fatalf("register browser: %v", err)
	}

	p := player.New("melo_player_file", "Files", nil, event.NewBus(nil))
	p.SetEngine(apiEngine{})
	pl := playlist.New("melo_playlist_file", nil, nil)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)
	if err := reg.RegisterPlayer("melo_file", p); err != nil {
		t.Fatalf("register player: %v", err)
	}
	if err := reg.RegisterPlaylist(pl); err != nil {
		t.Fatalf("register playlist: %v", err)
	}

	rpc := jsonrpc.NewRegistry(nil)
	Register(rpc, reg, nil)
	return &fixture{rpc: rpc, browser: b, player: p, list: pl}
}

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, f *fixture, method string, params string) rpcResult {
	t.Helper()
	body := `{"jsonrpc":"2.0","method":"` + method + `","params":` + params + `,"id":1}`
	out := f.rpc.Handle(context.Background(), []byte(body))
	if out == nil {
		t.Fatalf("%s: no response", method)
	}
	var res rpcResult
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("%s: decode: %v", method, err)
	}
	return res
}

func mustResult(t *testing.T, f *fixture, method string, params string) json.RawMessage {
	t.Helper()
	res := call(t, f, method, params)
	if res.Error != nil {
		t.Fatalf("%s: %+v", method, res.Error)
	}
	return res.Result
}

func TestModuleMethods(t *testing.T) {
	f := newFixture(t)

	var modules []map[string]any
	if err := json.Unmarshal(mustResult(t, f, "module.get_list", `{}`), &modules); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(modules) != 1 || modules[0]["id"] != "melo_file" {
		t.Fatalf("unexpected modules %v", modules)
	}

	var filtered []map[string]any
	if err := json.Unmarshal(mustResult(t, f, "module.get_list", `{"fields":["name"]}`), &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := filtered[0]["id"]; ok {
		t.Fatalf("field filter ignored: %v", filtered)
	}
	if filtered[0]["name"] != "Files" {
		t.Fatalf("name missing: %v", filtered)
	}

	var browsers []string
	if err := json.Unmarshal(mustResult(t, f, "module.get_browser_list", `{"id":"melo_file"}`), &browsers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(browsers) != 1 || browsers[0] != "melo_browser_file" {
		t.Fatalf("unexpected browsers %v", browsers)
	}

	res := call(t, f, "module.get_info", `{"id":"nope"}`)
	if res.Error == nil || res.Error.Code != jsonrpc.CodeServerError {
		t.Fatalf("unknown module must fail: %+v", res.Error)
	}
}

func TestBrowserGetList(t *testing.T) {
	f := newFixture(t)
	raw := mustResult(t, f, "browser.get_list",
		`{"id":"melo_browser_file","path":"/music","offset":5,"count":10,"sort":"title_desc","tags_mode":"full"}`)
	var list browser.List
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	p := f.browser.lastParams
	if p.Offset != 5 || p.Count != 10 {
		t.Fatalf("paging not forwarded: %+v", p)
	}
	if p.Sort.Field != browser.SortTitle || !p.Sort.Desc {
		t.Fatalf("sort not forwarded: %+v", p.Sort)
	}
	if !p.TagsMode.WithTags() {
		t.Fatalf("tags mode not forwarded: %+v", p)
	}

	res := call(t, f, "browser.get_list", `{"id":"melo_browser_file"}`)
	if res.Error == nil || res.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("missing path must fail: %+v", res.Error)
	}
}

func TestBrowserAction(t *testing.T) {
	f := newFixture(t)
	mustResult(t, f, "browser.action",
		`{"id":"melo_browser_file","path":"/music/a.mp3","action":"play"}`)
	if f.browser.lastAction != browser.ActionPlay || f.browser.lastPath != "/music/a.mp3" {
		t.Fatalf("action not forwarded: %v %q", f.browser.lastAction, f.browser.lastPath)
	}

	res := call(t, f, "browser.action",
		`{"id":"melo_browser_file","path":"/x","action":"frobnicate"}`)
	if res.Error == nil || res.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("unknown action must fail: %+v", res.Error)
	}
}

func TestBrowserSearchUnsupported(t *testing.T) {
	f := newFixture(t)
	res := call(t, f, "browser.search", `{"id":"melo_browser_file","input":"x"}`)
	if res.Error == nil {
		t.Fatalf("search is not implemented by the fake")
	}
}

func TestPlayerStatusDefaultsToOnlyPlayer(t *testing.T) {
	f := newFixture(t)
	var status map[string]any
	if err := json.Unmarshal(mustResult(t, f, "player.get_status", `{}`), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["state"] != "none" {
		t.Fatalf("unexpected status %v", status)
	}

	var filtered map[string]any
	if err := json.Unmarshal(mustResult(t, f, "player.get_status", `{"fields":["state","volume"]}`), &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("field filter ignored: %v", filtered)
	}
}

func TestPlayerSetters(t *testing.T) {
	f := newFixture(t)
	mustResult(t, f, "player.set_volume", `{"volume":0.5}`)
	mustResult(t, f, "player.set_mute", `{"mute":true}`)
	st := f.player.Status()
	if st.Volume != 0.5 || !st.Mute {
		t.Fatalf("setters not applied: %+v", st)
	}

	res := call(t, f, "player.set_state", `{"state":"bogus"}`)
	if res.Error == nil || res.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("unknown state must fail: %+v", res.Error)
	}
	mustResult(t, f, "player.set_state", `{"state":"playing"}`)
	if st := f.player.Status(); st.State != player.StatePlaying {
		t.Fatalf("state not applied: %v", st.State)
	}
}

func TestPlaylistMethods(t *testing.T) {
	f := newFixture(t)
	f.list.Add(playlist.Item{Name: "a", URI: "uri:a", CanPlay: true, CanRemove: true}, true)

	var content struct {
		Items   []map[string]any `json:"items"`
		Current string           `json:"current"`
	}
	if err := json.Unmarshal(mustResult(t, f, "playlist.get_list", `{"id":"melo_playlist_file"}`), &content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(content.Items) != 1 || content.Current != "a" {
		t.Fatalf("unexpected content %+v", content)
	}

	mustResult(t, f, "playlist.play", `{"id":"melo_playlist_file","name":"a"}`)
	if st := f.player.Status(); st.State != player.StateLoading {
		t.Fatalf("play not forwarded: %v", st.State)
	}

	mustResult(t, f, "playlist.remove", `{"id":"melo_playlist_file","name":"a"}`)
	items, _ := f.list.Snapshot()
	if len(items) != 0 {
		t.Fatalf("remove not applied: %v", items)
	}

	res := call(t, f, "playlist.get_list", `{"id":"nope"}`)
	if res.Error == nil {
		t.Fatalf("unknown playlist must fail")
	}
}

func TestFilterFields(t *testing.T) {
	out, err := filterFields(map[string]string{"a": "1", "b": "2"}, []string{"a", "missing"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	m, ok := out.(map[string]json.RawMessage)
	if !ok || len(m) != 1 || string(m["a"]) != `"1"` {
		t.Fatalf("unexpected filter result %v", out)
	}
}
