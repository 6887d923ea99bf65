package api

import (
	"context"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

func (b *Bindings) registerBrowser(rpc *jsonrpc.Registry) {
	listParams := []jsonrpc.Param{
		{Name: "id", Type: jsonrpc.TypeString, Required: true},
		{Name: "path", Type: jsonrpc.TypeString, Required: true},
		{Name: "offset", Type: jsonrpc.TypeInteger},
		{Name: "count", Type: jsonrpc.TypeInteger},
		{Name: "sort", Type: jsonrpc.TypeString},
		{Name: "tags_mode", Type: jsonrpc.TypeString},
		{Name: "tags_fields", Type: jsonrpc.TypeArray},
	}
	searchParams := append([]jsonrpc.Param{
		{Name: "id", Type: jsonrpc.TypeString, Required: true},
		{Name: "input", Type: jsonrpc.TypeString, Required: true},
	}, listParams[2:]...)

	rpc.MustRegister(jsonrpc.Method{
		Group: "browser", Name: "get_info",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "fields", Type: jsonrpc.TypeArray},
		},
		Handler: b.browserGetInfo,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "browser", Name: "get_list",
		Params:  listParams,
		Handler: b.browserGetList,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "browser", Name: "get_tags",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "path", Type: jsonrpc.TypeString, Required: true},
			{Name: "fields", Type: jsonrpc.TypeArray},
		},
		Handler: b.browserGetTags,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "browser", Name: "search",
		Params:  searchParams,
		Handler: b.browserSearch,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "browser", Name: "action",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "path", Type: jsonrpc.TypeString, Required: true},
			{Name: "action", Type: jsonrpc.TypeString, Required: true},
			{Name: "params", Type: jsonrpc.TypeObject},
		},
		Handler: b.browserAction,
	})
}

func (b *Bindings) withBrowser(id string) (browser.Browser, func(), error) {
	br, release, ok := b.reg.GetBrowser(id)
	if !ok {
		return nil, nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no browser %q", id)
	}
	return br, release, nil
}

// listParams converts wire parameters to browser list options.
func listParams(params jsonrpc.Params) browser.ListParams {
	count := int(params.Int("count", -1))
	sort := browser.ParseSort(params.String("sort"))
	fields := tags.ParseFields(params.StringArray("tags_fields"))
	return browser.ListParams{
		Offset:     int(params.Int("offset", 0)),
		Count:      count,
		Sort:       sort,
		TagsMode:   browser.ParseTagsMode(params.String("tags_mode")),
		TagsFields: fields,
	}
}

func (b *Bindings) browserGetInfo(_ context.Context, params jsonrpc.Params) (any, error) {
	br, release, err := b.withBrowser(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	return filterFields(br.Info(), params.StringArray("fields"))
}

func (b *Bindings) browserGetList(ctx context.Context, params jsonrpc.Params) (any, error) {
	br, release, err := b.withBrowser(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	return br.GetList(ctx, params.String("path"), listParams(params))
}

func (b *Bindings) browserGetTags(ctx context.Context, params jsonrpc.Params) (any, error) {
	br, release, err := b.withBrowser(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	fields := tags.ParseFields(params.StringArray("fields"))
	return br.GetTags(ctx, params.String("path"), fields)
}

func (b *Bindings) browserSearch(ctx context.Context, params jsonrpc.Params) (any, error) {
	br, release, err := b.withBrowser(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	return br.Search(ctx, params.String("input"), listParams(params))
}

func (b *Bindings) browserAction(ctx context.Context, params jsonrpc.Params) (any, error) {
	action, ok := browser.ParseAction(params.String("action"))
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.KindInvalidParams, "unknown action %q", params.String("action"))
	}
	br, release, err := b.withBrowser(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := br.Action(ctx, params.String("path"), action, params.Object("params")); err != nil {
		return nil, err
	}
	return true, nil
}
