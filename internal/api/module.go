package api

import (
	"context"

	"github.com/sparod/melo/internal/jsonrpc"
)

// moduleInfo is the wire shape of one module.
type moduleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ConfigID    string `json:"config_id,omitempty"`
}

func (b *Bindings) registerModule(rpc *jsonrpc.Registry) {
	rpc.MustRegister(jsonrpc.Method{
		Group: "module", Name: "get_list",
		Params: []jsonrpc.Param{
			{Name: "fields", Type: jsonrpc.TypeArray},
		},
		Handler: b.moduleGetList,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "module", Name: "get_info",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "fields", Type: jsonrpc.TypeArray},
		},
		Handler: b.moduleGetInfo,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "module", Name: "get_browser_list",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
		},
		Handler: b.moduleGetBrowserList,
	})
}

func (b *Bindings) moduleGetList(_ context.Context, params jsonrpc.Params) (any, error) {
	fields := params.StringArray("fields")
	modules := b.reg.Modules()
	out := make([]any, 0, len(modules))
	for _, m := range modules {
		info := m.Info()
		entry, err := filterFields(moduleInfo{
			ID:          m.ID(),
			Name:        info.Name,
			Description: info.Description,
			ConfigID:    info.ConfigID,
		}, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (b *Bindings) moduleGetInfo(_ context.Context, params jsonrpc.Params) (any, error) {
	id := params.String("id")
	m, release, ok := b.reg.GetModule(id)
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no module %q", id)
	}
	defer release()
	info := m.Info()
	return filterFields(moduleInfo{
		ID:          m.ID(),
		Name:        info.Name,
		Description: info.Description,
		ConfigID:    info.ConfigID,
	}, params.StringArray("fields"))
}

func (b *Bindings) moduleGetBrowserList(_ context.Context, params jsonrpc.Params) (any, error) {
	id := params.String("id")
	if _, release, ok := b.reg.GetModule(id); ok {
		release()
	} else {
		return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no module %q", id)
	}
	return b.reg.ModuleBrowserIDs(id), nil
}
