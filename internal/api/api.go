// Package api binds the registry's modules, browsers, players and playlists
// to their JSON-RPC methods.
package api

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/registry"
)

// Bindings holds what the method handlers need.
type Bindings struct {
	log *zap.Logger
	reg *registry.Registry
}

// Register installs every method group on the JSON-RPC registry.
func Register(rpc *jsonrpc.Registry, reg *registry.Registry, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bindings{log: log, reg: reg}
	b.registerModule(rpc)
	b.registerBrowser(rpc)
	b.registerPlayer(rpc)
	b.registerPlaylist(rpc)
}

// filterFields reduces a JSON-marshalable object to the requested keys. An
// empty selection keeps everything.
func filterFields(obj any, fields []string) (any, error) {
	if len(fields) == 0 {
		return obj, nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, jsonrpc.Wrap(jsonrpc.KindInternal, "marshal object", err)
	}
	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, jsonrpc.Wrap(jsonrpc.KindInternal, "reshape object", err)
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}
