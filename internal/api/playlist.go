package api

import (
	"context"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/playlist"
)

// playlistList is the wire shape of playlist.get_list.
type playlistList struct {
	Items   []playlistItem `json:"items"`
	Current string         `json:"current,omitempty"`
}

type playlistItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	CanPlay     bool   `json:"can_play"`
	CanRemove   bool   `json:"can_remove"`
}

func (b *Bindings) registerPlaylist(rpc *jsonrpc.Registry) {
	rpc.MustRegister(jsonrpc.Method{
		Group: "playlist", Name: "get_list",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
		},
		Handler: b.playlistGetList,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "playlist", Name: "play",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "name", Type: jsonrpc.TypeString, Required: true},
		},
		Handler: b.playlistPlay,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "playlist", Name: "remove",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString, Required: true},
			{Name: "name", Type: jsonrpc.TypeString, Required: true},
		},
		Handler: b.playlistRemove,
	})
}

func (b *Bindings) withPlaylist(id string) (*playlist.Playlist, func(), error) {
	pl, release, ok := b.reg.GetPlaylist(id)
	if !ok {
		return nil, nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no playlist %q", id)
	}
	return pl, release, nil
}

func (b *Bindings) playlistGetList(_ context.Context, params jsonrpc.Params) (any, error) {
	pl, release, err := b.withPlaylist(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	items, current := pl.Snapshot()
	out := playlistList{Current: current, Items: make([]playlistItem, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, playlistItem{
			Name:        item.Name,
			DisplayName: item.DisplayName,
			CanPlay:     item.CanPlay,
			CanRemove:   item.CanRemove,
		})
	}
	return out, nil
}

func (b *Bindings) playlistPlay(ctx context.Context, params jsonrpc.Params) (any, error) {
	pl, release, err := b.withPlaylist(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := pl.Play(ctx, params.String("name")); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playlistRemove(_ context.Context, params jsonrpc.Params) (any, error) {
	pl, release, err := b.withPlaylist(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := pl.Remove(params.String("name")); err != nil {
		return nil, err
	}
	return true, nil
}
