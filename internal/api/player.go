package api

import (
	"context"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
)

func (b *Bindings) registerPlayer(rpc *jsonrpc.Registry) {
	idOnly := []jsonrpc.Param{
		{Name: "id", Type: jsonrpc.TypeString},
	}
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "get_status",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString},
			{Name: "fields", Type: jsonrpc.TypeArray},
		},
		Handler: b.playerGetStatus,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "set_state",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString},
			{Name: "state", Type: jsonrpc.TypeString, Required: true},
		},
		Handler: b.playerSetState,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "set_pos",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString},
			{Name: "pos_ms", Type: jsonrpc.TypeInteger, Required: true},
		},
		Handler: b.playerSetPos,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "set_volume",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString},
			{Name: "volume", Type: jsonrpc.TypeDouble, Required: true},
		},
		Handler: b.playerSetVolume,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "set_mute",
		Params: []jsonrpc.Param{
			{Name: "id", Type: jsonrpc.TypeString},
			{Name: "mute", Type: jsonrpc.TypeBoolean, Required: true},
		},
		Handler: b.playerSetMute,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "prev",
		Params:  idOnly,
		Handler: b.playerPrev,
	})
	rpc.MustRegister(jsonrpc.Method{
		Group: "player", Name: "next",
		Params:  idOnly,
		Handler: b.playerNext,
	})
}

// withPlayer resolves a player handle. An absent id addresses the only
// registered player, a convenience for single-player setups.
func (b *Bindings) withPlayer(id string) (*player.Player, func(), error) {
	if id == "" {
		players := b.reg.Players()
		if len(players) != 1 {
			return nil, nil, jsonrpc.Errorf(jsonrpc.KindInvalidParams, "player id required")
		}
		id = players[0].ID()
	}
	p, release, ok := b.reg.GetPlayer(id)
	if !ok {
		return nil, nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no player %q", id)
	}
	return p, release, nil
}

func (b *Bindings) playerGetStatus(_ context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	return filterFields(p.Status(), params.StringArray("fields"))
}

func (b *Bindings) playerSetState(_ context.Context, params jsonrpc.Params) (any, error) {
	state, ok := player.ParseState(params.String("state"))
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.KindInvalidParams, "unknown state %q", params.String("state"))
	}
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.SetState(state); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playerSetPos(_ context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.SetPos(params.Int("pos_ms", 0)); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playerSetVolume(_ context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.SetVolume(params.Float("volume", 1.0)); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playerSetMute(_ context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.SetMute(params.Bool("mute", false)); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playerPrev(ctx context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.Prev(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) playerNext(ctx context.Context, params jsonrpc.Params) (any, error) {
	p, release, err := b.withPlayer(params.String("id"))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := p.Next(ctx); err != nil {
		return nil, err
	}
	return true, nil
}
