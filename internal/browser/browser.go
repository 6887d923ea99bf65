// Package browser defines the contract implemented by media browsers:
// navigable sources exposing list, tag, search and action operations.
package browser

import (
	"context"
	"io"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

// Info describes a browser instance.
type Info struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SearchSupport bool   `json:"search_support"`
	TagsSupport   bool   `json:"tags_support"`
}

// ItemType classifies a listed item.
type ItemType string

// Item types.
const (
	TypeCategory ItemType = "category"
	TypeMedia    ItemType = "media"
	TypeCustom   ItemType = "custom"
)

// ActionMask flags the actions an item affords.
type ActionMask uint32

// Action flags.
const (
	CanAdd ActionMask = 1 << iota
	CanPlay
	CanRemove
)

// Item is one entry of a browser list.
type Item struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Type    ItemType   `json:"type"`
	Tags    *tags.Tags `json:"tags,omitempty"`
	Actions ActionMask `json:"actions"`
}

// List is the result of a get_list or search operation.
type List struct {
	Path  string `json:"path"`
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// TagsMode controls tag retrieval during listing.
type TagsMode int

// Tag modes.
const (
	TagsModeNone TagsMode = iota
	TagsModeNoneWithCaching
	TagsModeFull
	TagsModeFullWithCaching
)

// ParseTagsMode converts a wire string to a mode. Absent means full.
func ParseTagsMode(s string) TagsMode {
	switch s {
	case "none":
		return TagsModeNone
	case "none_with_caching":
		return TagsModeNoneWithCaching
	case "full_with_caching":
		return TagsModeFullWithCaching
	default:
		return TagsModeFull
	}
}

// WithTags reports whether tags are populated in list items.
func (m TagsMode) WithTags() bool {
	return m == TagsModeFull || m == TagsModeFullWithCaching
}

// WithCaching reports whether retrieved tags should be cached.
func (m TagsMode) WithCaching() bool {
	return m == TagsModeNoneWithCaching || m == TagsModeFullWithCaching
}

// ListParams carries the options of get_list and search.
type ListParams struct {
	Offset     int
	Count      int // -1 means all remaining
	Sort       Sort
	Token      string
	TagsMode   TagsMode
	TagsFields tags.Fields
}

// Action enacts an item affordance.
type Action int

// Actions.
const (
	ActionAdd Action = iota
	ActionPlay
	ActionRemove
)

// ParseAction converts a wire string to an action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "add":
		return ActionAdd, true
	case "play":
		return ActionPlay, true
	case "remove":
		return ActionRemove, true
	}
	return 0, false
}

// Browser is the capability set of a registered browser. Implementations
// embed Unsupported and override what they provide.
type Browser interface {
	ID() string
	Info() Info
	GetList(ctx context.Context, path string, p ListParams) (*List, error)
	GetTags(ctx context.Context, path string, fields tags.Fields) (*tags.Tags, error)
	Search(ctx context.Context, input string, p ListParams) (*List, error)
	Action(ctx context.Context, path string, action Action, params map[string]any) error
	// GetAsset resolves an asset id to a local file path or URL.
	GetAsset(ctx context.Context, id string) (string, error)
	// PutMedia streams an upload into the browser. The reader ends at the
	// terminal chunk; a read error cancels the upload.
	PutMedia(ctx context.Context, path string, r io.Reader) error
}

// Unsupported returns a not-found error for every optional capability.
type Unsupported struct{}

// GetList reports the capability as missing.
func (Unsupported) GetList(context.Context, string, ListParams) (*List, error) {
	return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "listing not supported")
}

// GetTags reports the capability as missing.
func (Unsupported) GetTags(context.Context, string, tags.Fields) (*tags.Tags, error) {
	return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "tags not supported")
}

// Search reports the capability as missing.
func (Unsupported) Search(context.Context, string, ListParams) (*List, error) {
	return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "search not supported")
}

// Action reports the capability as missing.
func (Unsupported) Action(context.Context, string, Action, map[string]any) error {
	return jsonrpc.Errorf(jsonrpc.KindNotFound, "action not supported")
}

// GetAsset reports the capability as missing.
func (Unsupported) GetAsset(context.Context, string) (string, error) {
	return "", jsonrpc.Errorf(jsonrpc.KindNotFound, "asset not supported")
}

// PutMedia reports the capability as missing.
func (Unsupported) PutMedia(context.Context, string, io.Reader) error {
	return jsonrpc.Errorf(jsonrpc.KindNotFound, "upload not supported")
}
