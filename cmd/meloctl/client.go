package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// client issues single-shot JSON-RPC 2.0 calls over HTTP.
type client struct {
	base string
	user string
	pass string
	http *http.Client
}

func newClient(base, user, pass string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		user: user,
		pass: pass,
		http: &http.Client{},
	}
}

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{Version: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return fmt.Errorf("bad response: %w", err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s (code %d)", rr.Error.Message, rr.Error.Code)
	}
	if out != nil && rr.Result != nil {
		return json.Unmarshal(rr.Result, out)
	}
	return nil
}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func fromContext(cmd *cobra.Command) *app {
	return cmd.Context().Value(contextKey{}).(*app)
}

// run wraps a command handler with the app and a timeout context.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a := fromContext(cmd)
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()
	return fn(ctx, a)
}

// printJSON renders any result as indented JSON for --json output.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
