package pserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Client is the PS RPC surface a router node depends on to reach a
// partition-holding pserver.
type Client interface {
	Write(ctx context.Context, addr string, req types.WriteRequest) (types.WriteResponse, error)
	Get(ctx context.Context, addr string, req GetRequest) (GetResponse, error)
	Count(ctx context.Context, addr string, cpids []types.CPID) (types.CountResponse, error)
	Search(ctx context.Context, addr string, req types.SearchRequest) (types.SearchDocumentResponse, error)
	Status(ctx context.Context, addr string) (types.GeneralResponse, error)
}

// HTTPClient is the net/http+encoding/json Client implementation, dialing
// the same /rpc/* endpoints Server exposes.
type HTTPClient struct {
	HTTP *http.Client
}

// NewHTTPClient builds an HTTPClient with a default http.Client if hc is nil.
func NewHTTPClient(hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{HTTP: hc}
}

func (c *HTTPClient) call(ctx context.Context, addr, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return pserrors.New(types.ParamError, "encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s%s", addr, path), bytes.NewReader(body))
	if err != nil {
		return pserrors.New(types.InternalErr, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return pserrors.New(types.Timeout, "call %s%s: %v", addr, path, err)
	}
	defer httpResp.Body.Close()

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return pserrors.New(types.InternalErr, "decode response from %s%s: %v", addr, path, err)
	}
	return nil
}

func (c *HTTPClient) Write(ctx context.Context, addr string, req types.WriteRequest) (types.WriteResponse, error) {
	var resp types.WriteResponse
	if err := c.call(ctx, addr, "/rpc/write", req, &resp); err != nil {
		return types.WriteResponse{}, err
	}
	if resp.Code != types.Success {
		return resp, pserrors.New(resp.Code, "%s", resp.Message)
	}
	return resp, nil
}

func (c *HTTPClient) Get(ctx context.Context, addr string, req GetRequest) (GetResponse, error) {
	var resp GetResponse
	if err := c.call(ctx, addr, "/rpc/get", req, &resp); err != nil {
		return GetResponse{}, err
	}
	if resp.Code != types.Success {
		return resp, pserrors.New(resp.Code, "get failed")
	}
	return resp, nil
}

func (c *HTTPClient) Count(ctx context.Context, addr string, cpids []types.CPID) (types.CountResponse, error) {
	var resp types.CountResponse
	if err := c.call(ctx, addr, "/rpc/count", CountRequest{CPIDs: cpids}, &resp); err != nil {
		return types.CountResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) Search(ctx context.Context, addr string, req types.SearchRequest) (types.SearchDocumentResponse, error) {
	var resp types.SearchDocumentResponse
	if err := c.call(ctx, addr, "/rpc/search", req, &resp); err != nil {
		return types.SearchDocumentResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) Status(ctx context.Context, addr string) (types.GeneralResponse, error) {
	var resp types.GeneralResponse
	if err := c.call(ctx, addr, "/rpc/status", struct{}{}, &resp); err != nil {
		return types.GeneralResponse{}, err
	}
	return resp, nil
}

// PostAdmin calls one of the admin RPCs (offload_partition, load_partition)
// that report their outcome as a bare GeneralResponse.
func (c *HTTPClient) PostAdmin(ctx context.Context, addr, path string, body interface{}) error {
	var resp types.GeneralResponse
	if err := c.call(ctx, addr, path, body, &resp); err != nil {
		return err
	}
	if resp.Code != types.Success {
		return pserrors.New(resp.Code, "%s", resp.Message)
	}
	return nil
}
