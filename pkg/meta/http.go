package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// httpClient is a net/http + encoding/json Client, following the same
// context-aware http.NewRequestWithContext + configurable *http.Client
// shape as the example pack's HTTP checker.
type httpClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient builds a Client that talks to the master at baseURL
// (e.g. "http://meta0:8900").
func NewHTTPClient(baseURL string) Client {
	return &httpClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) Register(ctx context.Context, info NodeInfo) (RegisterResult, error) {
	var out RegisterResult
	err := c.doJSON(ctx, http.MethodPost, "/register", info, &out)
	return out, err
}

func (c *httpClient) GetCollectionByID(ctx context.Context, id uint32) (*types.Collection, error) {
	var out types.Collection
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/collection/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetCollectionByName(ctx context.Context, name string) (*types.Collection, error) {
	var out types.Collection
	if err := c.doJSON(ctx, http.MethodGet, "/collection/by-name/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ListPartitions(ctx context.Context, collectionID uint32) ([]types.Partition, error) {
	var out []types.Partition
	path := fmt.Sprintf("/collection/%d/partitions", collectionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) GetPartition(ctx context.Context, cpid types.CPID) (*types.Partition, error) {
	var out types.Partition
	path := fmt.Sprintf("/collection/%d/partition/%d", cpid.CollectionID, cpid.PartitionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) PutPServer(ctx context.Context, hb Heartbeat) error {
	return c.doJSON(ctx, http.MethodPut, "/pserver", hb, nil)
}

func (c *httpClient) NodeAddr(ctx context.Context, nodeID uint64) (string, error) {
	var out struct {
		Addr string `json:"addr"`
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/node/%d", nodeID), nil, &out); err != nil {
		return "", err
	}
	return out.Addr, nil
}

func (c *httpClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return pserrors.New(types.InternalErr, "encode meta request: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return pserrors.New(types.InternalErr, "build meta request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return pserrors.New(types.Timeout, "meta request %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pserrors.New(types.NotFound, "meta resource not found: %s", path)
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return pserrors.New(types.InternalErr, "meta request %s %s failed: %d %s", method, path, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pserrors.New(types.InternalErr, "decode meta response: %v", err)
	}
	return nil
}
