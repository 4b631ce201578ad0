package pservice

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// fileInfo is one entry of a file_info command's response: path/len/modified
// per directory entry.
type fileInfo struct {
	Path     string `json:"path"`
	Len      int64  `json:"len"`
	Modified int64  `json:"modified"`
}

// Status answers a liveness probe, always success.
func (s *Service) Status() (types.GeneralResponse, error) {
	return types.GeneralResponse{Code: types.Success, Message: "ok"}, nil
}

// Command dispatches an operator command carried as a raw JSON body keyed by
// a "method" field.
func (s *Service) Command(body []byte) ([]byte, error) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, pserrors.New(types.ParamError, "invalid command body: %v", err)
	}

	var method string
	if raw, ok := req["method"]; ok {
		if err := json.Unmarshal(raw, &method); err != nil {
			return nil, pserrors.New(types.ParamError, "invalid command method: %v", err)
		}
	}

	switch method {
	case "file_info":
		var path string
		if raw, ok := req["path"]; ok {
			if err := json.Unmarshal(raw, &path); err != nil {
				return nil, pserrors.New(types.ParamError, "invalid file_info path: %v", err)
			}
		}
		return s.fileInfo(path)
	default:
		return nil, pserrors.New(types.ParamError, "not found method: %s", method)
	}
}

func (s *Service) fileInfo(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, pserrors.New(types.InternalErr, "read dir %s: %v", path, err)
	}

	result := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, pserrors.New(types.InternalErr, "stat %s: %v", filepath.Join(path, entry.Name()), err)
		}
		result = append(result, fileInfo{
			Path:     info.Name(),
			Len:      info.Size(),
			Modified: info.ModTime().Unix(),
		})
	}

	return json.Marshal(result)
}
