package router

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// searchBody is the POST JSON body shape for a search request; a GET request
// carries the same fields as query-string parameters instead.
type searchBody struct {
	Query     string `json:"query"`
	DefFields string `json:"def_fields"`
	Size      *int   `json:"size"`
	Sort      string `json:"sort"`

	VectorQuery *struct {
		Field  string    `json:"field"`
		Vector []float32 `json:"vector"`
	} `json:"vector_query"`
}

// parseSearchQuery reads a search request's query/def_fields/vector_query/
// size/sort, from the POST JSON body if present, otherwise from the GET
// query string. query defaults to "*" and size to 20.
func parseSearchQuery(r *http.Request) (types.SearchRequest, error) {
	var b searchBody

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			return types.SearchRequest{}, pserrors.New(types.ParamError, "decode search body: %v", err)
		}
		defer r.Body.Close()
	} else {
		q := r.URL.Query()
		b.Query = q.Get("query")
		b.DefFields = q.Get("def_fields")
		b.Sort = q.Get("sort")
		if sz := q.Get("size"); sz != "" {
			n, err := strconv.Atoi(sz)
			if err != nil {
				return types.SearchRequest{}, pserrors.New(types.ParamError, "invalid size %q", sz)
			}
			b.Size = &n
		}
		if field := q.Get("vector_field"); field != "" {
			vec, err := parseVectorParam(q.Get("vector"))
			if err != nil {
				return types.SearchRequest{}, err
			}
			b.VectorQuery = &struct {
				Field  string    `json:"field"`
				Vector []float32 `json:"vector"`
			}{Field: field, Vector: vec}
		}
	}

	req := types.SearchRequest{Query: b.Query, Size: 20}
	if req.Query == "" {
		req.Query = "*"
	}
	if b.Size != nil {
		req.Size = *b.Size
	}
	if b.DefFields != "" {
		req.DefFields = strings.Split(b.DefFields, ",")
	}
	if b.VectorQuery != nil {
		req.VectorQuery = &types.VectorQuery{Field: b.VectorQuery.Field, Vector: b.VectorQuery.Vector}
	}

	sort, err := parseSort(b.Sort)
	if err != nil {
		return types.SearchRequest{}, err
	}
	req.Sort = sort

	return req, nil
}

func parseVectorParam(csv string) ([]float32, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, pserrors.New(types.ParamError, "invalid vector component %q", p)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// parseSort parses a pipe-separated list of "field:asc|desc" clauses, e.g.
// "name:asc|age:desc".
func parseSort(s string) ([]types.SortClause, error) {
	if s == "" {
		return nil, nil
	}

	var clauses []types.SortClause
	for _, part := range strings.Split(s, "|") {
		field, dir, ok := strings.Cut(part, ":")
		if !ok {
			return nil, pserrors.New(types.ParamError, "invalid sort clause %q", part)
		}
		var desc bool
		switch dir {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return nil, pserrors.New(types.ParamError, "invalid sort direction %q", dir)
		}
		clauses = append(clauses, types.SortClause{Field: field, Descending: desc})
	}
	return clauses, nil
}
