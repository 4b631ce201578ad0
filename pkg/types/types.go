package types

// FieldType is the declared type of one collection field.
type FieldType string

const (
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldString FieldType = "string"
	FieldText   FieldType = "text"
	FieldVector FieldType = "vector"
	FieldBytes  FieldType = "bytes"
)

// Field describes one column of a Collection.
type Field struct {
	Name  string
	Type  FieldType
	Array bool
	// VectorDim is only meaningful when Type == FieldVector.
	VectorDim int
}

// Collection is immutable for the life of a partition.
type Collection struct {
	ID   uint32
	Name string
	// Fields is the ordered field list; field order determines the index
	// schema's field order for anything in ScalarFieldIndex.
	Fields []Field
	// ScalarFieldIndex lists the field names that participate in the
	// inverted index (int, float, string, text). Vector and bytes fields
	// never appear here.
	ScalarFieldIndex []string
	// PartitionCount is the number of partitions the collection was created
	// with, used by the router to place a document id without a per-id
	// round trip to the master.
	PartitionCount uint32
}

// FieldByName returns the field with the given name, or false if absent.
func (c *Collection) FieldByName(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Replica is one member of a partition's Raft group.
type Replica struct {
	NodeID uint64
	Addr   string
}

// Partition identifies one shard of a Collection.
type Partition struct {
	ID           uint32
	CollectionID uint32
	Replicas     []Replica
	LeaderAddr   string
	Version      uint64
}

// CPID is the wire identity of a partition: (collection_id, partition_id).
type CPID struct {
	CollectionID uint32
	PartitionID  uint32
}

// RaftGroupID is the 64-bit Raft group identity derived from a CPID.
func (c CPID) RaftGroupID() uint64 {
	return uint64(c.CollectionID)<<32 | uint64(c.PartitionID)
}

// Document is the client-facing row shape.
type Document struct {
	ID      string
	SortKey string
	Version int64
	Source  []byte // opaque JSON payload
}

// WriteType selects the conflict semantics of a Write.
type WriteType int

const (
	WriteCreate WriteType = iota
	WritePut
	WriteUpdate
	WriteUpsert
	WriteDelete
)

func (w WriteType) String() string {
	switch w {
	case WriteCreate:
		return "create"
	case WritePut:
		return "put"
	case WriteUpdate:
		return "update"
	case WriteUpsert:
		return "upsert"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// WriteRequest is the client-facing mutation request.
type WriteRequest struct {
	CollectionID uint32
	PartitionID  uint32
	WriteType    WriteType
	Doc          Document
}

// WriteResponse reports the outcome of a committed write.
type WriteResponse struct {
	Code    Code
	Message string
	IID     uint32
}

// CountResponse reports partition-level document counts.
type CountResponse struct {
	Code          Code
	Message       string
	Estimate      uint64
	IndexCount    uint64
	DBCount       uint64
	VectorsCounts []uint64
}

// VectorQuery narrows a search to candidates near a query vector.
type VectorQuery struct {
	Field  string
	Vector []float32
}

// SortClause is one entry of a search request's sort list, e.g. "name:asc".
type SortClause struct {
	Field      string
	Descending bool
}

// SearchRequest fans out to the given CPIDs.
type SearchRequest struct {
	CPIDs       []CPID
	Query       string
	DefFields   []string
	VectorQuery *VectorQuery
	Size        int
	Sort        []SortClause
}

// Hit is one scored search result.
type Hit struct {
	CollectionName string
	ID             string
	SortKey        string
	IID            uint32
	Score          float64
	DocBytes       []byte
}

// ResponseInfo tracks soft per-partition success/error accounting for a
// fanned-out call.
type ResponseInfo struct {
	Success int
	Error   int
	Message string
}

// SearchDocumentResponse is the result of a (possibly fanned-out) search.
type SearchDocumentResponse struct {
	Code    Code
	Total   uint64
	Hits    []Hit
	Info    *ResponseInfo
}

// GeneralResponse is the bare code/message reply used by status and other
// operations with no payload of their own.
type GeneralResponse struct {
	Code    Code
	Message string
}

// Code is the fixed application error/status code table shared by every
// RPC response.
type Code int

const (
	Success Code = iota
	ParamError
	NotFound
	AlreadyExists
	VersionErr
	PartitionNotLeader
	FieldTypeErr
	SpaceNoIndex
	InternalErr
	Timeout
	EngineStopped
	EngineFaulted
)

// HTTPStatus maps a Code onto the HTTP status the router should send.
func (c Code) HTTPStatus() int {
	switch c {
	case Success:
		return 200
	case ParamError, FieldTypeErr:
		return 400
	case NotFound:
		return 404
	case AlreadyExists:
		return 409
	case VersionErr, PartitionNotLeader:
		return 409
	case SpaceNoIndex:
		return 422
	case Timeout:
		return 504
	case EngineStopped, EngineFaulted:
		return 503
	default:
		return 500
	}
}

func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case ParamError:
		return "ParamError"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case VersionErr:
		return "VersionErr"
	case PartitionNotLeader:
		return "PartitionNotLeader"
	case FieldTypeErr:
		return "FieldTypeErr"
	case SpaceNoIndex:
		return "SpaceNoIndex"
	case Timeout:
		return "Timeout"
	case EngineStopped:
		return "EngineStopped"
	case EngineFaulted:
		return "EngineFaulted"
	default:
		return "InternalErr"
	}
}
