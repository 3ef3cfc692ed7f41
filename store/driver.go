package store

// Driver name-length bounds, mirroring the teacher's per-provider bucket
// naming constraints (cmn.Bck) and the original H3_BUCKET_NAME_SIZE /
// H3_OBJECT_NAME_SIZE constants.
const (
	MaxBucketNameSize = 64
	MaxObjectNameSize = 256
)

// BucketInfo is the reply of Driver.InfoBucket.
type BucketInfo struct {
	Creation int64 // unix seconds
	Stats    *BucketStats
}

// BucketStats are only populated when InfoBucket is asked to include them.
type BucketStats struct {
	Size              int64
	Count             int64
	LastAccess        int64
	LastModification  int64
}

// ObjectInfo is the reply of Driver.InfoObject.
type ObjectInfo struct {
	IsBad             bool
	Size              int64
	Creation          int64
	LastAccess        int64
	LastModification  int64
	LastChange        int64
	ReadOnly          bool
}

// Part describes one uploaded part of a multipart upload.
type Part struct {
	PartNumber int
	Size       int64
}

// Driver is the capability set the cache adapter and the lifecycle
// controllers require of a single object store. A concrete backend is
// selected at runtime by URI scheme via Registry (see registry.go).
//
// Every method returns an *Error (see errors.go) wrapping one of the
// abstract Kind values on failure.
type Driver interface {
	// Buckets.
	ListBuckets(userID int) ([]string, error)
	CreateBucket(bucket string, userID int) error
	DeleteBucket(bucket string, userID int) error
	PurgeBucket(bucket string, userID int) error
	InfoBucket(bucket string, includeStats bool, userID int) (BucketInfo, error)

	// Lazy, paginated object listing: done=false means call again with
	// nextOffset to continue.
	ListObjects(bucket, prefix string, offset, count int, userID int) (names []string, done bool, nextOffset int, err error)

	// Objects.
	InfoObject(bucket, object string, userID int) (ObjectInfo, error)
	CreateObject(bucket, object string, data []byte, userID int) error
	WriteObject(bucket, object string, data []byte, offset int64, userID int) error
	ReadObject(bucket, object string, offset int64, size int64, userID int) (data []byte, done bool, err error)
	ReadObjectToFile(bucket, object, filename string, offset, size int64, userID int) (done bool, err error)
	WriteObjectFromFile(bucket, object, filename string, offset int64, userID int) error
	DeleteObject(bucket, object string, userID int) error
	TruncateObject(bucket, object string, size int64, userID int) error
	CopyObject(bucket, srcObject, dstObject string, noOverwrite bool, userID int) error
	MoveObject(bucket, srcObject, dstObject string, noOverwrite bool, userID int) error
	ExchangeObject(bucket, srcObject, dstObject string, userID int) error
	CreateObjectCopy(bucket, srcObject string, offset, size int64, dstObject string, userID int) (int64, error)

	// Object metadata.
	CreateObjectMetadata(bucket, object, name string, value []byte, userID int) error
	ReadObjectMetadata(bucket, object, name string, userID int) (value []byte, done bool, err error)
	DeleteObjectMetadata(bucket, object, name string, userID int) error
	ListObjectsWithMetadata(bucket, name string, offset int, userID int) (names []string, done bool, nextOffset int, err error)

	// Multipart uploads.
	ListMultiparts(bucket string, offset, count int, userID int) (ids []string, done bool, nextOffset int, err error)
	CreateMultipart(bucket, object string, userID int) (multipartID string, err error)
	CompleteMultipart(multipartID string, userID int) error
	AbortMultipart(multipartID string, userID int) error
	ListParts(multipartID string, userID int) ([]Part, error)
	CreatePart(multipartID string, partNumber int, data []byte, userID int) error
	CreatePartCopy(object string, offset, size int64, multipartID string, partNumber int, userID int) error

	// Storage-level accounting, consumed by the eviction controller.
	InfoStorage() (totalSpace, usedSpace int64, err error)

	// Filesystem-like attribute setters (used by h3fuse-style consumers
	// and by the read-only-after controller).
	TouchObject(bucket, object string, lastAccess, lastModification int64, userID int) error
	SetObjectPermissions(bucket, object string, mode int, userID int) error
	MakeObjectReadOnly(bucket, object string, userID int) error
	SetObjectOwner(bucket, object string, uid, gid int, userID int) error
}

// Constructor builds a Driver from the location part of a scheme://location
// URI (see registry.go).
type Constructor func(location string) (Driver, error)
