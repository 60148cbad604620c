package errors

// Kind categorizes any error this package produces into the small sum type
// callers outside the storage layer need to switch on (is this retryable,
// is it the caller's fault, is data on disk untrustworthy) without
// importing every concrete error type in this package.
type Kind string

const (
	KindInvalid       Kind = "invalid"
	KindNotFound      Kind = "not_found"
	KindAlreadyExists Kind = "already_exists"
	KindCorruptData   Kind = "corrupt_data"
	KindIo            Kind = "io"
	KindSerialization Kind = "serialization"
	KindInternal      Kind = "internal"
)

// KindOf maps err to its Kind. An error this package did not produce (or a
// code this function doesn't recognize) reports KindInternal.
func KindOf(err error) Kind {
	switch e := err.(type) {
	case *NotFoundError:
		return KindNotFound
	case *AlreadyExistsError:
		return KindAlreadyExists
	case *ValidationError:
		return KindInvalid
	case *CatalogError:
		switch e.Code() {
		case ErrorCodeCatalogCorrupted, ErrorCodeCatalogUnrecoverable:
			return KindCorruptData
		default:
			return KindInternal
		}
	case *StorageError:
		switch e.Code() {
		case ErrorCodeSegmentCorrupted:
			return KindCorruptData
		case ErrorCodeIO, ErrorCodeDiskFull, ErrorCodePermissionDenied, ErrorCodeFilesystemReadonly:
			return KindIo
		default:
			return KindInternal
		}
	case *IndexError:
		switch e.Code() {
		case ErrorCodeIndexCorrupted:
			return KindCorruptData
		case ErrorCodeIndexKeyNotFound:
			return KindNotFound
		default:
			return KindInternal
		}
	default:
		return KindInternal
	}
}
