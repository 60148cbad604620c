package errors

// CatalogError provides specialized error handling for catalog operations:
// loading/saving the dual-segment metadata store and looking up table or
// index descriptors within it.
type CatalogError struct {
	*baseError

	// Which of the two catalog segments (0 or 1) was involved.
	segment uint8

	// Name of the table the operation concerned, if any.
	tableName string
}

// NewCatalogError creates a new catalog-specific error.
func NewCatalogError(err error, code ErrorCode, msg string) *CatalogError {
	return &CatalogError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *CatalogError instead of *baseError.

func (ce *CatalogError) WithMessage(msg string) *CatalogError {
	ce.baseError.WithMessage(msg)
	return ce
}

func (ce *CatalogError) WithCode(code ErrorCode) *CatalogError {
	ce.baseError.WithCode(code)
	return ce
}

func (ce *CatalogError) WithDetail(key string, value any) *CatalogError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithSegment records which catalog segment was involved.
func (ce *CatalogError) WithSegment(segment uint8) *CatalogError {
	ce.segment = segment
	return ce
}

// WithTableName records which table the operation concerned.
func (ce *CatalogError) WithTableName(name string) *CatalogError {
	ce.tableName = name
	return ce
}

func (ce *CatalogError) Segment() uint8 { return ce.segment }

func (ce *CatalogError) TableName() string { return ce.tableName }

// NotFoundError indicates a lookup found no matching table, row, or index.
type NotFoundError struct {
	*baseError
	resource string
	key      string
}

func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{
		baseError: NewBaseError(nil, ErrorCodeNotFound, resource+" not found"),
		resource:  resource,
		key:       key,
	}
}

func (ne *NotFoundError) WithMessage(msg string) *NotFoundError {
	ne.baseError.WithMessage(msg)
	return ne
}

func (ne *NotFoundError) WithCode(code ErrorCode) *NotFoundError {
	ne.baseError.WithCode(code)
	return ne
}

func (ne *NotFoundError) WithDetail(key string, value any) *NotFoundError {
	ne.baseError.WithDetail(key, value)
	return ne
}

func (ne *NotFoundError) Resource() string { return ne.resource }

func (ne *NotFoundError) Key() string { return ne.key }

// AlreadyExistsError indicates a create would reuse a taken name - a
// duplicate table name. A duplicate primary key value is reported as a
// ValidationError with rule "unique" instead.
type AlreadyExistsError struct {
	*baseError
	resource string
	key      string
}

func NewAlreadyExistsError(resource, key string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: NewBaseError(nil, ErrorCodeAlreadyExists, resource+" already exists"),
		resource:  resource,
		key:       key,
	}
}

func (ae *AlreadyExistsError) WithMessage(msg string) *AlreadyExistsError {
	ae.baseError.WithMessage(msg)
	return ae
}

func (ae *AlreadyExistsError) WithCode(code ErrorCode) *AlreadyExistsError {
	ae.baseError.WithCode(code)
	return ae
}

func (ae *AlreadyExistsError) WithDetail(key string, value any) *AlreadyExistsError {
	ae.baseError.WithDetail(key, value)
	return ae
}

func (ae *AlreadyExistsError) Resource() string { return ae.resource }

func (ae *AlreadyExistsError) Key() string { return ae.key }
