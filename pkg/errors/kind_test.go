package errors

import "testing"

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NewNotFoundError("table", "users"), KindNotFound},
		{"already exists", NewAlreadyExistsError("table", "users"), KindAlreadyExists},
		{"validation", NewValidationError(nil, ErrorCodeInvalidInput, "bad input"), KindInvalid},
		{"catalog corrupted", NewCatalogError(nil, ErrorCodeCatalogCorrupted, "bad checksum"), KindCorruptData},
		{"catalog unrecoverable", NewCatalogError(nil, ErrorCodeCatalogUnrecoverable, "both segments bad"), KindCorruptData},
		{"catalog other", NewCatalogError(nil, ErrorCodeInternal, "misc"), KindInternal},
		{"storage corrupted", NewStorageError(nil, ErrorCodeSegmentCorrupted, "bad crc"), KindCorruptData},
		{"storage io", NewStorageError(nil, ErrorCodeIO, "read failed"), KindIo},
		{"storage disk full", NewStorageError(nil, ErrorCodeDiskFull, "no space"), KindIo},
		{"storage permission denied", NewStorageError(nil, ErrorCodePermissionDenied, "denied"), KindIo},
		{"storage readonly fs", NewStorageError(nil, ErrorCodeFilesystemReadonly, "ro"), KindIo},
		{"storage other", NewStorageError(nil, ErrorCodeInternal, "misc"), KindInternal},
		{"index corrupted", NewIndexError(nil, ErrorCodeIndexCorrupted, "bad page"), KindCorruptData},
		{"index key not found", NewIndexError(nil, ErrorCodeIndexKeyNotFound, "miss"), KindNotFound},
		{"index other", NewIndexError(nil, ErrorCodeInternal, "misc"), KindInternal},
		{"unrecognized error", errStub{}, KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

type errStub struct{}

func (errStub) Error() string { return "stub" }
