package dbrider

import (
	"github.com/calumari/dbrider/database"
	"github.com/calumari/dbrider/loader"
	"github.com/calumari/dbrider/match"
	"github.com/calumari/dbrider/schema"
)

type (
	// SchemaError reports introspection, ordering or unknown table failures.
	SchemaError = schema.Error
	// StorageError reports insert, delete, fetch or raw execution failures.
	StorageError = database.Error
	// MatchError reports a verification failure.
	MatchError = match.Error
	// UnsupportedFormatError reports a dataset path no loader handles.
	UnsupportedFormatError = loader.UnsupportedFormatError
)

var (
	ErrCyclicDependency = schema.ErrCyclicDependency
	ErrUnknownTable     = schema.ErrUnknownTable
	ErrNotInitialized   = schema.ErrNotInitialized
	ErrIntrospection    = schema.ErrIntrospection
	ErrRowCount         = match.ErrRowCount
	ErrNoMatch          = match.ErrNoMatch
	ErrUnknownPredicate = match.ErrUnknownPredicate
)
