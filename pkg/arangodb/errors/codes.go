package errors

// Error numbers reported by the server in the errorNum attribute of an error body
const (
	ErrorNoError                          = 0
	ErrorFailed                           = 1
	ErrorNotImplemented                   = 9
	ErrorBadParameter                     = 10
	ErrorForbidden                        = 11
	ErrorHTTPBadParameter                 = 400
	ErrorHTTPUnauthorized                 = 401
	ErrorHTTPForbidden                    = 403
	ErrorHTTPNotFound                     = 404
	ErrorHTTPMethodNotAllowed             = 405
	ErrorHTTPPreconditionFailed           = 412
	ErrorHTTPServerError                  = 500
	ErrorHTTPServiceUnavailable           = 503
	ErrorArangoReadOnly                   = 1004
	ErrorArangoConflict                   = 1200
	ErrorArangoDocumentNotFound           = 1202
	ErrorArangoDataSourceNotFound         = 1203
	ErrorArangoCollectionParameterMissing = 1204
	ErrorArangoDocumentHandleBad          = 1205
	ErrorArangoDuplicateName              = 1207
	ErrorArangoIllegalName                = 1208
	ErrorArangoUniqueConstraintViolated   = 1210
	ErrorArangoIndexNotFound              = 1212
	ErrorArangoCrossCollectionRequest     = 1213
	ErrorArangoDocumentKeyBad             = 1221
	ErrorArangoDocumentKeyUnexpected      = 1222
	ErrorArangoDocumentTypeInvalid        = 1227
	ErrorArangoDatabaseNotFound           = 1228
	ErrorArangoDatabaseNameInvalid        = 1229
	ErrorArangoUseSystemDatabase          = 1230
	ErrorArangoDocumentRevBad             = 1239
	ErrorQueryKilled                      = 1500
	ErrorQueryParse                       = 1501
	ErrorQueryEmpty                       = 1502
	ErrorQueryBindParameterMissing        = 1551
	ErrorQueryFunctionNotFound            = 1582
	ErrorQueryNotFound                    = 1591
	ErrorCursorNotFound                   = 1600
	ErrorCursorBusy                       = 1601
	ErrorTransactionAborted               = 1654
	ErrorTransactionNotFound              = 1655
	ErrorUserInvalidName                  = 1700
	ErrorUserDuplicate                    = 1702
	ErrorUserNotFound                     = 1703
	ErrorGraphInvalidGraph                = 1901
	ErrorGraphInvalidEdge                 = 1906
	ErrorGraphCollectionMultiUse          = 1920
	ErrorGraphNotFound                    = 1924
	ErrorGraphDuplicate                   = 1925
	ErrorGraphVertexColDoesNotExist       = 1926
	ErrorGraphWrongCollectionTypeVertex   = 1927
	ErrorGraphNotInOrphanCollection       = 1928
	ErrorGraphCollectionUsedInEdgeDef     = 1929
	ErrorGraphEdgeColDoesNotExist         = 1930
)
