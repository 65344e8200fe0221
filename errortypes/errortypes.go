package errortypes

// BadInput should be used when returning errors which are caused by bad input.
// It should _not_ be used if the error is a server-side issue (e.g. failed to
// send the external request).
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse should be used when returning errors which are caused by
// bad/unexpected behavior on the remote server.
//
// For example:
//
//   - The external server responded with a 500
//   - The external server gave a malformed or unexpected response.
//
// These should not be used to log _connection_ errors (e.g. "couldn't find
// host"), which may indicate config issues for the embedding host.
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// InvalidCachedScript flags a locally cached vendor script that failed
// validation and was evicted: either its hash header was missing or its
// signature did not verify. The script was not executed.
type InvalidCachedScript struct {
	Message string
}

func (err *InvalidCachedScript) Error() string {
	return err.Message
}

func (err *InvalidCachedScript) Code() int {
	return InvalidCachedScriptWarningCode
}

func (err *InvalidCachedScript) Severity() Severity {
	return SeverityWarning
}

// Warning is a generic non-fatal error where invalid or ambiguous data was
// ignored rather than failing the auction round.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
