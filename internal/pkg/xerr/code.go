package xerr

// Business status codes carried in every JSON response.
const (
	SuccessCode = 20000

	// --- client request errors (400xx) ---
	InvalidParamsCode   = 40000 // malformed request parameters
	MalformedBodyCode   = 40001 // multipart framing could not be parsed
	MissingFieldCode    = 40002 // required metadata field absent
	UnsupportedTypeCode = 40003 // declared MIME type outside the expected category

	// --- authentication errors (401xx) ---
	UnauthorizedCode       = 40100
	TokenInvalidCode       = 40101
	InvalidCredentialsCode = 40102
	AccountNotVerifiedCode = 40103

	// --- permission errors (403xx) ---
	ForbiddenCode = 40300

	// --- resource not found (404xx) ---
	NotFoundCode        = 40400
	UserNotFoundCode    = 40401
	VideoNotFoundCode   = 40402
	CommentNotFoundCode = 40403
	ImageNotFoundCode   = 40404

	// --- business conflicts (406xx / 409xx) ---
	DuplicateTitleCode     = 40600 // (title, owner) pair already taken
	ImageAlreadyExistsCode = 40601
	UserAlreadyExistsCode  = 40900
	EmailAlreadyExistsCode = 40901

	// --- server side errors (500xx) ---
	InternalServerErrorCode = 50000
	DatabaseErrorCode       = 50001
	TransferConnectCode     = 50002 // remote endpoint unreachable or rejected credentials
	TransferTransportCode   = 50003 // stream broke mid-transfer
	PersistenceErrorCode    = 50004 // record commit failed after a successful transfer
	MQErrorCode             = 50005
)
