package remoteerr

// Машинные коды ошибок по умолчанию для каждого вида
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeNetwork            = "NETWORK_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeConnection         = "CONNECTION_ERROR"
	CodeServer             = "SERVER_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeConflict           = "CONFLICT"
	CodeCanceled           = "CANCELED"
)

// Коды клиентской валидации учетных данных
const (
	CodeEmailRequired            = "EMAIL_REQUIRED"
	CodeInvalidEmail             = "INVALID_EMAIL"
	CodePasswordRequired         = "PASSWORD_REQUIRED"
	CodePasswordTooShort         = "PASSWORD_TOO_SHORT"
	CodePasswordMissingLowercase = "PASSWORD_MISSING_LOWERCASE"
	CodePasswordMissingUppercase = "PASSWORD_MISSING_UPPERCASE"
	CodePasswordMissingDigit     = "PASSWORD_MISSING_DIGIT"
	CodeUsernameRequired         = "USERNAME_REQUIRED"
	CodeUsernameTooShort         = "USERNAME_TOO_SHORT"
	CodeUsernameTooLong          = "USERNAME_TOO_LONG"
	CodeInvalidUsername          = "INVALID_USERNAME"
	CodeNotAuthenticated         = "NOT_AUTHENTICATED"
	CodeEmailTaken               = "EMAIL_TAKEN"
	CodeUsernameTaken            = "USERNAME_TAKEN"
)

// Коды валидации заметок
const (
	CodeTitleRequired   = "TITLE_REQUIRED"
	CodeContentRequired = "CONTENT_REQUIRED"
	CodeTooManyTags     = "TOO_MANY_TAGS"
	CodeInvalidPriority = "INVALID_PRIORITY"
	CodeIDRequired      = "ID_REQUIRED"
	CodeNoteNotFound    = "NOTE_NOT_FOUND"
)
