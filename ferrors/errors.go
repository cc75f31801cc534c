package ferrors

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	MetaViewType   = "view_type"
	MetaNamespace  = "namespace"
	MetaScope      = "scope"
	MetaUserID     = "user_id"
	MetaSession    = "session_token"
	MetaKey        = "key"
	MetaRole       = "role"
	MetaStore      = "store"
	MetaAdapter    = "adapter"
	MetaTable      = "table"
	MetaOperation  = "operation"
	MetaAction     = "action"
	MetaCapability = "capability"
	MetaPath       = "path"
)

const (
	TextCodeStoreRequired             = "STORE_REQUIRED"
	TextCodeOperatorRequired          = "OPERATOR_REQUIRED"
	TextCodeSessionTokenRequired      = "SESSION_TOKEN_REQUIRED"
	TextCodeUserRequired              = "USER_ID_REQUIRED"
	TextCodeViewTypeRequired          = "VIEW_TYPE_REQUIRED"
	TextCodeViewTypeUnknown           = "VIEW_TYPE_UNKNOWN"
	TextCodeViewTypeConflict          = "VIEW_TYPE_CONFLICT"
	TextCodeNamespaceRequired         = "SETTINGS_NAMESPACE_REQUIRED"
	TextCodeNamespaceConflict         = "SETTINGS_NAMESPACE_CONFLICT"
	TextCodeNamespaceUnknown          = "SETTINGS_NAMESPACE_UNKNOWN"
	TextCodeScopeInvalid              = "SCOPE_INVALID"
	TextCodeRoleRequired              = "ROLE_REQUIRED"
	TextCodeRoleKeyForbidden          = "ROLE_DEFAULT_KEY_FORBIDDEN"
	TextCodeNonceInvalid              = "NONCE_INVALID"
	TextCodeAccessDenied              = "ACCESS_DENIED"
	TextCodePathRequired              = "PATH_REQUIRED"
	TextCodePathInvalid               = "PATH_INVALID"
	TextCodePreferencesStoreRequired  = "PREFERENCES_STORE_REQUIRED"
	TextCodeURLBuilderRequired        = "URL_BUILDER_REQUIRED"
	TextCodeAdapterFailed             = "ADAPTER_FAILED"
	TextCodeStoreReadFailed           = "STORE_READ_FAILED"
	TextCodeStoreWriteFailed          = "STORE_WRITE_FAILED"
	TextCodeStoreDecodeFailed         = "STORE_DECODE_FAILED"
	TextCodeDirectoryLookupFailed     = "DIRECTORY_LOOKUP_FAILED"
	TextCodeCapabilitySourceFailed    = "CAPABILITY_SOURCE_FAILED"
	TextCodeIdentityResolveFailed     = "IDENTITY_RESOLVE_FAILED"
	TextCodeRedirectBuildFailed       = "REDIRECT_BUILD_FAILED"
	TextCodeRequestPayloadInvalid     = "REQUEST_PAYLOAD_INVALID"
	TextCodeUpdateHandlerUnregistered = "UPDATE_HANDLER_UNREGISTERED"
)

var (
	ErrStoreRequired            = newSentinel(goerrors.CategoryOperation, goerrors.CodeInternal, TextCodeStoreRequired, "store is required")
	ErrOperatorRequired         = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeOperatorRequired, "operator is required")
	ErrSessionTokenRequired     = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeSessionTokenRequired, "session token is required")
	ErrUserRequired             = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeUserRequired, "user id is required")
	ErrViewTypeRequired         = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeViewTypeRequired, "view type is required")
	ErrViewTypeUnknown          = newSentinel(goerrors.CategoryBadInput, 404, TextCodeViewTypeUnknown, "view type is not registered")
	ErrViewTypeConflict         = newSentinel(goerrors.CategoryBadInput, 409, TextCodeViewTypeConflict, "view type already registered")
	ErrNamespaceRequired        = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeNamespaceRequired, "settings namespace is required")
	ErrNamespaceConflict        = newSentinel(goerrors.CategoryBadInput, 409, TextCodeNamespaceConflict, "settings namespace already registered")
	ErrNamespaceUnknown         = newSentinel(goerrors.CategoryBadInput, 404, TextCodeNamespaceUnknown, "settings namespace is not registered")
	ErrScopeInvalid             = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeScopeInvalid, "scope is invalid")
	ErrRoleRequired             = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodeRoleRequired, "role is required")
	ErrRoleKeyForbidden         = newSentinel(goerrors.CategoryBadInput, 403, TextCodeRoleKeyForbidden, "key cannot be stored as a role default")
	ErrNonceInvalid             = newSentinel(goerrors.CategoryBadInput, 403, TextCodeNonceInvalid, "request could not be verified")
	ErrAccessDenied             = newSentinel(goerrors.CategoryBadInput, 403, TextCodeAccessDenied, "access denied")
	ErrPathRequired             = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodePathRequired, "path is required")
	ErrPathInvalid              = newSentinel(goerrors.CategoryBadInput, goerrors.CodeBadRequest, TextCodePathInvalid, "path segment is not a map")
	ErrPreferencesStoreRequired = newSentinel(goerrors.CategoryOperation, goerrors.CodeInternal, TextCodePreferencesStoreRequired, "preferences store is required")
	ErrURLBuilderRequired       = newSentinel(goerrors.CategoryOperation, goerrors.CodeInternal, TextCodeURLBuilderRequired, "url builder is required")
)

func newSentinel(category goerrors.Category, code int, textCode, message string) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if code != 0 {
		err.WithCode(code)
	}
	return err
}

var sentinels = []*goerrors.Error{
	ErrStoreRequired,
	ErrOperatorRequired,
	ErrSessionTokenRequired,
	ErrUserRequired,
	ErrViewTypeRequired,
	ErrViewTypeUnknown,
	ErrViewTypeConflict,
	ErrNamespaceRequired,
	ErrNamespaceConflict,
	ErrNamespaceUnknown,
	ErrScopeInvalid,
	ErrRoleRequired,
	ErrRoleKeyForbidden,
	ErrNonceInvalid,
	ErrAccessDenied,
	ErrPathRequired,
	ErrPathInvalid,
	ErrPreferencesStoreRequired,
	ErrURLBuilderRequired,
}

// IsSentinel reports whether err is one of the package sentinels.
func IsSentinel(err error) bool {
	for _, sentinel := range sentinels {
		if err == error(sentinel) {
			return true
		}
	}
	return false
}

// WrapSentinel clones a sentinel so errors.Is keeps matching while callers
// attach their own message and metadata.
func WrapSentinel(sentinel *goerrors.Error, message string, meta map[string]any) *goerrors.Error {
	if sentinel == nil {
		return nil
	}
	if message == "" {
		message = sentinel.Message
	}
	err := goerrors.New(message, sentinel.Category).
		WithTextCode(sentinel.TextCode).
		WithCode(sentinel.Code).
		WithSeverity(sentinel.Severity)
	err.Source = sentinel
	if meta != nil {
		err.WithMetadata(meta)
	}
	return err
}

func Wrap(err error, category goerrors.Category, textCode, message string, meta map[string]any) *goerrors.Error {
	if err == nil {
		return nil
	}
	if IsSentinel(err) {
		if sentinel, ok := err.(*goerrors.Error); ok {
			return WrapSentinel(sentinel, "", meta)
		}
	}
	if rich, ok := err.(*goerrors.Error); ok {
		clone := rich.Clone()
		if clone.TextCode == "" && textCode != "" {
			clone.TextCode = textCode
		}
		if clone.Message == "" && message != "" {
			clone.Message = message
		}
		if meta != nil {
			clone.WithMetadata(meta)
		}
		return clone
	}
	if message == "" {
		message = err.Error()
	}
	wrapped := goerrors.New(message, category).WithTextCode(textCode)
	wrapped.Source = err
	if meta != nil {
		wrapped.WithMetadata(meta)
	}
	return wrapped
}

func New(category goerrors.Category, textCode, message string, meta map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if meta != nil {
		err.WithMetadata(meta)
	}
	return err
}

func NewBadInput(textCode, message string, meta map[string]any) *goerrors.Error {
	return New(goerrors.CategoryBadInput, textCode, message, meta)
}

func WrapBadInput(err error, textCode, message string, meta map[string]any) *goerrors.Error {
	return Wrap(err, goerrors.CategoryBadInput, textCode, message, meta)
}

func NewOperation(textCode, message string, meta map[string]any) *goerrors.Error {
	return New(goerrors.CategoryOperation, textCode, message, meta)
}

func WrapOperation(err error, textCode, message string, meta map[string]any) *goerrors.Error {
	return Wrap(err, goerrors.CategoryOperation, textCode, message, meta)
}

func NewExternal(textCode, message string, meta map[string]any) *goerrors.Error {
	return New(goerrors.CategoryExternal, textCode, message, meta)
}

func WrapExternal(err error, textCode, message string, meta map[string]any) *goerrors.Error {
	return Wrap(err, goerrors.CategoryExternal, textCode, message, meta)
}

func NewInternal(textCode, message string, meta map[string]any) *goerrors.Error {
	return New(goerrors.CategoryInternal, textCode, message, meta)
}

func WrapInternal(err error, textCode, message string, meta map[string]any) *goerrors.Error {
	return Wrap(err, goerrors.CategoryInternal, textCode, message, meta)
}

func As(err error) (*goerrors.Error, bool) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich, true
	}
	return nil, false
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, textCode string) bool {
	rich, ok := As(err)
	if !ok {
		return false
	}
	return rich.TextCode == textCode
}
