package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the "code" field of error bodies. Mobile clients
// switch on the code; the message is for display.
const (
	CodeTokenMissing       = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeTokenMalformed     = "AUTH_TOKEN_MALFORMED"
	CodeTokenNotActive     = "AUTH_TOKEN_NOT_ACTIVE"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeServerConfig       = "SERVER_CONFIG_ERROR"
	CodeAuthSystem         = "AUTH_SYSTEM_ERROR"
	CodeNoGeographicAccess = "NO_GEOGRAPHIC_ACCESS"
	CodeGeographicDenied   = "GEOGRAPHIC_ACCESS_DENIED"
	CodeLBACSystem         = "LBAC_SYSTEM_ERROR"
	CodeRoleDenied         = "ROLE_ACCESS_DENIED"
	CodeACLPolicyMissing   = "ACL_POLICY_MISSING"
	CodeACLPolicyInvalid   = "ACL_POLICY_INVALID"
	CodeACLDenied          = "ACL_ACCESS_DENIED"
	CodeObjectNotFound     = "OBJECT_NOT_FOUND"
	CodeSurveyDenied       = "SURVEY_SESSION_ACCESS_DENIED"
	CodeConflictNotFound   = "SYNC_CONFLICT_NOT_FOUND"
	CodeConflictForbidden  = "SYNC_CONFLICT_FORBIDDEN"
	CodeConflictResolved   = "SYNC_CONFLICT_ALREADY_RESOLVED"
	CodeConflictStale      = "SYNC_CONFLICT_STALE"
	CodeStrategyNotAllowed = "SYNC_STRATEGY_NOT_ALLOWED"
	CodeResolutionInvalid  = "SYNC_RESOLUTION_INVALID"
	CodeTooManyDeltas      = "SYNC_TOO_MANY_DELTAS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
)

var messages = map[string]string{
	CodeTokenMissing:       "رمز المصادقة مفقود",
	CodeTokenInvalid:       "رمز المصادقة غير صالح",
	CodeTokenExpired:       "انتهت صلاحية رمز المصادقة",
	CodeTokenMalformed:     "رمز المصادقة مشوه",
	CodeTokenNotActive:     "رمز المصادقة غير مفعل بعد",
	CodeUserNotFound:       "المستخدم غير موجود",
	CodeAccountDisabled:    "الحساب معطل",
	CodeInvalidCredentials: "اسم المستخدم أو كلمة المرور غير صحيحة",
	CodeServerConfig:       "خطأ في إعدادات الخادم",
	CodeAuthSystem:         "خطأ في نظام المصادقة",
	CodeNoGeographicAccess: "لا توجد صلاحيات جغرافية لهذا المستخدم",
	CodeGeographicDenied:   "ليس لديك صلاحية للوصول إلى هذا النطاق الجغرافي",
	CodeLBACSystem:         "خطأ في نظام التحكم بالوصول الجغرافي",
	CodeRoleDenied:         "دورك لا يسمح بالوصول إلى هذا المورد",
	CodeACLPolicyMissing:   "لا توجد سياسة وصول لهذا الملف",
	CodeACLPolicyInvalid:   "سياسة الوصول لهذا الملف غير صالحة",
	CodeACLDenied:          "ليس لديك صلاحية للوصول إلى هذا الملف",
	CodeObjectNotFound:     "الملف غير موجود",
	CodeSurveyDenied:       "ليس لديك صلاحية للوصول إلى جلسة المسح هذه",
	CodeConflictNotFound:   "التعارض غير موجود",
	CodeConflictForbidden:  "هذا التعارض يخص مستخدماً آخر",
	CodeConflictResolved:   "تمت معالجة هذا التعارض مسبقاً",
	CodeConflictStale:      "تغير السجل منذ تسجيل التعارض",
	CodeStrategyNotAllowed: "استراتيجية الحل غير مسموحة لهذا النوع من التعارض",
	CodeResolutionInvalid:  "البيانات المقترحة للحل غير صالحة",
	CodeTooManyDeltas:      "عدد التغييرات في الطلب يتجاوز الحد المسموح",
	CodeRateLimited:        "تم تجاوز عدد الطلبات المسموح به",
	CodeInvalidRequest:     "طلب غير صالح",
	CodeInternal:           "خطأ داخلي في الخادم",
}

const errorCodeKey = "error_code"

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// Message returns the localized message for code.
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[CodeInternal]
}

// NewErrorResponse builds the error body for code, tagged with the request trace id.
func NewErrorResponse(c *gin.Context, code string) ErrorResponse {
	return ErrorResponse{
		Error:   Message(code),
		Code:    code,
		TraceID: GetTraceID(c),
	}
}

// AbortWithCode stops the chain and writes the error body for code.
func AbortWithCode(c *gin.Context, status int, code string) {
	AbortWithBody(c, status, code, NewErrorResponse(c, code))
}

// AbortWithBody stops the chain with a custom error body. code is recorded
// for the access log like AbortWithCode does.
func AbortWithBody(c *gin.Context, status int, code string, body any) {
	c.Set(errorCodeKey, code)
	c.AbortWithStatusJSON(status, body)
}

// ErrorCase maps a sentinel error to an HTTP status and error code.
type ErrorCase struct {
	Err    error
	Status int
	Code   string
}

// RespondWithMappedError writes the first matching case for err. Unmatched
// errors are attached to the context for the access log and answered with 500.
func RespondWithMappedError(c *gin.Context, err error, cases ...ErrorCase) {
	if err == nil {
		return
	}
	for _, candidate := range cases {
		if candidate.Err != nil && errors.Is(err, candidate.Err) {
			AbortWithCode(c, candidate.Status, candidate.Code)
			return
		}
	}
	_ = c.Error(err)
	AbortWithCode(c, http.StatusInternalServerError, CodeInternal)
}
