package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 저장소 에러를 코드와 메시지로 변환
// 드라이버 메시지 원문은 노출하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: getDefaultErrorMessage(context),
		}
	}

	// 1. GORM 에러 (TranslateError 사용)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrorInfo{Code: notFoundCode(context), Message: getNotFoundMessage(context)}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return parseDuplicateKeyError(err.Error(), context)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrorInfo{Code: ResourceConflict, Message: "The record is still referenced by other data"}
	}

	errLower := strings.ToLower(err.Error())

	// 2. 번역되지 않은 드라이버 에러
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower, context)
	}
	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}
	if strings.Contains(errLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Some values are invalid"}
	}

	// 3. 네트워크/연결 에러
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "The storage service is unavailable, please try again",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errStr string, context string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "email") || strings.Contains(contextLower(context), "user") {
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
	}
	if strings.Contains(errLower, "idx_cart_items_user_product") || strings.Contains(contextLower(context), "cart") {
		return ErrorInfo{Code: CartOutOfSync, Message: "Your cart changed elsewhere, please refresh"}
	}

	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func contextLower(context string) string {
	return strings.ToLower(context)
}

func notFoundCode(context string) string {
	ctx := contextLower(context)
	switch {
	case strings.Contains(ctx, "product"):
		return ProductNotFound
	case strings.Contains(ctx, "cart"):
		return CartItemNotFound
	case strings.Contains(ctx, "contact"):
		return ContactNotFound
	}
	return ResourceNotFound
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	ctx := contextLower(context)
	switch {
	case strings.Contains(ctx, "product"):
		return "Artwork not found"
	case strings.Contains(ctx, "cart"):
		return "This artwork is not in your cart"
	case strings.Contains(ctx, "user"):
		return "User not found"
	case strings.Contains(ctx, "contact"):
		return "Message not found"
	}
	return "The requested resource was not found"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	ctx := contextLower(context)
	switch {
	case strings.Contains(ctx, "create"):
		return "Failed to save, please try again later"
	case strings.Contains(ctx, "update"):
		return "Failed to update, please try again later"
	case strings.Contains(ctx, "delete"):
		return "Failed to delete, please try again later"
	}
	return "Something went wrong, please try again later"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (controller 헬퍼)
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
