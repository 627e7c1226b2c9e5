package httperr

import "errors"

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindInvalidStage Kind = "invalid_stage"
)

type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e BusinessError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// ErrBusiness is a validation-kind error carrying only a state guard code.
func ErrBusiness(code string) error {
	return BusinessError{Kind: KindValidation, Code: code}
}

func ErrNotFound(code, message string) error {
	return BusinessError{Kind: KindNotFound, Code: code, Message: message}
}

func ErrValidation(code, message string) error {
	return BusinessError{Kind: KindValidation, Code: code, Message: message}
}

func ErrInvalidStage(stageKey string) error {
	return BusinessError{
		Kind:    KindInvalidStage,
		Code:    "invalid_stage",
		Message: "etapa não configurada: " + stageKey,
	}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func IsKind(err error, kind Kind) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsValidation(err error) bool   { return IsKind(err, KindValidation) }
func IsInvalidStage(err error) bool { return IsKind(err, KindInvalidStage) }
