package apperrors

import "net/http"

// HTTPStatus maps an error kind to the response code the dashboard expects:
// conflicts get 409 so the UI can offer "retry with fresh suggestion".
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTerminal:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
