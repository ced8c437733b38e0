package models

import "wayfare/apperror"

func validationError(problems []string) error {
	return apperror.ValidationError(problems...)
}
