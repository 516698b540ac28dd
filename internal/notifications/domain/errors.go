package domain

import "user-lifecycle/pkg/errors"

var ErrRecipientRequired = errors.NewValidation("recipient must not be blank", map[string]string{"field": "to"})
