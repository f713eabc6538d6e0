// Package validation holds the field-level validation rules for request
// bodies and query parameters. Validators collect every violation into an
// Errors map keyed by field name, which httputil renders as the standard
// validation-error envelope.
package validation

import (
	"regexp"
	"strings"
)

// Field constraints
const (
	UsernameMinLen = 1
	UsernameMaxLen = 50

	PasswordMinLen = 8
	PasswordMaxLen = 2048

	TodoTitleMinLen = 1
	TodoTitleMaxLen = 50

	ItemContentMinLen = 1
	ItemContentMaxLen = 50

	ReviewTitleMinLen = 1
	ReviewTitleMaxLen = 50

	ReviewContentMinLen = 1
	ReviewContentMaxLen = 5000

	MinStars = 1
	MaxStars = 5

	MinOffset = 0
	MaxOffset = 999999999

	MinLimit = 1
	MaxLimit = 100
)

// passwordSpecials is the set of characters that satisfy the special
// character requirement of the password policy
const passwordSpecials = "@$!%*#?&"

var usernameRE = regexp.MustCompile(`^\w+$`)

// Errors maps field names to a human-readable reason
type Errors map[string]string

// Empty reports whether no violations were collected
func (e Errors) Empty() bool {
	return len(e) == 0
}

// add records the first violation per field
func (e Errors) add(field, reason string) {
	if _, ok := e[field]; !ok {
		e[field] = reason
	}
}

// Credentials validates a username/password pair. Nil pointers mark fields
// absent from the request body.
func Credentials(username, password *string) Errors {
	errs := Errors{}

	switch {
	case username == nil:
		errs.add("username", "field required")
	case len(*username) < UsernameMinLen || len(*username) > UsernameMaxLen:
		errs.add("username", "must be between 1 and 50 characters")
	case !usernameRE.MatchString(*username):
		errs.add("username", "may only contain letters, digits, and underscores")
	}

	switch {
	case password == nil:
		errs.add("password", "field required")
	case len(*password) < PasswordMinLen || len(*password) > PasswordMaxLen:
		errs.add("password", "must be between 8 and 2048 characters")
	case !passwordComplex(*password):
		errs.add("password", "must contain a lowercase letter, an uppercase letter, a digit, and a special character")
	}

	return errs
}

// passwordComplex checks the complexity policy: at least one lowercase
// letter, one uppercase letter, one digit, and one special character.
// Go's RE2 engine has no lookaheads, so the policy is checked directly.
func passwordComplex(password string) bool {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// Todo validates a todo create/update body
func Todo(title *string, public *bool) Errors {
	errs := Errors{}

	switch {
	case title == nil:
		errs.add("title", "field required")
	case len(*title) < TodoTitleMinLen || len(*title) > TodoTitleMaxLen:
		errs.add("title", "must be between 1 and 50 characters")
	}

	if public == nil {
		errs.add("public", "field required")
	}

	return errs
}

// Item validates an item create/update body
func Item(content *string, completed *bool) Errors {
	errs := Errors{}

	switch {
	case content == nil:
		errs.add("content", "field required")
	case len(*content) < ItemContentMinLen || len(*content) > ItemContentMaxLen:
		errs.add("content", "must be between 1 and 50 characters")
	}

	if completed == nil {
		errs.add("completed", "field required")
	}

	return errs
}

// Review validates a review create/update body
func Review(title, content *string, stars *int) Errors {
	errs := Errors{}

	switch {
	case title == nil:
		errs.add("title", "field required")
	case len(*title) < ReviewTitleMinLen || len(*title) > ReviewTitleMaxLen:
		errs.add("title", "must be between 1 and 50 characters")
	}

	switch {
	case content == nil:
		errs.add("content", "field required")
	case len(*content) < ReviewContentMinLen || len(*content) > ReviewContentMaxLen:
		errs.add("content", "must be between 1 and 5000 characters")
	}

	switch {
	case stars == nil:
		errs.add("stars", "field required")
	case *stars < MinStars || *stars > MaxStars:
		errs.add("stars", "must be between 1 and 5")
	}

	return errs
}

// Pagination validates offset/limit query parameters
func Pagination(offset, limit int) Errors {
	errs := Errors{}

	if offset < MinOffset || offset > MaxOffset {
		errs.add("offset", "must be between 0 and 999999999")
	}
	if limit < MinLimit || limit > MaxLimit {
		errs.add("limit", "must be between 1 and 100")
	}

	return errs
}
