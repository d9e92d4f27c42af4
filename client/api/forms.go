package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type SignupForm struct {
	Username    string `validate:"required,max=100"`
	Password    string `validate:"required"`
	DisplayName string `validate:"required,max=100"`
	Github      string `validate:"omitempty,url"`
}

// PostDraft is the editable part of a post
type PostDraft struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=250"`
	ContentType string     `json:"contentType" validate:"required,oneof=text/plain text/markdown image/png;base64 image/jpeg;base64"`
	Content     string     `json:"content" validate:"required"`
	Visibility  Visibility `json:"visibility" validate:"required,oneof=PUBLIC FRIENDS UNLISTED"`
}

// DraftOf copies the editable fields out of an existing post
func DraftOf(p Post) PostDraft {
	return PostDraft{
		Title:       p.Title,
		Description: p.Description,
		ContentType: p.ContentType,
		Content:     p.Content,
		Visibility:  p.Visibility,
	}
}

// ProfileForm holds the profile fields an author may change
type ProfileForm struct {
	DisplayName  string `validate:"omitempty,max=100"`
	Github       string `validate:"omitempty,url"`
	ProfileImage string `validate:"omitempty,url"`
}

// Empty reports whether the form changes nothing
func (f ProfileForm) Empty() bool {
	return f == ProfileForm{}
}

type CommentForm struct {
	Comment     string `json:"comment" validate:"required"`
	ContentType string `json:"contentType" validate:"omitempty,oneof=text/plain text/markdown"`
}

// Validate checks a form locally; failures carry ErrValidation
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &Error{
			Kind: ErrValidation,
			Messages: lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				if fe.Param() != "" {
					return fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
				}
				return fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
			}),
		}
	}
	return &Error{Kind: ErrValidation, Err: err}
}
