package upload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/timmy/gallery/internal/domain"
)

// Field names used in validation errors.
const (
	FieldImage       = "image"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// SizeRule selects how File.Size is compared with Rules.SizeLimit.
type SizeRule string

const (
	// SizeAtMost rejects files larger than the limit.
	SizeAtMost SizeRule = "at_most"
	// SizeAbove accepts only files strictly larger than the limit.
	SizeAbove SizeRule = "above"
)

// DefaultAcceptedTypes are the media types an upload may declare.
var DefaultAcceptedTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Rules configures draft validation.
type Rules struct {
	SizeLimit      int64
	SizeRule       SizeRule
	AcceptedTypes  []string
	TitleMin       int
	TitleMax       int
	DescriptionMin int
	DescriptionMax int
}

// DefaultRules returns the gallery form rules: files up to 10 MiB of type
// JPEG, PNG or GIF, a 2 to 20 character title and a 1 to 65 character
// description.
func DefaultRules() Rules {
	return Rules{
		SizeLimit:      10 << 20,
		SizeRule:       SizeAtMost,
		AcceptedTypes:  DefaultAcceptedTypes,
		TitleMin:       2,
		TitleMax:       20,
		DescriptionMin: 1,
		DescriptionMax: 65,
	}
}

// Validate checks d against the rules and returns every field error found.
// A nil result means the draft is valid. Size and type checks only run when
// a file is present. A nil draft is validated as an empty one.
func (r Rules) Validate(d *domain.Draft) domain.FieldErrors {
	if d == nil {
		d = &domain.Draft{}
	}
	var errs domain.FieldErrors
	add := func(field, msg string) {
		errs = append(errs, domain.ValidationError{Field: field, Message: msg, Kind: domain.KindValidation})
	}

	if d.File == nil {
		errs = append(errs, domain.ValidationError{
			Field:   FieldImage,
			Message: "file is required",
			Kind:    domain.KindMissingFile,
		})
	} else {
		if !r.sizeAllowed(d.File.Size) {
			add(FieldImage, r.sizeMessage())
		}
		if !r.typeAllowed(d.File.MediaType) {
			add(FieldImage, "only PNG, JPEG and GIF files are accepted")
		}
	}

	if msg := lengthMessage("title", d.Title, r.TitleMin, r.TitleMax); msg != "" {
		add(FieldTitle, msg)
	}
	if msg := lengthMessage("description", d.Description, r.DescriptionMin, r.DescriptionMax); msg != "" {
		add(FieldDescription, msg)
	}

	return errs
}

func (r Rules) sizeAllowed(size int64) bool {
	if r.SizeRule == SizeAbove {
		return size > r.SizeLimit
	}
	return size <= r.SizeLimit
}

func (r Rules) sizeMessage() string {
	if r.SizeRule == SizeAbove {
		return fmt.Sprintf("file must be larger than %s", humanSize(r.SizeLimit))
	}
	return fmt.Sprintf("file must be at most %s", humanSize(r.SizeLimit))
}

// typeAllowed uses containment rather than equality so that vendor-suffixed
// or parameterised media types still match.
func (r Rules) typeAllowed(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	for _, accepted := range r.AcceptedTypes {
		if accepted != "" && strings.Contains(mediaType, strings.ToLower(accepted)) {
			return true
		}
	}
	return false
}

func lengthMessage(name, value string, minLen, maxLen int) string {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0 && minLen > 0:
		return name + " is required"
	case n < minLen:
		return fmt.Sprintf("%s must be at least %d characters", name, minLen)
	case maxLen > 0 && n > maxLen:
		return fmt.Sprintf("%s must be at most %d characters", name, maxLen)
	}
	return ""
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
