package lead

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// KeyField is the hidden input carrying the lead idempotency key.
const KeyField = "lead_key"

// Modal payload query/form parameters.
const (
	ParamKind    = "kind"
	ParamAddress = "address"
	ParamMeta    = "meta"
	ParamImage   = "image"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so errors line up with the inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// requiredMessages maps form names to the text shown under the input.
var requiredMessages = map[string]string{
	FieldName:  "Please enter your name.",
	FieldEmail: "Please enter your email.",
}

// validateStruct runs the validate tags of s. Only presence is checked; the
// browser's required attribute is the first line, this is the second.
func validateStruct(s any) *domain.ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError("", "form", "Unable to read the form.")
	}

	ve := &domain.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg, ok := requiredMessages[fe.Field()]
		if !ok {
			msg = "This field is required."
		}
		ve.Fields[fe.Field()] = msg
	}
	return ve
}

type emailOnly struct {
	Email string `form:"email" validate:"required"`
}

func requireEmail(email string) *domain.ValidationError {
	return validateStruct(emailOnly{Email: email})
}

// BindContactForm builds a contact form from posted values.
func BindContactForm(values url.Values) *ContactForm {
	f := NewContactForm(bindKey(values))
	for _, field := range []string{FieldName, FieldEmail, FieldPhone, FieldSubject, FieldMessage} {
		// Fields are known, Update cannot fail on a fresh form.
		_ = f.Update(field, values.Get(field))
	}
	return f
}

// BindModal builds a modal from posted values: the payload fields, the
// email and the key rendered when the modal was opened.
func BindModal(values url.Values) (*Modal, error) {
	payload, err := ParseModalPayload(values)
	if err != nil {
		return nil, err
	}
	m := NewModal(payload, bindKey(values))
	_ = m.SetEmail(values.Get(FieldEmail))
	return m, nil
}

func BindNewsletter(values url.Values) *Newsletter {
	n := NewNewsletter(bindKey(values))
	_ = n.SetEmail(values.Get(FieldEmail))
	return n
}

// ParseModalPayload reads the payload parameters. Valuation payloads drop
// any listing; other kinds carry one when an address is present.
func ParseModalPayload(values url.Values) (domain.ModalPayload, error) {
	kind, ok := domain.ParseModalKind(values.Get(ParamKind))
	if !ok {
		return domain.ModalPayload{}, domain.NewValidationError("lead.modal.payload", ParamKind, "Unknown request type.")
	}

	payload := domain.ModalPayload{Kind: kind}
	if kind == domain.ModalKindValuation {
		return payload, nil
	}

	if address := strings.TrimSpace(values.Get(ParamAddress)); address != "" {
		payload.Listing = &domain.ListingSummary{
			Address:  address,
			Meta:     strings.TrimSpace(values.Get(ParamMeta)),
			ImageURL: safeImageURL(values.Get(ParamImage)),
		}
	}
	return payload, nil
}

// PayloadValues is the inverse of ParseModalPayload.
func PayloadValues(p domain.ModalPayload) url.Values {
	v := url.Values{}
	v.Set(ParamKind, string(p.Kind))
	if p.Listing != nil {
		v.Set(ParamAddress, p.Listing.Address)
		if p.Listing.Meta != "" {
			v.Set(ParamMeta, p.Listing.Meta)
		}
		if p.Listing.ImageURL != "" {
			v.Set(ParamImage, p.Listing.ImageURL)
		}
	}
	return v
}

// bindKey accepts a posted key only when it is a key this site could have
// issued; anything else falls back to a key derived from the content.
func bindKey(values url.Values) string {
	key := strings.TrimSpace(values.Get(KeyField))
	if domain.ValidLeadKey(key) {
		return key
	}
	return ""
}

// safeImageURL keeps absolute http(s) and root-relative image URLs only.
func safeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}
