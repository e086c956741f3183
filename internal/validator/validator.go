package validator

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/etests/etests-backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

const (
	// TagOneCorrect is reported on "options" when a question does not have
	// exactly one correct option.
	TagOneCorrect = "one_correct"

	oneCorrectMessage = "options must contain exactly one correct option"
)

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)

		register(v)
	}
}

func register(v *govalidator.Validate) {
	v.RegisterStructValidation(func(sl govalidator.StructLevel) {
		req := sl.Current().Interface().(model.AddQuestionRequest)
		if req.CorrectCount() != 1 {
			sl.ReportError(req.Options, "options", "Options", TagOneCorrect, "")
		}
	}, model.AddQuestionRequest{})

	// Nullable strings validate as their value; null and absent pass omitempty.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if n, ok := field.Interface().(model.Nullable[string]); ok && n.Value != nil {
			return *n.Value
		}
		return ""
	}, model.Nullable[string]{})

	if trans != nil {
		v.RegisterTranslation(TagOneCorrect, trans, func(ut ut.Translator) error {
			return ut.Add(TagOneCorrect, oneCorrectMessage, true)
		}, func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(TagOneCorrect)
			return msg
		})
	}
}

// ViolatesOneCorrect reports whether a field map from Bind carries the
// exactly-one-correct-option violation.
func ViolatesOneCorrect(fields map[string]string) bool {
	return fields["options"] == oneCorrectMessage
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name -> human-readable error message. Errors that are not tied to a
// field are reported under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields[typeErr.Field] = typeErr.Field + " must be a " + typeErr.Type.String()
	case errors.Is(err, io.EOF):
		fields["detail"] = "request body is required"
	default:
		// e.g. JSON syntax errors or malformed UUIDs.
		fields["detail"] = err.Error()
	}
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindOptional is Bind for endpoints whose body may be omitted. An empty body
// leaves dst at its zero value.
func BindOptional(c *gin.Context, dst any) map[string]string {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return TranslateErrors(err)
	}
	return nil
}
