package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// BaseModel is the common error envelope returned when request input is bad.
// Embed it in response types that need to carry the same fields.
type BaseModel struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// SetError records an input problem on the payload.
func (m *BaseModel) SetError(msg string) {
	m.Error = msg
	if m.Msg == "" {
		m.Msg = "invalid request input"
	}
}

// Failure is any payload that can carry an input error.
type Failure interface {
	SetError(msg string)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// ParseInput fills target (a pointer to a struct) from the request's JSON
// body, form body, or query string, then validates it. It returns nil on
// success and a populated BaseModel otherwise.
func ParseInput(logger *zap.Logger, r *http.Request, target any) *BaseModel {
	failure := &BaseModel{}
	if ParseInputWith(logger, r, target, failure) {
		return nil
	}
	return failure
}

// ParseInputWith is ParseInput with a caller-supplied failure payload. It
// reports whether target was populated; on false, fallback carries the error.
func ParseInputWith(logger *zap.Logger, r *http.Request, target any, fallback Failure) bool {
	if logger == nil {
		logger = zap.NewNop()
	}

	err := decodeInput(r, target)
	if err == nil {
		return true
	}

	logger.Info("invalid request input",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	fallback.SetError(err.Error())
	return false
}

func decodeInput(r *http.Request, target any) error {
	input, err := gatherInput(r)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	if err := validate.Struct(target); err != nil {
		return describeValidation(err)
	}
	return nil
}

// gatherInput returns the first non-empty of JSON body, form body, query string.
func gatherInput(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" && r.Body != nil {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode JSON body: %w", err)
		}
		if len(body) > 0 {
			return body, nil
		}
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	if len(r.PostForm) > 0 {
		return valuesToMap(r.PostForm), nil
	}
	return valuesToMap(r.URL.Query()), nil
}

func valuesToMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		out[k] = v
	}
	return out
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s: Field required", fe.Field()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
